package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/SscSPs/banking_ledger/internal/core/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublisher_PublishTransactionEvent(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	event := domain.NewTransactionEvent("user-1", domain.Transaction{
		TransactionID: "txn-1",
		Reference:     "TRF-1",
		Status:        domain.StatusCompleted,
		Amount:        decimal.RequireFromString("40.00"),
		CurrencyCode:  "USD",
	})

	require.NoError(t, p.PublishTransactionEvent(context.Background(), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-1", string(w.msgs[0].Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "transaction", decoded["type"])
	assert.Equal(t, "txn-1", decoded["transactionId"])
	assert.Equal(t, "COMPLETED", decoded["status"])
	assert.Equal(t, "USD", decoded["currency"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	brokerDown := errors.New("broker unavailable")
	p := &Publisher{writer: &fakeWriter{err: brokerDown}}

	err := p.PublishTransactionEvent(context.Background(), domain.TransactionEvent{Reference: "TRF-2"})
	assert.ErrorIs(t, err, brokerDown)
	assert.Contains(t, err.Error(), "TRF-2")
}
