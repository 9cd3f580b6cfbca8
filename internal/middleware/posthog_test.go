package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SscSPs/banking_ledger/internal/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	user  string
	event string
	props map[string]any
}

type fakeSink struct {
	enabled bool
	events  []recordedEvent
}

func (f *fakeSink) IsInitialized() bool { return f.enabled }

func (f *fakeSink) Enqueue(distinctID string, event string, properties map[string]any) {
	f.events = append(f.events, recordedEvent{user: distinctID, event: event, props: properties})
}

func analyticsRouter(sink AnalyticsSink) *gin.Engine {
	r := gin.New()
	asUser := func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), "alice", ""))
		c.Next()
	}
	v1 := r.Group("/api/v1", asUser, PosthogMiddleware(sink))
	v1.POST("/transfers", func(c *gin.Context) {
		switch c.GetHeader("X-Case") {
		case "replay":
			MarkReplayed(c)
			c.Status(http.StatusOK)
		case "insufficient":
			SetErrorCode(c, apperrors.CodeInsufficientFunds)
			c.Status(http.StatusUnprocessableEntity)
		case "internal":
			AbortWithCode(c, http.StatusInternalServerError, "", "boom")
		default:
			c.Status(http.StatusCreated)
		}
	})
	v1.GET("/transfers/:reference", func(c *gin.Context) { c.Status(http.StatusOK) })
	v1.POST("/loans/:loanId/payment", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func send(r http.Handler, method, path, variant string) {
	req := httptest.NewRequest(method, path, nil)
	if variant != "" {
		req.Header.Set("X-Case", variant)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
}

func TestPosthogMiddleware_TagsTransferOutcomes(t *testing.T) {
	sink := &fakeSink{enabled: true}
	r := analyticsRouter(sink)

	send(r, http.MethodPost, "/api/v1/transfers", "")
	send(r, http.MethodPost, "/api/v1/transfers", "replay")
	send(r, http.MethodPost, "/api/v1/transfers", "insufficient")
	send(r, http.MethodPost, "/api/v1/transfers", "internal")

	require.Len(t, sink.events, 4)
	for _, e := range sink.events {
		assert.Equal(t, "alice", e.user)
		assert.Equal(t, "transfer", e.event)
	}
	assert.Equal(t, OutcomeExecuted, sink.events[0].props["outcome"])
	assert.NotContains(t, sink.events[0].props, "error_code")
	assert.Equal(t, OutcomeReplayed, sink.events[1].props["outcome"])
	assert.Equal(t, OutcomeRejected, sink.events[2].props["outcome"])
	assert.Equal(t, apperrors.CodeInsufficientFunds, sink.events[2].props["error_code"])
	assert.Equal(t, http.StatusUnprocessableEntity, sink.events[2].props["status_code"])
	assert.Equal(t, OutcomeFailed, sink.events[3].props["outcome"])
	assert.Equal(t, apperrors.CodeInternal, sink.events[3].props["error_code"])
}

func TestPosthogMiddleware_LoanPaymentCarriesLoanID(t *testing.T) {
	sink := &fakeSink{enabled: true}
	send(analyticsRouter(sink), http.MethodPost, "/api/v1/loans/L-7/payment", "")

	require.Len(t, sink.events, 1)
	assert.Equal(t, "loan_payment", sink.events[0].event)
	assert.Equal(t, "L-7", sink.events[0].props["loanId"])
	assert.Equal(t, OutcomeExecuted, sink.events[0].props["outcome"])
}

func TestPosthogMiddleware_SkipsReadsAndDisabledSink(t *testing.T) {
	sink := &fakeSink{enabled: true}
	send(analyticsRouter(sink), http.MethodGet, "/api/v1/transfers/TX-1", "")
	assert.Empty(t, sink.events)

	disabled := &fakeSink{}
	send(analyticsRouter(disabled), http.MethodPost, "/api/v1/transfers", "")
	assert.Empty(t, disabled.events)
}

func TestLedgerEventName(t *testing.T) {
	tests := []struct {
		method, path, want string
		tracked            bool
	}{
		{http.MethodPost, "/api/v1/transfers/:reference/reverse", "transfer_reversal", true},
		{http.MethodPost, "/api/v1/admin/accounts/:accountId/deposit", "deposit", true},
		{http.MethodPut, "/api/v1/admin/accounts/:accountId/status", "account_status_change", true},
		{http.MethodPost, "/api/v1/admin/loans/:loanId/disburse", "loan_disbursement", true},
		{http.MethodGet, "/api/v1/loans", "", false},
		{http.MethodPost, "/settlements/webhook", "", false},
	}
	for _, tt := range tests {
		got, ok := LedgerEventName(tt.method, tt.path)
		assert.Equal(t, tt.tracked, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}
