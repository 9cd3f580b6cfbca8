package accounting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"whole", "40", false},
		{"two places", "12.34", false},
		{"trailing zeros", "12.300", false},
		{"three places", "1.005", true},
		{"zero", "0", true},
		{"negative", "-5", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTotalRepayable(t *testing.T) {
	// 1000 at 12% for 6 months: 1000 * 0.12 * 0.5 = 60
	got := TotalRepayable(decimal.NewFromInt(1000), decimal.NewFromInt(12), 6)
	assert.True(t, decimal.NewFromInt(1060).Equal(got), "got %s", got)

	// rounding to cents
	got = SimpleInterest(decimal.RequireFromString("333.33"), decimal.RequireFromString("7.5"), 7)
	assert.Equal(t, "14.58", got.StringFixed(2))

	assert.True(t, decimal.NewFromInt(500).Equal(TotalRepayable(decimal.NewFromInt(500), decimal.Zero, 12)))
}

func TestSum(t *testing.T) {
	assert.True(t, decimal.RequireFromString("3.50").Equal(Sum(decimal.NewFromInt(1), decimal.RequireFromString("2.5"))))
	assert.True(t, decimal.Zero.Equal(Sum()))
}
