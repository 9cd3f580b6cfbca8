package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every ledger amount carries.
const MoneyScale = 2

var (
	hundred       = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
)

// ValidateAmount checks that amount is strictly positive and has at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return fmt.Errorf("amount %s has more than %d decimal places", amount.String(), MoneyScale)
	}
	return nil
}

// SimpleInterest returns principal × rate/100 × termMonths/12, rounded to two places.
func SimpleInterest(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	return principal.
		Mul(annualRatePercent).Div(hundred).
		Mul(decimal.NewFromInt(int64(termMonths))).Div(monthsPerYear).
		Round(MoneyScale)
}

// TotalRepayable is the outstanding balance of a loan at disbursement.
func TotalRepayable(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	return principal.Add(SimpleInterest(principal, annualRatePercent, termMonths)).Round(MoneyScale)
}

// Sum adds up amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
