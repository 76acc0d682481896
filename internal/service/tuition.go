package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/pkg/config"
)

// DefaultTuition applies to any grade level missing from the rate table.
var DefaultTuition = decimal.NewFromInt(25000)

// defaultTuitionRates is used when TUITION_RATES is not configured.
var defaultTuitionRates = map[string]int64{
	"Kinder":   25000,
	"Grade 1":  25000,
	"Grade 2":  25000,
	"Grade 3":  25000,
	"Grade 4":  25000,
	"Grade 5":  25000,
	"Grade 6":  25000,
	"Grade 7":  30000,
	"Grade 8":  30000,
	"Grade 9":  30000,
	"Grade 10": 30000,
}

// TuitionTable maps a grade level to its tuition. It is immutable after construction and
// shared by billing and enrollment so both read the same amounts.
type TuitionTable struct {
	rates    map[string]decimal.Decimal
	fallback decimal.Decimal
}

// NewTuitionTable builds a table from explicit rates and a fallback amount.
func NewTuitionTable(rates map[string]decimal.Decimal, fallback decimal.Decimal) *TuitionTable {
	copied := make(map[string]decimal.Decimal, len(rates))
	for level, amount := range rates {
		copied[level] = amount
	}
	if !fallback.IsPositive() {
		fallback = DefaultTuition
	}
	return &TuitionTable{rates: copied, fallback: fallback}
}

// NewTuitionTableFromConfig parses TUITION_RATES and TUITION_DEFAULT.
func NewTuitionTableFromConfig(cfg config.TuitionConfig) (*TuitionTable, error) {
	fallback := DefaultTuition
	if cfg.Default != "" {
		parsed, err := decimal.NewFromString(cfg.Default)
		if err != nil {
			return nil, fmt.Errorf("parse TUITION_DEFAULT: %w", err)
		}
		fallback = parsed
	}

	rates := make(map[string]decimal.Decimal)
	if len(cfg.Rates) == 0 {
		for level, amount := range defaultTuitionRates {
			rates[level] = decimal.NewFromInt(amount)
		}
	}
	for level, raw := range cfg.Rates {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse tuition rate for %s: %w", level, err)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("tuition rate for %s must be positive", level)
		}
		rates[level] = amount
	}
	return NewTuitionTable(rates, fallback), nil
}

// Lookup returns the tuition for the grade level, or the fallback when the level is unknown.
func (t *TuitionTable) Lookup(gradeLevel string) decimal.Decimal {
	if t == nil {
		return DefaultTuition
	}
	if amount, ok := t.rates[gradeLevel]; ok {
		return amount
	}
	return t.fallback
}

// ComputeAccountStatus derives the ledger label from what has been paid and what remains.
func ComputeAccountStatus(totalPaid, balance decimal.Decimal) models.AccountStatus {
	switch {
	case !balance.IsPositive():
		return models.AccountStatusPaid
	case totalPaid.IsPositive():
		return models.AccountStatusPartial
	default:
		return models.AccountStatusUnpaid
	}
}
