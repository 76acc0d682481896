package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sics-enrollment-api/internal/models"
	"github.com/noah-isme/sics-enrollment-api/pkg/config"
)

func TestTuitionTableLookup(t *testing.T) {
	table := NewTuitionTable(map[string]decimal.Decimal{"Grade 1": decimal.NewFromInt(25000), "Grade 7": decimal.NewFromInt(30000)}, decimal.Zero)

	assert.True(t, decimal.NewFromInt(30000).Equal(table.Lookup("Grade 7")))
	assert.True(t, decimal.NewFromInt(25000).Equal(table.Lookup("Grade 1")))
	assert.True(t, DefaultTuition.Equal(table.Lookup("Nursery")))
}

func TestNewTuitionTableFromConfig(t *testing.T) {
	table, err := NewTuitionTableFromConfig(config.TuitionConfig{Default: "20000", Rates: map[string]string{"Grade 1": "18000.50"}})
	require.NoError(t, err)
	assert.Equal(t, "18000.5", table.Lookup("Grade 1").String())
	assert.Equal(t, "20000", table.Lookup("Grade 12").String())

	defaults, err := NewTuitionTableFromConfig(config.TuitionConfig{})
	require.NoError(t, err)
	assert.Equal(t, "25000", defaults.Lookup("Grade 1").String())
	assert.Equal(t, "25000", defaults.Lookup("Unknown").String())

	_, err = NewTuitionTableFromConfig(config.TuitionConfig{Rates: map[string]string{"Grade 1": "abc"}})
	assert.Error(t, err)
	_, err = NewTuitionTableFromConfig(config.TuitionConfig{Rates: map[string]string{"Grade 1": "-5"}})
	assert.Error(t, err)
}

func TestComputeAccountStatus(t *testing.T) {
	assert.Equal(t, models.AccountStatusUnpaid, ComputeAccountStatus(decimal.Zero, decimal.NewFromInt(25000)))
	assert.Equal(t, models.AccountStatusPartial, ComputeAccountStatus(decimal.NewFromInt(10000), decimal.NewFromInt(15000)))
	assert.Equal(t, models.AccountStatusPaid, ComputeAccountStatus(decimal.NewFromInt(25000), decimal.Zero))
	assert.Equal(t, models.AccountStatusPaid, ComputeAccountStatus(decimal.NewFromInt(26000), decimal.NewFromInt(-1000)))
}
