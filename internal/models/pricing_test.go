package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	p := Product{Price: 100}
	assert.Equal(t, 100.0, p.EffectivePrice())
	assert.False(t, p.OnSale())

	p.SaleEnabled = true
	p.SalePrice = 80
	assert.Equal(t, 80.0, p.EffectivePrice())
	assert.True(t, p.OnSale())

	// Sale flag without a usable sale price falls back to the list price.
	p.SalePrice = 0
	assert.Equal(t, 100.0, p.EffectivePrice())
}

func TestValidateSaleFields(t *testing.T) {
	assert.NoError(t, ValidateSaleFields(100, false, 0, false))
	assert.NoError(t, ValidateSaleFields(100, true, 80, true))

	assert.Error(t, ValidateSaleFields(100, true, 0, false), "sale without a price")
	assert.Error(t, ValidateSaleFields(100, true, 120, true), "sale above list price")
	assert.Error(t, ValidateSaleFields(100, true, -5, true), "negative sale price")
}
