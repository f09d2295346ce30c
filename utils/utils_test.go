package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type createDTO struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type patchDTO struct {
	Name   *string          `json:"name"`
	Price  *decimal.Decimal `json:"price"`
	Active *bool            `json:"active"`
	Order  *int             `json:"display_order"`
}

func TestNormalizeDTO(t *testing.T) {
	dto := createDTO{Name: "  Schengen  ", Price: decimal.RequireFromString("450.005")}
	NormalizeDTO(&dto)

	assert.Equal(t, "Schengen", dto.Name)
	assert.Equal(t, "450.01", Amount(dto.Price))
}

func TestNormalizePtrDTOKeepsNils(t *testing.T) {
	name := " UK "
	dto := patchDTO{Name: &name}
	NormalizePtrDTO(&dto)

	assert.Equal(t, "UK", *dto.Name)
	assert.Nil(t, dto.Price)
}

func TestUpdatesFromPtrDTO(t *testing.T) {
	active := false
	order := 3
	dto := patchDTO{Active: &active, Order: &order}

	got := UpdatesFromPtrDTO(&dto, map[string]string{"display_order": "position"})

	assert.Equal(t, map[string]any{"active": false, "position": 3}, got)
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("+966 50 123 4567"))
	assert.True(t, IsValidPhone("966501234567"))
	assert.False(t, IsValidPhone("050-123"))
	assert.False(t, IsValidPhone("+0123456"))
	assert.False(t, IsValidPhone("abc"))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 5, ParseIntDefault(" 5 ", 1))
	assert.Equal(t, 1, ParseIntDefault("-3", 1))
	assert.Equal(t, 20, ParseIntDefault("", 20))
}
