package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/stockcast/internal/domain"
)

func TestSaleIDFallsBackToPosition(t *testing.T) {
	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "s-9", saleID(domain.SaleEvent{SaleID: "s-9", SaleDate: day}, 3))
	assert.Equal(t, "20240302-a1-3", saleID(domain.SaleEvent{ArticleID: "a1", SaleDate: day}, 3))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", nullIfEmpty("x"))
}
