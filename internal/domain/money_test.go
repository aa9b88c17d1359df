package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Total Cents `json:"total"`
	}{Total: 3051})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":30.51}`, string(b))

	var in struct {
		Price Cents `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":4.5}`), &in))
	assert.Equal(t, Cents(450), in.Price)

	require.NoError(t, json.Unmarshal([]byte(`{"price":"12.99"}`), &in))
	assert.Equal(t, Cents(1299), in.Price)

	assert.Error(t, json.Unmarshal([]byte(`{"price":"abc"}`), &in))
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "0.00", Cents(0).String())
	assert.Equal(t, "27.00", Cents(2700).String())
	assert.Equal(t, "-1.05", Cents(-105).String())
}

func TestCentsJSON_RejectsUnrepresentableAmounts(t *testing.T) {
	var in struct {
		Price Cents `json:"price"`
	}

	err := json.Unmarshal([]byte(`{"price":100000000000000000000}`), &in)
	assert.ErrorIs(t, err, ErrCentsOutOfRange)

	err = json.Unmarshal([]byte(`{"price":4.505}`), &in)
	assert.ErrorIs(t, err, ErrSubCent)

	require.NoError(t, json.Unmarshal([]byte(`{"price":4.500}`), &in))
	assert.Equal(t, Cents(450), in.Price)
}

func TestCentsFromDecimal(t *testing.T) {
	c, err := CentsFromDecimal(decimal.RequireFromString("1000000.00"))
	require.NoError(t, err)
	assert.Equal(t, MaxUnitPrice, c)

	_, err = CentsFromDecimal(decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, ErrSubCent)

	_, err = CentsFromDecimal(decimal.RequireFromString("-92233720368547758.09"))
	assert.ErrorIs(t, err, ErrCentsOutOfRange)
}
