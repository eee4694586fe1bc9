package rangeorders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{"1", 18, "1000000000000000000", false},
		{"0.5", 6, "500000", false},
		{"30", 9, "30000000000", false},
		{"1.1234567", 6, "1123456", false},
		{" 2 ", 0, "2", false},
		{"-1", 18, "", true},
		{"abc", 18, "", true},
		{"1", -1, "", true},
		{"1", 37, "", true},
		{"1e80", 0, "", true},
	}

	for _, tt := range tests {
		got, err := ParseUnits(tt.amount, tt.decimals)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidParam, tt.amount)
			continue
		}
		require.NoError(t, err, tt.amount)
		assert.Equal(t, tt.want, got.String())
	}
}

func TestFormatUnits(t *testing.T) {
	raw, err := ParseUnits("1234.5", 6)
	require.NoError(t, err)

	assert.Equal(t, "1234.5", FormatUnits(raw, 6))
	assert.Equal(t, "0", FormatUnits(nil, 18))
}

func TestGweiToWei(t *testing.T) {
	assert.Equal(t, "30000000000", GweiToWei(decimal.NewFromInt(30)).String())
	assert.Equal(t, "1500000000", GweiToWei(decimal.RequireFromString("1.5")).String())
}
