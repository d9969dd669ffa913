package api

import (
	"testing"

	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmountCents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "10", want: 1000},
		{in: "10.5", want: 1050},
		{in: "10.15", want: 1015},
		{in: " +0.01 ", want: 1},
		{in: "15", want: 1500},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-5.00", wantErr: true},
		{in: "1.234", wantErr: true},
		{in: "1.", wantErr: true},
		{in: ".5", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "1.-5", wantErr: true},
		{in: "1.+5", wantErr: true},
		{in: "+-1", wantErr: true},
		{in: "1 000", wantErr: true},
		{in: "92233720368547757.99", want: 9223372036854775799},
		{in: "92233720368547758", wantErr: true},
		{in: "184467440737095516.17", wantErr: true},
		{in: "100000000000000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := parseAmountCents(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, validate.ErrInvalid)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOptionalAmount(t *testing.T) {
	t.Parallel()

	got, err := parseOptionalAmount("minIncrement", "")
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = parseOptionalAmount("minIncrement", "0")
	require.NoError(t, err)
	assert.Zero(t, got)

	got, err = parseOptionalAmount("minIncrement", "1.00")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	_, err = parseOptionalAmount("minIncrement", "-1")

	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "minIncrement", verr.Field)
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.00", formatAmount(0))
	assert.Equal(t, "0.05", formatAmount(5))
	assert.Equal(t, "10.15", formatAmount(1015))
	assert.Equal(t, "-2.50", formatAmount(-250))
	assert.Nil(t, formatAmountPtr(nil))
}
