package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal", "100.00", "100.00", true},
		{"one cent", "100.00", "100.01", true},
		{"over one cent", "100.00", "100.011", false},
		{"negative gap", "100.02", "100.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinTolerance(MustMoney(tt.a), MustMoney(tt.b)))
		})
	}
}

func TestClampZero(t *testing.T) {
	assert.True(t, ClampZero(MustMoney("-5")).IsZero())
	assert.True(t, ClampZero(MustMoney("5")).Equal(MustMoney("5")))
}

func TestRoundMoneyAndPrecision(t *testing.T) {
	assert.Equal(t, "33.33", FormatMoney(RoundMoney(MustMoney("33.333"))))
	assert.Equal(t, "0.01", FormatMoney(RoundMoney(MustMoney("0.005"))))
	assert.True(t, HasMoneyPrecision(MustMoney("12.50")))
	assert.False(t, HasMoneyPrecision(MustMoney("12.505")))
}
