package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"15", 1500, false},
		{"15.5", 1550, false},
		{"15.50", 1550, false},
		{" $0.99 ", 99, false},
		{".5", 50, false},
		{"0", 0, false},
		{"", 0, true},
		{"15.", 0, true},
		{"15.505", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"1.-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTiers(t *testing.T) {
	tiers, err := ParseTiers("General: 15.00\n\n  VIP : 50\r\nEarly: Bird: 5.5\n")
	require.NoError(t, err)
	assert.Equal(t, []TierInput{
		{Name: "General", PriceCents: 1500},
		{Name: "VIP", PriceCents: 5000},
		{Name: "Early: Bird", PriceCents: 550},
	}, tiers)

	_, err = ParseTiers("   \n")
	assert.Error(t, err)

	_, err = ParseTiers("General 15")
	assert.Error(t, err)

	_, err = ParseTiers("General: free")
	assert.Error(t, err)
}
