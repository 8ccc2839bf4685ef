package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfido/census-cli/internal/boundary"
)

func TestZIPDigits_KnownStates(t *testing.T) {
	tests := []struct {
		state string
		want  []string
	}{
		{"DC", []string{"2"}},
		{"CA", []string{"9"}},
		{"NY", []string{"0", "1"}},
		{"TX", []string{"7", "8"}},
		{"IA", []string{"5", "6"}},
		{"CT", []string{"0"}},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got, err := ZIPDigits(tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZIPDigits_CoversKnownStateZIPPairs(t *testing.T) {
	// Spot-check real state/ZIP pairs: the derived candidate digits must
	// include the partition the ZIP actually lives in.
	pairs := []struct {
		state string
		zip   string
	}{
		{"DC", "20001"},
		{"CA", "94105"},
		{"NY", "10001"},
		{"NY", "00501"}, // Holtsville, the lone 0xxxx NY prefix
		{"TX", "75001"},
		{"TX", "88510"}, // El Paso area 885xx
		{"IA", "50309"},
		{"IA", "68119"}, // Carter Lake, the 6xxxx exception
		{"MA", "02108"},
		{"AK", "99501"},
	}
	for _, p := range pairs {
		digits, err := ZIPDigits(p.state)
		require.NoError(t, err, p.state)
		assert.Contains(t, digits, p.zip[:1],
			"state %s should cover partition for ZIP %s", p.state, p.zip)
	}
}

func TestZIPDigits_AllEntriesAreDecimalDigits(t *testing.T) {
	for state, digits := range zipDigits {
		require.NotEmpty(t, digits, state)
		for _, d := range digits {
			assert.True(t, d >= '0' && d <= '9', "state %s digit %q", state, d)
		}
	}
	// 50 states + DC + PR.
	assert.Len(t, zipDigits, 52)
}

func TestZIPDigits_UnknownState(t *testing.T) {
	_, err := ZIPDigits("ZZ")
	require.Error(t, err)

	var noMatch *boundary.NoMatchError
	assert.ErrorAs(t, err, &noMatch)
}
