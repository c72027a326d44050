package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CPU Quantity Tests
// =============================================================================

func TestParseCPUQuantity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain cores", "2", 2},
		{"fractional cores", "0.25", 0.25},
		{"millicores", "250m", 0.25},
		{"whole millicores", "1500m", 1.5},
		{"padded", " 0.5 ", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCPUQuantity(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseCPUQuantity_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "-100m", "0.5x", "m"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseCPUQuantity(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnparseableQuantity)
		})
	}
}

// =============================================================================
// Memory Quantity Tests
// =============================================================================

func TestParseMemoryQuantity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain bytes", "1073741824", 1073741824},
		{"mebibytes", "256Mi", 256 * 1024 * 1024},
		{"gibibytes", "1Gi", 1024 * 1024 * 1024},
		{"decimal megabytes", "512M", 512e6},
		{"decimal gigabytes", "1G", 1e9},
		{"kibibytes", "64Ki", 64 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMemoryQuantity(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-3)
		})
	}
}

func TestParseMemoryQuantity_Invalid(t *testing.T) {
	for _, input := range []string{"", "lots", "-1Gi", "Mi", "1Qi"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseMemoryQuantity(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnparseableQuantity)
		})
	}
}

// Binary and decimal suffixes are different sizes; a mixup here would
// silently change request/limit comparisons.
func TestParseMemoryQuantity_BinaryVsDecimal(t *testing.T) {
	mi, err := ParseMemoryQuantity("1Mi")
	require.NoError(t, err)
	m, err := ParseMemoryQuantity("1M")
	require.NoError(t, err)
	assert.Greater(t, mi, m)
}
