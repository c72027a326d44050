package descriptor

import (
	"errors"
	"strconv"
	"strings"
)

// =============================================================================
// Resource Quantity Parsing
// =============================================================================

// ErrUnparseableQuantity is returned when a quantity string is not in a
// recognized format.
var ErrUnparseableQuantity = errors.New("unparseable resource quantity")

// memorySuffixes maps a memory quantity suffix to its byte multiplier.
// Binary (Ki, Mi, Gi, Ti) and decimal (K, M, G, T) forms are both accepted,
// matching the quantity grammar Kubernetes uses.
var memorySuffixes = []struct {
	suffix     string
	multiplier float64
}{
	{"Ki", 1024},
	{"Mi", 1024 * 1024},
	{"Gi", 1024 * 1024 * 1024},
	{"Ti", 1024 * 1024 * 1024 * 1024},
	{"K", 1e3},
	{"k", 1e3},
	{"M", 1e6},
	{"G", 1e9},
	{"T", 1e12},
}

// ParseCPUQuantity parses a CPU quantity string into cores.
//
// Accepted forms:
//   - plain decimal cores: "0.25", "2"
//   - millicores: "250m"
//
// Returns ErrUnparseableQuantity for anything else.
func ParseCPUQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrUnparseableQuantity
	}
	if strings.HasSuffix(s, "m") {
		milli, err := strconv.ParseFloat(strings.TrimSuffix(s, "m"), 64)
		if err != nil || milli < 0 {
			return 0, ErrUnparseableQuantity
		}
		return milli / 1000, nil
	}
	cores, err := strconv.ParseFloat(s, 64)
	if err != nil || cores < 0 {
		return 0, ErrUnparseableQuantity
	}
	return cores, nil
}

// ParseMemoryQuantity parses a memory quantity string into bytes.
//
// Accepted forms:
//   - plain bytes: "1073741824"
//   - binary suffixes: "256Mi", "1Gi"
//   - decimal suffixes: "512M", "1G"
//
// Returns ErrUnparseableQuantity for anything else.
func ParseMemoryQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrUnparseableQuantity
	}
	for _, m := range memorySuffixes {
		if strings.HasSuffix(s, m.suffix) {
			n, err := strconv.ParseFloat(strings.TrimSuffix(s, m.suffix), 64)
			if err != nil || n < 0 {
				return 0, ErrUnparseableQuantity
			}
			return n * m.multiplier, nil
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0, ErrUnparseableQuantity
	}
	return n, nil
}
