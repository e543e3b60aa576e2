package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMask parses a whitespace-delimited integer grid (one row per line)
// into a flat row-major []float64 usable as a pressure.Config.Mask.
// Grounded on matsense/tools.py::parse_mask.
func ParseMask(s string) ([]float64, error) {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var cols int
	var flat []float64
	for i, line := range lines {
		fields := strings.Fields(line)
		if i == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(fields), cols)
		}
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			flat = append(flat, float64(v))
		}
	}
	return flat, nil
}

// DumpMask is the inverse of ParseMask, given the grid's column count.
func DumpMask(mask []float64, cols int) string {
	var b strings.Builder
	for i, v := range mask {
		if i > 0 && i%cols == 0 {
			b.WriteByte('\n')
		} else if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}
