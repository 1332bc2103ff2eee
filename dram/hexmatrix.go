package dram

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseHexMatrix reads an operator-supplied DRAM_MTX or ADDR_MTX
// override from source: one row per line, each row a 0x-prefixed
// hexadecimal literal, blank lines and "//" line comments ignored. This
// lets an operator who has reverse engineered a DIMM not already in
// Registry supply its matrices without recompiling.
func ParseHexMatrix(source io.Reader) ([MTXSize]uint32, error) {
	var matrix [MTXSize]uint32

	scanner := bufio.NewScanner(source)

	row := 0
	line := 0
	for scanner.Scan() {
		line++

		text := scanner.Text()
		if idx := strings.Index(text, "//"); idx >= 0 {
			text = text[:idx]
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if row >= MTXSize {
			return matrix, fmt.Errorf("too many rows, expected %d, found another at line %d", MTXSize, line)
		}

		v, err := strconv.ParseUint(strings.TrimPrefix(text, "0x"), 16, 32)
		if err != nil {
			return matrix, fmt.Errorf("failed to parse row %d (line %d) as hex - %w", row, line, err)
		}

		matrix[row] = uint32(v)
		row++
	}
	if err := scanner.Err(); err != nil {
		return matrix, fmt.Errorf("failed to scan matrix source - %w", err)
	}

	if row != MTXSize {
		return matrix, fmt.Errorf("expected %d rows, got %d", MTXSize, row)
	}

	return matrix, nil
}
