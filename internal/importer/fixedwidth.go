package importer

import (
	"fmt"
	"strings"

	"github.com/rvudash/rvudash/internal/model"
)

// FixedWidthParser parses fixed-width "virtual print" text reports.
type FixedWidthParser struct {
	offsets []int
}

// NewFixedWidthParser creates a parser slicing lines at offsets. Field i
// spans [offsets[i], offsets[i+1]); equal neighbours make an empty field.
func NewFixedWidthParser(offsets []int) (*FixedWidthParser, error) {
	if len(offsets) != numFields+1 {
		return nil, fmt.Errorf("fixed-width layout: expected %d offsets, got %d", numFields+1, len(offsets))
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] || offsets[i-1] < 0 {
			return nil, fmt.Errorf("fixed-width layout: offsets must be non-negative and non-decreasing")
		}
	}
	return &FixedWidthParser{offsets: append([]int(nil), offsets...)}, nil
}

// Name returns the parser name.
func (p *FixedWidthParser) Name() string { return "fixed-width" }

// CanParse claims .txt files.
func (p *FixedWidthParser) CanParse(filename string, _ []byte) bool {
	return hasExt(filename, ".txt")
}

// Parse keeps the lines that start with a month digit and slices them into
// fields. Report headers, page breaks and totals never start with 0 or 1.
func (p *FixedWidthParser) Parse(data []byte) ([]model.Charge, error) {
	text, err := DecodeText(data)
	if err != nil {
		return nil, err
	}

	var charges []model.Charge
	for _, line := range splitLines(text) {
		if !isDataLine(line) {
			continue
		}
		c := chargeFromFields(p.slice(line), parseDate)
		if !c.Valid() {
			continue
		}
		charges = append(charges, c)
	}
	return charges, nil
}

// slice cuts a line at the configured character offsets.
func (p *FixedWidthParser) slice(line string) []string {
	runes := []rune(line)
	fields := make([]string, numFields)
	for i := range fields {
		start, end := p.offsets[i], p.offsets[i+1]
		if start >= len(runes) {
			continue
		}
		if end > len(runes) {
			end = len(runes)
		}
		fields[i] = strings.TrimSpace(string(runes[start:end]))
	}
	return fields
}

func isDataLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	return line[0] == '0' || line[0] == '1'
}

// splitLines splits on \n, \r\n or a bare \r.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
