package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/rvudash/rvudash/internal/model"
)

var (
	xlsxMagic = []byte("PK\x03\x04")
	xlsMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// SpreadsheetParser parses legacy practice-management Excel exports.
type SpreadsheetParser struct {
	columns []int // zero-based sheet column per canonical field
}

// NewSpreadsheetParser creates a parser reading the given column letters,
// one per model.Columns entry.
func NewSpreadsheetParser(letters []string) (*SpreadsheetParser, error) {
	if len(letters) != numFields {
		return nil, fmt.Errorf("spreadsheet layout: expected %d columns, got %d", numFields, len(letters))
	}
	cols := make([]int, len(letters))
	for i, l := range letters {
		n, err := excelize.ColumnNameToNumber(strings.TrimSpace(l))
		if err != nil {
			return nil, fmt.Errorf("spreadsheet layout: column %q for %s: %w", l, model.Columns[i], err)
		}
		cols[i] = n - 1
	}
	return &SpreadsheetParser{columns: cols}, nil
}

// Name returns the parser name.
func (p *SpreadsheetParser) Name() string { return "spreadsheet" }

// CanParse claims .xls and .xlsx files.
func (p *SpreadsheetParser) CanParse(filename string, _ []byte) bool {
	return hasExt(filename, ".xls", ".xlsx")
}

// Parse reads the first sheet, skipping the header row. Rows without a
// posted date or provider are dropped.
func (p *SpreadsheetParser) Parse(data []byte) ([]model.Charge, error) {
	rows, err := readSheet(data)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	var charges []model.Charge
	fields := make([]string, numFields)
	for _, row := range rows[1:] {
		for i, col := range p.columns {
			fields[i] = ""
			if col < len(row) {
				fields[i] = row[col]
			}
		}
		c := chargeFromFields(fields, parseSheetDate)
		if !c.Valid() {
			continue
		}
		charges = append(charges, c)
	}
	return charges, nil
}

// readSheet returns the first sheet's cells as raw text. The workbook kind
// is sniffed from the content, since exports are often renamed.
func readSheet(data []byte) ([][]string, error) {
	switch {
	case bytes.HasPrefix(data, xlsxMagic):
		return readXLSX(data)
	case bytes.HasPrefix(data, xlsMagic):
		return readXLS(data)
	default:
		return nil, errors.New("not an Excel workbook")
	}
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	// Raw values keep CPT codes as typed and dates as serials.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readXLS(data []byte) (rows [][]string, err error) {
	// The BIFF reader panics on truncated records instead of returning errors.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("reading xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheet.Row(i)
		if r == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, r.LastCol())
		for j := r.FirstCol(); j < r.LastCol(); j++ {
			cells[j] = r.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
