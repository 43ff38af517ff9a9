package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rvudash/rvudash/internal/model"
)

// ErrNoParser is returned when no registered parser recognizes a file.
var ErrNoParser = errors.New("no parser for file")

// Parser converts one billing export format into canonical charges.
type Parser interface {
	// Name identifies the format, e.g. "spreadsheet".
	Name() string
	// CanParse reports whether this parser owns the file.
	CanParse(filename string, data []byte) bool
	// Parse returns the valid rows of the export. Row-level defects drop or
	// blank the affected row; only an unreadable file is an error.
	Parse(data []byte) ([]model.Charge, error)
}

// Registry holds parsers in detection order.
type Registry struct {
	parsers []Parser
	byName  map[string]Parser
}

// FileInfo describes a data file found by Scan.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate name.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Name())
	if _, ok := r.byName[key]; ok {
		panic("duplicate parser: " + key)
	}
	r.byName[key] = p
	r.parsers = append(r.parsers, p)
}

// Get returns the parser registered under name, or nil.
func (r *Registry) Get(name string) Parser {
	return r.byName[strings.ToLower(name)]
}

// Detect returns the first parser that claims the file, or nil.
func (r *Registry) Detect(filename string, data []byte) Parser {
	for _, p := range r.parsers {
		if p.CanParse(filename, data) {
			return p
		}
	}
	return nil
}

// Parse detects the format of a file and parses it.
func (r *Registry) Parse(filename string, data []byte) ([]model.Charge, error) {
	p := r.Detect(filename, data)
	if p == nil {
		return nil, fmt.Errorf("%s: %w", filename, ErrNoParser)
	}
	rows, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s as %s: %w", filename, p.Name(), err)
	}
	return rows, nil
}

// Layout configures the built-in parsers.
type Layout struct {
	SpreadsheetColumns []string // column letters, one per model.Columns entry
	FixedWidthOffsets  []int    // len(model.Columns)+1 character offsets
}

// DefaultRegistry returns a registry with the spreadsheet and fixed-width parsers.
func DefaultRegistry(layout Layout) (*Registry, error) {
	sp, err := NewSpreadsheetParser(layout.SpreadsheetColumns)
	if err != nil {
		return nil, err
	}
	fw, err := NewFixedWidthParser(layout.FixedWidthOffsets)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	r.Register(sp)
	r.Register(fw)
	return r, nil
}

// dataExtensions are the file types Scan picks up.
var dataExtensions = map[string]bool{
	".xls":  true,
	".xlsx": true,
	".txt":  true,
}

// IsDataFile reports whether name has an export file extension.
func IsDataFile(name string) bool {
	return dataExtensions[strings.ToLower(filepath.Ext(name))]
}

// Scan returns the export files directly inside dir, sorted by name.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading data dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !IsDataFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
