package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

// ErrMissingColumn indicates the input CSV lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Required and optional column names in the parsed establishment CSV.
const (
	colID           = "fhrs_id"
	colName         = "business_name"
	colBusinessType = "business_type"
	colAuthority    = "local_authority"
	colPostcode     = "postcode"
)

// CSVSource reads parsed establishment rows from a CSV file, classifies
// each row's business type into a sector, and drops rows outside the
// tracked sector set. Malformed rows are normalized, never fatal: a
// missing id or authority still yields a record (with the empty field),
// matching the engine's tolerance for malformed input.
type CSVSource struct {
	path    string
	tracked registry.SectorSet
}

// NewCSVSource creates a source reading from path, retaining only the
// tracked sectors.
func NewCSVSource(path string, tracked registry.SectorSet) *CSVSource {
	return &CSVSource{path: path, tracked: tracked}
}

// Records implements Source.
func (s *CSVSource) Records(ctx context.Context) ([]registry.Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open records file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}

		return nil, fmt.Errorf("read records header: %w", err)
	}

	columns, err := indexColumns(headerRow)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	var records []registry.Record

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("read records: %w", err)
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read records row: %w", err)
		}

		rec := registry.Record{
			ID:           columns.get(row, colID),
			Name:         columns.get(row, colName),
			BusinessType: columns.get(row, colBusinessType),
			Authority:    columns.get(row, colAuthority),
			Postcode:     columns.get(row, colPostcode),
		}

		rec.Sector = registry.ClassifySector(rec.BusinessType, rec.Name)
		if !s.tracked.Contains(rec.Sector) {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// columnIndex maps column names to their position in the header row.
type columnIndex map[string]int

// indexColumns validates that the required columns are present.
// Optional columns simply read as empty when absent.
func indexColumns(headerRow []string) (columnIndex, error) {
	idx := make(columnIndex, len(headerRow))
	for i, name := range headerRow {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{colID, colBusinessType, colAuthority} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	return idx, nil
}

func (c columnIndex) get(row []string, column string) string {
	i, ok := c[column]
	if !ok || i >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[i])
}
