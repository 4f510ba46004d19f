package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

// header is the column layout of every monthly export log.
var header = []string{
	"date_added", "fhrs_id", "business_name", "business_type",
	"local_authority", "sector", "postcode",
}

// Log appends new-business rows to per-sector, per-calendar-month CSV
// files under a base directory. Files are created with a header on
// first use; existing rows are never rewritten or deduplicated.
type Log struct {
	dir string
}

// NewLog creates a monthly export log rooted at dir.
func NewLog(dir string) *Log {
	return &Log{dir: dir}
}

// FileName returns the log file name for a sector and month.
// The sector's path-hostile characters are flattened.
func FileName(sector registry.Sector, month time.Time) string {
	label := strings.ReplaceAll(string(sector), "/", "_")

	return fmt.Sprintf("new_businesses_%s_%s.csv", label, month.Format(monthLayout))
}

// Append adds rows to the sector's log for the month containing
// observed. I/O failures are returned to the caller; a run must not be
// considered committed if its export rows could not be written.
func (l *Log) Append(sector registry.Sector, observed time.Time, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	err := os.MkdirAll(l.dir, 0o755)
	if err != nil {
		return fmt.Errorf("create export dir %s: %w", l.dir, err)
	}

	path := filepath.Join(l.dir, FileName(sector, observed))

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open export log %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)

	if writeHeader {
		err = w.Write(header)
		if err != nil {
			return fmt.Errorf("write export header %s: %w", path, err)
		}
	}

	for _, row := range rows {
		err = w.Write([]string{
			row.DateAdded, row.ID, row.Name, row.BusinessType,
			row.Authority, string(row.Sector), row.Postcode,
		})
		if err != nil {
			return fmt.Errorf("write export row %s: %w", path, err)
		}
	}

	w.Flush()

	err = w.Error()
	if err != nil {
		return fmt.Errorf("flush export log %s: %w", path, err)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close export log %s: %w", path, err)
	}

	return nil
}
