// Package files dumps a run into a dated directory: the records as CSV, the
// aggregate log as JSON and a copy of the configuration used.
package files

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jobharvest/rod-jobs/internal/filter"
	"github.com/jobharvest/rod-jobs/internal/job"
)

// utf8BOM lets spreadsheet tools detect the encoding of the CSV.
const utf8BOM = "\xEF\xBB\xBF"

type Dump struct {
	Dir    string
	Search string
}

// NewDump returns a dump under root/<MMDD> for search.
func NewDump(root, search string, now time.Time) *Dump {
	return &Dump{Dir: filepath.Join(root, now.Format("0102")), Search: search}
}

func (d *Dump) path(suffix string) string {
	return filepath.Join(d.Dir, d.Search+suffix)
}

func (d *Dump) create(suffix string) (*os.File, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dump directory: %w", err)
	}
	return os.Create(d.path(suffix))
}

// WriteRecords writes one row per record under the site's column labels.
func (d *Dump) WriteRecords(records []*job.Record) (string, error) {
	f, err := d.create(".csv")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return "", err
	}
	w := csv.NewWriter(f)
	if err := w.Write(job.Header()); err != nil {
		return "", err
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return f.Name(), f.Close()
}

// WriteLog writes the aggregate counts as indented JSON.
func (d *Dump) WriteLog(log filter.AggregateLog) (string, error) {
	f, err := d.create("_log.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	if err := enc.Encode(log); err != nil {
		return "", err
	}
	return f.Name(), f.Close()
}

// CopyConfig keeps the configuration file next to the data it produced.
func (d *Dump) CopyConfig(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := d.create("_config" + filepath.Ext(src))
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return out.Name(), out.Close()
}
