package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Xyntexx/AgOpenGPS/pkg/core"
)

// exportFile is the JSON document written at the end of a run.
type exportFile struct {
	Run     *core.Run         `json:"run"`
	Summary *core.RunSummary  `json:"summary"`
	Ticks   []core.TickRecord `json:"ticks"`
}

// export writes the run to <outputDir>/<name>.<start>.json[.gz].
// Caller must not hold the mutex.
func (b *Backend) export() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return fmt.Errorf("no run to export")
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	name := fmt.Sprintf("%s.%s.json",
		b.run.Name, b.run.StartTime.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	path := filepath.Join(b.cfg.OutputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	doc := exportFile{Run: b.run, Summary: b.summary, Ticks: b.ticks}

	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		if err := json.NewEncoder(gz).Encode(doc); err != nil {
			gz.Close()
			return fmt.Errorf("encoding export: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("closing gzip writer: %w", err)
		}
	} else {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}
	}

	b.exportedPath = path
	return nil
}
