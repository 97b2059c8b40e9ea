package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AIAI/extension/pkg/core"
)

// Export is the root JSON structure of a snapshot file
type Export struct {
	ExportedAt time.Time                `json:"exportedAt"`
	Sides      []core.Side              `json:"sides"`
	Records    map[core.Side]SideRecord `json:"records"`
}

// export writes the held records to a (optionally gzipped) JSON file. Callers hold the lock.
func (b *Backend) export() error {
	data := b.buildExport()

	name := "aiai_" + data.ExportedAt.Format("20060102_150405.000")
	if b.cfg.CompressOutput {
		name += ".json.gz"
	} else {
		name += ".json"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, name)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, data)
	} else {
		err = writeJSON(outputPath, data)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() Export {
	out := Export{
		ExportedAt: b.now().UTC(),
		Records:    make(map[core.Side]SideRecord, len(b.sides)),
	}
	for side, r := range b.sides {
		out.Sides = append(out.Sides, side)
		out.Records[side] = *r
	}
	sort.Slice(out.Sides, func(i, j int) bool { return out.Sides[i] < out.Sides[j] })
	return out
}

func writeJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, data Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}

// ReadExport loads a file written by Flush
func ReadExport(path string) (Export, error) {
	var out Export
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	var dec *json.Decoder
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return out, fmt.Errorf("failed to open gzip reader: %w", err)
		}
		defer gz.Close()
		dec = json.NewDecoder(gz)
	} else {
		dec = json.NewDecoder(f)
	}
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return out, nil
}
