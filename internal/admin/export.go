package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/okian/housecup/internal/adapters/repository"
	"github.com/okian/housecup/internal/adapters/store"
)

// Dump is the export file layout: raw documents keyed by collection name.
type Dump struct {
	ExportedAt  time.Time                   `json:"exportedAt"`
	Collections map[string][]store.Document `json:"collections"`
}

// Collect reads every collection in its display order.
func Collect(ctx context.Context, st store.Store, now time.Time) (Dump, error) {
	dump := Dump{ExportedAt: now.UTC(), Collections: make(map[string][]store.Document, len(repository.Collections))}
	for _, c := range repository.Collections {
		docs, err := st.ReadAll(ctx, c.Name, c.Order)
		if err != nil {
			return Dump{}, fmt.Errorf("export %s: %w", c.Name, err)
		}
		if docs == nil {
			docs = []store.Document{}
		}
		dump.Collections[c.Name] = docs
	}
	return dump, nil
}

// Export writes every collection as indented JSON to path. The file is
// replaced atomically so readers never see a partial export.
func Export(ctx context.Context, st store.Store, path string) (Dump, error) {
	dump, err := Collect(ctx, st, time.Now())
	if err != nil {
		return Dump{}, err
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return Dump{}, fmt.Errorf("encode export: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return Dump{}, fmt.Errorf("write %s: %w", path, err)
	}
	// atomic.WriteFile leaves new files with the temp file mode.
	if err := os.Chmod(path, 0o644); err != nil {
		return Dump{}, fmt.Errorf("chmod %s: %w", path, err)
	}
	return dump, nil
}
