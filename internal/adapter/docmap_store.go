package adapter

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	m "pyshrink.dev/pkg/pyshrink/internal/model"
)

// DocMapStore persists captured docstrings alongside compressed output so
// the removal stays reversible.
type DocMapStore interface {
	SaveRecords(path m.Path, records []m.DocRecord) error
}

// JSONLDocMapStore writes one JSON object per line, the usual shape for
// dataset tooling.
type JSONLDocMapStore struct{}

// NewJSONLDocMapStore constructs a JSONL-backed store.
func NewJSONLDocMapStore() *JSONLDocMapStore {
	return &JSONLDocMapStore{}
}

// SaveRecords writes records to path, one per line, sorted by unit then owner.
func (s *JSONLDocMapStore) SaveRecords(path m.Path, records []m.DocRecord) error {
	f, err := os.Create(string(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	if err := writeJSONL(f, records); err != nil {
		return err
	}

	return f.Close()
}

func writeJSONL(w io.Writer, records []m.DocRecord) error {
	enc := json.NewEncoder(w)

	for _, rec := range sortedRecords(records) {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}

	return nil
}

// YAMLDocMapStore writes the records as a YAML sequence, for hand editing.
type YAMLDocMapStore struct{}

// NewYAMLDocMapStore constructs a YAML-backed store.
func NewYAMLDocMapStore() *YAMLDocMapStore {
	return &YAMLDocMapStore{}
}

// SaveRecords writes records to path as one YAML document.
func (s *YAMLDocMapStore) SaveRecords(path m.Path, records []m.DocRecord) error {
	data, err := yaml.Marshal(sortedRecords(records))
	if err != nil {
		return err
	}

	return os.WriteFile(string(path), data, 0o644)
}

// NewDocMapStoreFor picks a store by the target file's extension: .yaml and
// .yml get the YAML store, anything else JSONL.
func NewDocMapStoreFor(path m.Path) DocMapStore {
	switch filepath.Ext(string(path)) {
	case ".yaml", ".yml":
		return NewYAMLDocMapStore()
	default:
		return NewJSONLDocMapStore()
	}
}

// sortedRecords returns a stable copy so output does not depend on map
// iteration order upstream.
func sortedRecords(records []m.DocRecord) []m.DocRecord {
	out := make([]m.DocRecord, len(records))
	copy(out, records)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Unit != out[j].Unit {
			return out[i].Unit < out[j].Unit
		}

		return out[i].Owner < out[j].Owner
	})

	return out
}
