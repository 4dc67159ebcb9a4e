package taskmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a TaskMap.
type document struct {
	Mappings map[string]string `json:"mappings" yaml:"mappings"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a TaskMap from path. A missing file yields an empty map.
// Every pair is re-inserted through MapIDs, so a file that breaks the
// one-to-one invariant is rejected.
func Load(path string) (*TaskMap, error) {
	m := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("failed to read task map %s: %w", path, err)
	}

	var doc document
	if isYAML(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode task map %s: %w", path, err)
	}

	for src, dst := range doc.Mappings {
		if err := m.MapIDs(src, dst); err != nil {
			return nil, fmt.Errorf("corrupt task map %s: %w", path, err)
		}
	}
	m.dirty = false
	return m, nil
}

// Save writes m to path through a temp file and rename. It does nothing
// when m is unchanged and the file already exists.
func Save(path string, m *TaskMap) error {
	if !m.dirty {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create task map directory: %w", err)
	}

	doc := document{Mappings: m.Pairs()}
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode task map: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write task map: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename task map: %w", err)
	}

	m.dirty = false
	return nil
}
