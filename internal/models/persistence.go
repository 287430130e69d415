package models

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultSaveDir is where game records go when no directory is configured.
const DefaultSaveDir = ".saves"

// Save writes the record to <dir>/<name>/record.yaml and the final state
// to <dir>/<name>/state.yaml.
func (r *GameRecord) Save(dir, name string) error {
	dir = filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	recordData, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "record.yaml"), recordData, 0644); err != nil {
		return err
	}

	stateData, err := yaml.Marshal(r.Final)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "state.yaml"), stateData, 0644); err != nil {
		return err
	}

	return nil
}

func LoadRecord(dir, name string) (*GameRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, name, "record.yaml"))
	if err != nil {
		return nil, err
	}
	var record GameRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func ListRecords(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var records []string
	for _, entry := range entries {
		if entry.IsDir() {
			// record.yaml marks a complete save
			recordPath := filepath.Join(dir, entry.Name(), "record.yaml")
			if _, err := os.Stat(recordPath); err == nil {
				records = append(records, entry.Name())
			}
		}
	}
	sort.Strings(records)
	return records, nil
}
