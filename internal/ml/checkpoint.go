package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	checkpointSuffix = "_player_performance_net.json"
	latestCheckpoint = "player_performance_net.json"

	// UntrainedVersion labels the seeded placeholder model.
	UntrainedVersion = "untrained"
)

type checkpointFile struct {
	Version string         `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	Layers  []LayerWeights `json:"layers"`
}

// NewVersion returns a model version label for t, e.g. v_20240301_153000.
func NewVersion(t time.Time) string {
	return "v_" + t.UTC().Format("20060102_150405")
}

// SaveCheckpoint writes the model under its version name and as the latest
// checkpoint. Files are written to a temp name first and renamed.
func SaveCheckpoint(dir string, m *Model) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.Marshal(checkpointFile{
		Version: m.Version,
		SavedAt: time.Now().UTC(),
		Layers:  m.Network.export(),
	})
	if err != nil {
		return err
	}
	for _, name := range []string{m.Version + checkpointSuffix, latestCheckpoint} {
		if err := writeAtomic(filepath.Join(dir, name), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadLatest reads the latest checkpoint from dir. It returns an error
// wrapping os.ErrNotExist when none has been saved yet.
func LoadLatest(dir string) (*Model, error) {
	return LoadCheckpoint(filepath.Join(dir, latestCheckpoint))
}

func LoadCheckpoint(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf checkpointFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	n, err := networkFromWeights(cf.Layers)
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", path, err)
	}
	return &Model{Version: cf.Version, Network: n}, nil
}

// LoadOrInit returns the latest checkpoint in dir or, when there is none, a
// seeded untrained model.
func LoadOrInit(dir string, seed int64) (*Model, error) {
	m, err := LoadLatest(dir)
	if err == nil {
		return m, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return &Model{Version: UntrainedVersion, Network: NewNetwork(seed)}, nil
	}
	return nil, err
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
