package tail

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Checkpoint persists a Position to a JSON file so tailing can resume after
// a restart.
type Checkpoint struct {
	path string
}

// NewCheckpoint returns a checkpoint stored at path.
func NewCheckpoint(path string) *Checkpoint {
	return &Checkpoint{path: path}
}

// Path returns the checkpoint file location.
func (c *Checkpoint) Path() string {
	return c.path
}

// Load reads the stored position. A missing file yields the zero Position.
func (c *Checkpoint) Load() (Position, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Position{}, nil
		}
		return Position{}, fmt.Errorf("read checkpoint: %w", err)
	}

	var pos Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return Position{}, fmt.Errorf("parse checkpoint: %w", err)
	}
	if pos.Offset < 0 {
		pos.Offset = 0
	}
	return pos, nil
}

// Save writes pos atomically (temp file + rename).
func (c *Checkpoint) Save(pos Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
