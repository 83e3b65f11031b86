package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Open returns the backend named by kind. Persistent backends live under dir.
func Open(kind, dir string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return NewMemDB(), nil
	case "leveldb":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		return NewLevelDB(filepath.Join(dir, "ledger"))
	case "bolt":
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
		return NewBoltDB(filepath.Join(dir, "ledger.bolt"))
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", kind)
	}
}
