package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
)

// Reader loads snapshots from persistent storage. Load returns at most limit
// of the most recent snapshots (all of them when limit <= 0), oldest first.
// Absent or malformed snapshots are skipped, never returned as errors.
type Reader interface {
	Load(ctx context.Context, limit int) ([]Snapshot, error)
}

// Ordered sorts snapshots by timestamp, oldest first, and keeps the newest
// limit of them.
func Ordered(snaps []Snapshot, limit int) []Snapshot {
	out := make([]Snapshot, len(snaps))
	copy(out, snaps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Memory is a Reader over snapshots that are already decoded.
type Memory []Snapshot

func (m Memory) Load(ctx context.Context, limit int) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Ordered(m, limit), nil
}

// LoadFiles decodes each file in paths. Unreadable or malformed files are
// logged and skipped.
func LoadFiles(ctx context.Context, paths []string, logger zerolog.Logger) ([]Snapshot, error) {
	snaps := make([]Snapshot, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("skipping unreadable snapshot file")
			continue
		}
		snap, err := Unmarshal(data)
		if err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("skipping malformed snapshot file")
			continue
		}
		snaps = append(snaps, snap)
	}
	return Ordered(snaps, 0), nil
}

// DirStore reads every *.json file in a directory as one snapshot.
type DirStore struct {
	dir    string
	logger zerolog.Logger
}

func NewDirStore(dir string, logger zerolog.Logger) *DirStore {
	return &DirStore{dir: dir, logger: logger.With().Str("store", "dir").Logger()}
}

func (s *DirStore) Load(ctx context.Context, limit int) ([]Snapshot, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot dir %s: %w", s.dir, err)
	}
	snaps, err := LoadFiles(ctx, paths, s.logger)
	if err != nil {
		return nil, err
	}
	return Ordered(snaps, limit), nil
}
