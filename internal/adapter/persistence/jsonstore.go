// Package persistence implements the JSON-file entity writer spec §6
// requires: one file per entity kind, written via
// write-temp-then-rename, with up to five timestamped backups of the
// previous file retained. Writes are wrapped in a sony/gobreaker
// circuit breaker (SPEC_FULL.md DOMAIN STACK) so repeated disk
// failures open the breaker and skip further flush attempts instead
// of blocking the scheduler or a connection worker (spec §7:
// "persistence errors do not abort an in-memory transition").
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/evstation/charge-station/internal/observability/telemetry"
	"github.com/evstation/charge-station/internal/ports"
)

const maxBackups = 5

// JSONWriter implements ports.EntityWriter against a directory of
// "<name>.json" files.
type JSONWriter struct {
	dir     string
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

func NewJSONWriter(dir string, log *zap.Logger) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create persistence dir: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "entity-writer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("persistence circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &JSONWriter{dir: dir, breaker: cb, log: log}, nil
}

var _ ports.EntityWriter = (*JSONWriter)(nil)

// ToInterfaceMap adapts a typed store.Store snapshot to the
// map[string]interface{} shape ports.EntityWriter.Flush expects.
func ToInterfaceMap[T any](rows map[string]T) map[string]interface{} {
	out := make(map[string]interface{}, len(rows))
	for k, v := range rows {
		out[k] = v
	}
	return out
}

// Flush persists rows for entity kind name. It backs up the previous
// file (if any) before replacing it, keeping at most maxBackups
// timestamped copies, and writes the new content to a temp file in
// the same directory before renaming it into place so a reader never
// observes a partially-written file.
func (w *JSONWriter) Flush(name string, rows map[string]interface{}) error {
	start := time.Now()
	_, err := w.breaker.Execute(func() (interface{}, error) {
		return nil, w.flushOnce(name, rows)
	})
	telemetry.PersistenceLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		w.log.Warn("entity flush failed", zap.String("table", name), zap.Error(err))
	}
	return err
}

func (w *JSONWriter) flushOnce(name string, rows map[string]interface{}) error {
	target := filepath.Join(w.dir, name+".json")

	if _, err := os.Stat(target); err == nil {
		if err := w.backup(name, target); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file for %s: %w", name, err)
	}
	return nil
}

// backup copies the existing target file to a timestamped sibling and
// prunes all but the maxBackups most recent backups for this name.
func (w *JSONWriter) backup(name, target string) error {
	data, err := os.ReadFile(target)
	if err != nil {
		return err
	}

	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	backupPath := filepath.Join(w.dir, fmt.Sprintf("%s.%s.bak", name, stamp))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return err
	}

	return w.pruneBackups(name)
}

func (w *JSONWriter) pruneBackups(name string) error {
	matches, err := filepath.Glob(filepath.Join(w.dir, name+".*.bak"))
	if err != nil {
		return err
	}
	if len(matches) <= maxBackups {
		return nil
	}

	sort.Strings(matches)
	excess := matches[:len(matches)-maxBackups]
	for _, path := range excess {
		if err := os.Remove(path); err != nil {
			w.log.Warn("failed to prune old backup", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}
