package workflow

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// useClock installs a deterministic clock that advances one second per
// reading, starting at a fixed instant.
func useClock(t *testing.T) {
	t.Helper()
	orig := timeNow
	current := time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
	t.Cleanup(func() { timeNow = orig })
}

func newTestEngine(t *testing.T) (*Engine, *FileStore) {
	t.Helper()
	useClock(t)
	store := NewFileStore(t.TempDir(), nil)
	return NewEngine(store, nil), store
}

func containsStr(s, sub string) bool {
	return strings.Contains(s, sub)
}

// failingStore wraps a Store and fails selected writes on demand.
type failingStore struct {
	Store
	failSave   bool
	failAppend bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) SaveState(s *State) error {
	if f.failSave {
		return errDiskFull
	}
	return f.Store.SaveState(s)
}

func (f *failingStore) AppendMetric(m MetricEntry) error {
	if f.failAppend {
		return errDiskFull
	}
	return f.Store.AppendMetric(m)
}
