package workflow

import (
	"log/slog"
	"path/filepath"

	"github.com/HendryAvila/sdd-engine/internal/jsonfile"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

const (
	// StateFile is the filename of the live workflow state.
	StateFile = "workflow-state.json"
	// MetricsFile is the filename of the metrics log.
	MetricsFile = "metrics.json"
)

// Store defines the persistence interface for workflow state and the
// metrics log. Each call is single-shot; serializing concurrent writers
// is the caller's job.
type Store interface {
	// LoadState returns nil (not an error) when no state exists or the
	// stored document is unreadable.
	LoadState() (*State, error)
	SaveState(state *State) error
	// LoadMetrics returns the log in append order; missing means empty.
	LoadMetrics() ([]MetricEntry, error)
	AppendMetric(entry MetricEntry) error
}

// FileStore implements Store with two JSON documents under one directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a filesystem-backed store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}
}

// Dir returns the directory holding the state files.
func (fs *FileStore) Dir() string { return fs.dir }

func (fs *FileStore) statePath() string   { return filepath.Join(fs.dir, StateFile) }
func (fs *FileStore) metricsPath() string { return filepath.Join(fs.dir, MetricsFile) }

// LoadState reads the workflow state document.
func (fs *FileStore) LoadState() (*State, error) {
	var state State
	found, err := jsonfile.Read(fs.statePath(), &state)
	if err != nil {
		if jsonfile.IsCorrupt(err) {
			fs.logger.Warn("workflow state unreadable, treating as missing",
				slog.String("path", fs.statePath()), slog.String("error", err.Error()))
			return nil, nil
		}
		return nil, sdderr.Persistence("loading workflow state", err)
	}
	if !found {
		return nil, nil
	}
	if state.Stages == nil {
		state.Stages = make(map[Stage]*StageRecord)
	}
	return &state, nil
}

// SaveState atomically replaces the workflow state document.
func (fs *FileStore) SaveState(state *State) error {
	return sdderr.Persistence("saving workflow state", jsonfile.Write(fs.statePath(), state))
}

// LoadMetrics reads the metrics log.
func (fs *FileStore) LoadMetrics() ([]MetricEntry, error) {
	var entries []MetricEntry
	found, err := jsonfile.Read(fs.metricsPath(), &entries)
	if err != nil {
		if jsonfile.IsCorrupt(err) {
			fs.logger.Warn("metrics log unreadable, treating as empty",
				slog.String("path", fs.metricsPath()), slog.String("error", err.Error()))
			return nil, nil
		}
		return nil, sdderr.Persistence("loading metrics", err)
	}
	if !found {
		return nil, nil
	}
	return entries, nil
}

// AppendMetric adds one entry to the end of the metrics log.
func (fs *FileStore) AppendMetric(entry MetricEntry) error {
	entries, err := fs.LoadMetrics()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	return sdderr.Persistence("appending metric", jsonfile.Write(fs.metricsPath(), entries))
}
