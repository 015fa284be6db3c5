package constitution

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/HendryAvila/sdd-engine/internal/jsonfile"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
	"github.com/HendryAvila/sdd-engine/internal/slug"
)

// SchemaVersion is written into every persisted CheckResult.
const SchemaVersion = 1

// CheckResult is the outcome of one run over a set of files.
type CheckResult struct {
	SchemaVersion int          `json:"schemaVersion"`
	Timestamp     time.Time    `json:"timestamp"`
	Files         []FileResult `json:"files"`
	Summary       Summary      `json:"summary"`
}

// FileResult holds the violations for one file. Files without
// violations are kept so the run records what was checked.
type FileResult struct {
	Path       string      `json:"path"`
	Violations []Violation `json:"violations"`
}

// Summary aggregates a CheckResult.
type Summary struct {
	FilesChecked        int               `json:"filesChecked"`
	FilesWithViolations int               `json:"filesWithViolations"`
	TotalViolations     int               `json:"totalViolations"`
	ByArticle           map[ArticleID]int `json:"byArticle"`
	BySeverity          map[Severity]int  `json:"bySeverity"`
}

func newCheckResult(ts time.Time, files []FileResult) *CheckResult {
	sorted := make([]FileResult, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for i := range sorted {
		if sorted[i].Violations == nil {
			sorted[i].Violations = []Violation{}
		}
	}
	return &CheckResult{
		SchemaVersion: SchemaVersion,
		Timestamp:     ts,
		Files:         sorted,
		Summary:       summarize(sorted),
	}
}

func summarize(files []FileResult) Summary {
	s := Summary{
		FilesChecked: len(files),
		ByArticle:    make(map[ArticleID]int),
		BySeverity:   make(map[Severity]int),
	}
	for _, f := range files {
		if len(f.Violations) > 0 {
			s.FilesWithViolations++
		}
		for _, v := range f.Violations {
			s.TotalViolations++
			s.BySeverity[v.Severity]++
			if v.Article != "" {
				s.ByArticle[v.Article]++
			}
		}
	}
	return s
}

// Violations flattens the result in file order.
func (r *CheckResult) Violations() []Violation {
	var out []Violation
	for _, f := range r.Files {
		out = append(out, f.Violations...)
	}
	return out
}

// ViolatedFiles lists files with at least one violation.
func (r *CheckResult) ViolatedFiles() []string {
	var out []string
	for _, f := range r.Files {
		if len(f.Violations) > 0 {
			out = append(out, f.Path)
		}
	}
	return out
}

// Incomplete reports whether any rule or file could not be evaluated.
func (r *CheckResult) Incomplete() bool {
	return r.Summary.BySeverity[SeverityError] > 0
}

// ResultStore persists check results per feature.
type ResultStore interface {
	Save(featureID string, r *CheckResult) error
	// Load returns the most recent result, or nil when none is stored.
	Load(featureID string) (*CheckResult, error)
}

// FileResultStore keeps the latest result per feature as
// <dir>/<feature-slug>.json.
type FileResultStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileResultStore creates a store rooted at dir.
func NewFileResultStore(dir string, logger *slog.Logger) *FileResultStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileResultStore{dir: dir, logger: logger}
}

func (s *FileResultStore) path(featureID string) (string, error) {
	key, err := slug.Key(featureID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Save overwrites the stored result for featureID.
func (s *FileResultStore) Save(featureID string, r *CheckResult) error {
	if r == nil {
		return sdderr.Invalid("check result is required")
	}
	p, err := s.path(featureID)
	if err != nil {
		return err
	}
	return sdderr.Persistence("saving check result", jsonfile.Write(p, r))
}

// Load reads the stored result. A corrupt file is logged and treated as
// missing.
func (s *FileResultStore) Load(featureID string) (*CheckResult, error) {
	p, err := s.path(featureID)
	if err != nil {
		return nil, err
	}
	var r CheckResult
	found, err := jsonfile.Read(p, &r)
	if err != nil {
		if jsonfile.IsCorrupt(err) {
			s.logger.Warn("ignoring corrupt check result", "path", p, "error", err)
			return nil, nil
		}
		return nil, sdderr.Persistence("loading check result", err)
	}
	if !found {
		return nil, nil
	}
	if r.SchemaVersion != SchemaVersion {
		return nil, sdderr.Persistence("loading check result",
			errors.New("unsupported schema version"))
	}
	return &r, nil
}
