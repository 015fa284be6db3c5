package constitution

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/sdd-engine/internal/sdderr"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

var timeNow = func() time.Time { return time.Now().UTC() }

// DefaultWorkers bounds concurrent file checks.
const DefaultWorkers = 4

// ScanOptions select the files CheckDirectory visits.
type ScanOptions struct {
	// Extensions are matched case-insensitively, with the leading dot.
	Extensions []string
	// Exclude holds directory or file names and doublestar patterns
	// matched against slash-separated paths relative to the root.
	Exclude []string
}

// DefaultScanOptions cover JS/TS, Go and Python sources.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".go", ".py"},
		Exclude:    []string{"node_modules", ".git", "vendor", "dist", "build", "coverage"},
	}
}

// Checker runs a RuleSet over files on disk.
type Checker struct {
	rules    *RuleSet
	logger   *slog.Logger
	workers  int
	store    ResultStore
	readFile func(string) ([]byte, error)
	exists   func(string) bool
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithRuleSet replaces the default nine-article rule set.
func WithRuleSet(rs *RuleSet) CheckerOption {
	return func(c *Checker) { c.rules = rs }
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(l *slog.Logger) CheckerOption {
	return func(c *Checker) { c.logger = l }
}

// WithWorkers bounds concurrency; values below 1 mean DefaultWorkers.
func WithWorkers(n int) CheckerOption {
	return func(c *Checker) { c.workers = n }
}

// WithResultStore sets where SaveResults and LoadResults persist runs.
func WithResultStore(s ResultStore) CheckerOption {
	return func(c *Checker) { c.store = s }
}

// NewChecker creates a Checker using the default rule set.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		rules:    DefaultRuleSet(),
		logger:   slog.Default(),
		workers:  DefaultWorkers,
		readFile: os.ReadFile,
		exists:   isRegularFile,
	}
	for _, o := range opts {
		o(c)
	}
	if c.workers < 1 {
		c.workers = DefaultWorkers
	}
	return c
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CheckSource evaluates content as if it were stored at path.
func (c *Checker) CheckSource(path, content string) []Violation {
	return c.rules.Evaluate(NewSourceFile(path, content, c.exists))
}

// CheckFile reads and evaluates a single file.
func (c *Checker) CheckFile(path string) ([]Violation, error) {
	data, err := c.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return c.CheckSource(path, string(data)), nil
}

// CheckFiles evaluates paths concurrently. Unreadable files become
// error-severity entries instead of failing the run. Only context
// cancellation returns an error.
func (c *Checker) CheckFiles(ctx context.Context, paths []string) (*CheckResult, error) {
	paths = uniquePaths(paths)
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.checkOne(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := newCheckResult(timeNow(), results)
	c.logger.Info("constitution check finished",
		"files", res.Summary.FilesChecked,
		"violations", res.Summary.TotalViolations,
		"files_with_violations", res.Summary.FilesWithViolations,
	)
	return res, nil
}

func (c *Checker) checkOne(path string) FileResult {
	vs, err := c.CheckFile(path)
	if err != nil {
		c.logger.Warn("constitution check could not read file", "path", path, "error", err)
		return FileResult{Path: path, Violations: []Violation{{
			File:     path,
			Message:  err.Error(),
			Severity: SeverityError,
			Metadata: map[string]string{"rule": "read"},
		}}}
	}
	c.logger.Debug("constitution check", "path", path, "violations", len(vs))
	return FileResult{Path: path, Violations: vs}
}

// CheckDirectory walks root, keeping files whose extension is listed and
// whose path is not excluded, then checks them like CheckFiles.
func (c *Checker) CheckDirectory(ctx context.Context, root string, opts ScanOptions) (*CheckResult, error) {
	paths, err := CollectFiles(root, opts)
	if err != nil {
		return nil, err
	}
	return c.CheckFiles(ctx, paths)
}

// CollectFiles lists the files under root selected by opts, in walk order.
func CollectFiles(root string, opts ScanOptions) ([]string, error) {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if excluded(filepath.ToSlash(rel), d.Name(), opts.Exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if len(exts) > 0 && !exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return paths, nil
}

func excluded(rel, name string, patterns []string) bool {
	for _, p := range patterns {
		if p == name || p == rel {
			return true
		}
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SaveResults persists r under featureID.
func (c *Checker) SaveResults(featureID string, r *CheckResult) error {
	if c.store == nil {
		return sdderr.Invalid("no result store configured")
	}
	if err := c.store.Save(featureID, r); err != nil {
		return err
	}
	c.logger.Info("saved constitution check", "feature", featureID, "violations", r.Summary.TotalViolations)
	return nil
}

// LoadResults returns the latest stored result for featureID, or nil.
func (c *Checker) LoadResults(featureID string) (*CheckResult, error) {
	if c.store == nil {
		return nil, sdderr.Invalid("no result store configured")
	}
	return c.store.Load(featureID)
}
