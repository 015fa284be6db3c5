package gate

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/HendryAvila/sdd-engine/internal/jsonfile"
	"github.com/HendryAvila/sdd-engine/internal/sdderr"
)

var gateIDRe = regexp.MustCompile(`^GATE-\d+-[0-9a-f]{8}$`)

// ValidateID checks the GATE-<millis>-<hex> shape.
func ValidateID(id string) error {
	if !gateIDRe.MatchString(id) {
		return sdderr.Invalid("malformed gate id %q", id)
	}
	return nil
}

// Store persists gate records.
type Store interface {
	// Load returns nil when the gate does not exist.
	Load(id string) (*Gate, error)
	Save(g *Gate) error
	List() ([]*Gate, error)
}

// FileStore keeps one JSON document per gate: <dir>/<id>.json.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Load reads one gate. Corrupt records are logged and treated as missing.
func (s *FileStore) Load(id string) (*Gate, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var g Gate
	found, err := jsonfile.Read(s.path(id), &g)
	if err != nil {
		if jsonfile.IsCorrupt(err) {
			s.logger.Warn("ignoring corrupt gate record", "gate", id, "error", err)
			return nil, nil
		}
		return nil, sdderr.Persistence("loading gate", err)
	}
	if !found {
		return nil, nil
	}
	return &g, nil
}

// Save writes the gate atomically.
func (s *FileStore) Save(g *Gate) error {
	if err := ValidateID(g.ID); err != nil {
		return err
	}
	return sdderr.Persistence("saving gate", jsonfile.Write(s.path(g.ID), g))
}

// List returns every readable gate ordered by trigger time, then id.
func (s *FileStore) List() ([]*Gate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, sdderr.Persistence("listing gates", err)
	}
	var gates []*Gate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if ValidateID(id) != nil {
			continue
		}
		g, err := s.Load(id)
		if err != nil {
			return nil, fmt.Errorf("listing gates: %w", err)
		}
		if g != nil {
			gates = append(gates, g)
		}
	}
	sortGates(gates)
	return gates, nil
}

func sortGates(gates []*Gate) {
	sort.SliceStable(gates, func(i, j int) bool {
		if !gates[i].TriggeredAt.Equal(gates[j].TriggeredAt) {
			return gates[i].TriggeredAt.Before(gates[j].TriggeredAt)
		}
		return gates[i].ID < gates[j].ID
	})
}
