package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/opsmemory/internal/docstore"
)

// Manager installs and verifies the class set on a store.
type Manager struct {
	store  docstore.Store
	logger *slog.Logger
}

// NewManager creates a Manager. A nil logger uses slog.Default().
func NewManager(store docstore.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}
}

// Declare installs every class in declaration order.
//
// When all entity classes are already declared and force is false, Declare
// does nothing and returns false. A class that already exists counts as
// declared; with force it is redeclared in place. Any other fault aborts the
// remaining declarations and is returned.
func (m *Manager) Declare(ctx context.Context, force bool) (bool, error) {
	if !force {
		declared, err := m.store.DeclaredClasses(ctx)
		if err != nil {
			return false, fmt.Errorf("declare schema: %w", err)
		}
		if containsAll(declared, EntityClassNames) {
			m.logger.Info("schema already installed", "version", Version)
			return false, nil
		}
	}

	classes, err := Classes()
	if err != nil {
		return false, fmt.Errorf("declare schema: %w", err)
	}

	for _, c := range classes {
		err := m.store.DeclareClass(ctx, c, false)
		switch {
		case err == nil:
			m.logger.Info("class declared", "class", c.Name)
		case docstore.IsClassExists(err) && !force:
			m.logger.Debug("class already declared", "class", c.Name)
		case docstore.IsClassExists(err):
			if err := m.store.DeclareClass(ctx, c, true); err != nil {
				return false, fmt.Errorf("declare schema: redeclare %s: %w", c.Name, err)
			}
			m.logger.Info("class redeclared", "class", c.Name)
		default:
			return false, fmt.Errorf("declare schema: %s: %w", c.Name, err)
		}
	}
	return true, nil
}

// Verification is the result of comparing declared classes with the
// expected set.
type Verification struct {
	Valid   bool     `json:"valid"`
	Classes []string `json:"classes"`
	Missing []string `json:"missing"`
	Extra   []string `json:"extra"`
	Version string   `json:"version"`
	Error   string   `json:"error,omitempty"`
}

// Verify reports which expected classes are missing and which declared
// classes are unexpected. Extra classes do not make the schema invalid.
// Verify never fails; a store fault is reported in Error with every expected
// class listed as missing.
func (m *Manager) Verify(ctx context.Context) Verification {
	expected := ExpectedClassNames()

	declared, err := m.store.DeclaredClasses(ctx)
	if err != nil {
		m.logger.Warn("schema verification failed", "error", err)
		return Verification{
			Valid:   false,
			Classes: []string{},
			Missing: expected,
			Extra:   []string{},
			Version: Version,
			Error:   err.Error(),
		}
	}

	declaredSet := make(map[string]bool, len(declared))
	for _, name := range declared {
		declaredSet[name] = true
	}
	expectedSet := make(map[string]bool, len(expected))
	missing := []string{}
	for _, name := range expected {
		expectedSet[name] = true
		if !declaredSet[name] {
			missing = append(missing, name)
		}
	}
	extra := []string{}
	for _, name := range declared {
		if !expectedSet[name] {
			extra = append(extra, name)
		}
	}

	classes := append([]string{}, declared...)
	sort.Strings(classes)
	sort.Strings(extra)

	return Verification{
		Valid:   len(missing) == 0,
		Classes: classes,
		Missing: missing,
		Extra:   extra,
		Version: Version,
	}
}

func containsAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}
