package rules

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// defaultGADimensions is the compiled-in set of GA dimension literals.
// Rule libraries may extend it via ga_dimensions.yaml.
var defaultGADimensions = []string{
	"ga:date",
	"ga:country",
	"ga:city",
	"ga:source",
	"ga:medium",
	"ga:channelGrouping",
	"ga:deviceCategory",
	"ga:userType",
}

// Library holds the loaded rule set. Rules are immutable; Reload swaps
// the whole set atomically so in-flight generations keep the snapshot
// they started with.
type Library struct {
	mu    sync.RWMutex
	dir   string
	rules []*Rule
	ga    map[string]struct{}

	logger *slog.Logger
}

// Open loads the rule library from dir.
func Open(dir string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Library{dir: dir, logger: logger}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewStatic creates a library from an already-built rule set, bypassing
// the filesystem. Used by tests and embedders.
func NewStatic(rules []*Rule) *Library {
	l := &Library{
		rules:  rules,
		ga:     gaSet(nil),
		logger: slog.New(slog.DiscardHandler),
	}
	return l
}

// Reload re-reads the rule directory and swaps the rule set.
func (l *Library) Reload() error {
	rules, gaDims, err := LoadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	l.mu.Lock()
	l.rules = rules
	l.ga = gaSet(gaDims)
	l.mu.Unlock()

	l.logger.Debug("rule library loaded", "dir", l.dir, "rules", len(rules))
	return nil
}

func gaSet(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaultGADimensions)+len(extra))
	for _, d := range defaultGADimensions {
		set[d] = struct{}{}
	}
	for _, d := range extra {
		set[d] = struct{}{}
	}
	return set
}

// Rules returns the current rule set.
func (l *Library) Rules() []*Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rules
}

// Rule returns the rule with the given name.
func (l *Library) Rule(name string) (*Rule, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, r := range l.rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Count returns the number of loaded rules.
func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rules)
}

// IsGADimension reports whether s is a GA dimension literal. GA literals
// in a dimension's field_type match fields by exact internal name instead
// of by semantic type.
func (l *Library) IsGADimension(s string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ga[s]
	return ok
}

// Matching returns the rules whose table type is an ancestor of (or equal
// to) the given entity type, i.e. the rules applicable to a root table of
// that type.
func (l *Library) Matching(types *semtype.Registry, entityType semtype.Type) []*Rule {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matching []*Rule
	for _, r := range l.rules {
		if types.IsA(entityType, r.TableType) {
			matching = append(matching, r)
		}
	}
	return matching
}
