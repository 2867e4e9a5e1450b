// Package dashgen orchestrates automatic dashboard generation: it picks
// the most specific applicable rule for a root table, binds the rule
// against the schema, expands every card and hands the highest-scoring
// instances to the dashboard renderer.
package dashgen

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/leapdash/internal/binder"
	"github.com/leapstack-labs/leapdash/internal/catalog"
	"github.com/leapstack-labs/leapdash/internal/expander"
	"github.com/leapstack-labs/leapdash/internal/query"
	"github.com/leapstack-labs/leapdash/internal/rules"
	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// Meta is the dashboard-level presentation metadata handed to the
// renderer.
type Meta struct {
	Title       string
	Description string
	RuleName    string
	TableID     int64
	DatabaseID  int64
}

// Renderer materializes a generated dashboard and returns its handle.
type Renderer interface {
	CreateDashboard(ctx context.Context, meta Meta, cards []*expander.Card) (string, error)
}

// Config holds generator configuration.
type Config struct {
	Catalog  catalog.Catalog
	Library  *rules.Library
	Renderer Renderer
	// Types is the semantic type registry; the built-in lattice is used
	// when nil.
	Types *semtype.Registry
	// Policy filters candidate queries; everything is allowed when nil.
	Policy expander.AccessPolicy
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Generator generates dashboards. Runs for different root tables share
// no mutable state and may proceed concurrently.
type Generator struct {
	catalog  catalog.Catalog
	library  *rules.Library
	renderer Renderer
	types    *semtype.Registry
	policy   expander.AccessPolicy
	logger   *slog.Logger
}

// New creates a generator.
func New(cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	types := cfg.Types
	if types == nil {
		types = semtype.Builtin()
	}
	policy := cfg.Policy
	if policy == nil {
		policy = expander.AllowAll{}
	}
	return &Generator{
		catalog:  cfg.Catalog,
		library:  cfg.Library,
		renderer: cfg.Renderer,
		types:    types,
		policy:   policy,
		logger:   logger,
	}
}

// Generate produces a dashboard for the root table and returns the
// renderer's handle. It returns an empty handle and no error when no
// rule applies or every card came up empty; catalog failures propagate.
func (g *Generator) Generate(ctx context.Context, rootTableID int64, perms expander.Permissions) (string, error) {
	root, err := g.catalog.Table(ctx, rootTableID)
	if err != nil {
		return "", err
	}

	rule, ok := BestRule(g.types, g.library.Rules(), root.EntityType)
	if !ok {
		g.logger.Info("no applicable rule", "table", root.Name, "entity_type", root.EntityType)
		return "", nil
	}
	g.logger.Info("rule selected", "rule", rule.Name, "table", root.Name, "table_type", rule.TableType)

	bctx, err := binder.NewContext(ctx, g.catalog, g.types, g.library.IsGADimension, root, rule)
	if err != nil {
		return "", err
	}

	g.logger.Info("dimensions bound", "bindings", bindingSummary(bctx))
	g.logger.Info("definitions resolved", "metrics", len(bctx.Metrics), "filters", len(bctx.Filters))

	meta := Meta{
		Title:       query.SubstituteString(g.types, query.TemplateText, rule.Title, nil, bctx.EntityLookup()),
		Description: query.SubstituteString(g.types, query.TemplateText, rule.Description, nil, bctx.EntityLookup()),
		RuleName:    rule.Name,
		TableID:     root.ID,
		DatabaseID:  root.DatabaseID,
	}

	cards := g.expandCards(bctx, perms)
	if len(cards) == 0 {
		return "", nil
	}

	return g.renderer.CreateDashboard(ctx, meta, cards)
}

// expandCards expands every card spec and merges groups sharing an
// identifier, keeping the group whose best instance scores higher.
func (g *Generator) expandCards(bctx *binder.Context, perms expander.Permissions) []*expander.Card {
	type group struct {
		id    string
		cards []*expander.Card
	}
	var groups []*group
	byID := make(map[string]*group)

	for _, nc := range bctx.Rule.Cards {
		instances := expander.Expand(bctx, nc.ID, nc.Spec, g.policy, perms)
		if len(instances) == 0 {
			continue
		}
		// Sort explicitly so the merge below compares true best
		// instances rather than trusting expansion order.
		sort.SliceStable(instances, func(i, j int) bool {
			return instances[i].Score > instances[j].Score
		})

		if existing, ok := byID[nc.ID]; ok {
			if instances[0].Score > existing.cards[0].Score {
				existing.cards = instances
			}
			continue
		}
		grp := &group{id: nc.ID, cards: instances}
		byID[nc.ID] = grp
		groups = append(groups, grp)
	}

	var cards []*expander.Card
	for _, grp := range groups {
		cards = append(cards, grp.cards...)
	}
	return cards
}

// BestRule selects the most specific rule applicable to the entity type:
// among rules whose table type is an ancestor of entityType, the one
// with the longest ancestor chain wins, first-seen on ties.
func BestRule(types *semtype.Registry, candidates []*rules.Rule, entityType semtype.Type) (*rules.Rule, bool) {
	var best *rules.Rule
	bestDepth := -1
	for _, r := range candidates {
		if !types.IsA(entityType, r.TableType) {
			continue
		}
		if depth := types.AncestorCount(r.TableType); depth > bestDepth {
			best, bestDepth = r, depth
		}
	}
	return best, best != nil
}

func bindingSummary(bctx *binder.Context) string {
	ids := bctx.Rule.DimensionIDs()
	summary := ""
	for i, id := range ids {
		if i > 0 {
			summary += " "
		}
		summary += fmt.Sprintf("%s=%d", id, len(bctx.Dimensions[id].Matches))
	}
	return summary
}
