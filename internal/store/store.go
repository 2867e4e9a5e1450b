// Package store persists generated dashboards in SQLite. It implements
// the generator's Renderer interface, so creating a dashboard and
// persisting it are the same step.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapdash/internal/dashgen"
	"github.com/leapstack-labs/leapdash/internal/expander"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Store is a SQLite-backed dashboard store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates an unopened store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the store database and runs pending migrations.
// Use ":memory:" for an in-memory store.
func (s *Store) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open store database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping store database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return err
	}
	return nil
}

// Close closes the store database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Dashboard is a persisted dashboard with its cards.
type Dashboard struct {
	ID          string
	Title       string
	Description string
	RuleName    string
	TableID     int64
	DatabaseID  int64
	CreatedAt   time.Time
	Cards       []*CardRecord
}

// CardRecord is a persisted card instance.
type CardRecord struct {
	ID            string
	CardID        string
	Position      int
	Title         string
	Description   string
	Visualization string // JSON, empty when the card has none
	Query         string // JSON query form
	Score         float64
}

// CreateDashboard persists the dashboard and its cards in one
// transaction and returns the dashboard id.
func (s *Store) CreateDashboard(ctx context.Context, meta dashgen.Meta, cards []*expander.Card) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("store database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO dashboards (id, title, description, rule_name, table_id, database_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, meta.Title, meta.Description, meta.RuleName, meta.TableID, meta.DatabaseID, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert dashboard: %w", err)
	}

	for i, card := range cards {
		queryJSON, err := json.Marshal(card.Query.Form())
		if err != nil {
			return "", fmt.Errorf("failed to marshal card query: %w", err)
		}
		var vizJSON []byte
		if card.Visualization != nil {
			vizJSON, err = json.Marshal(map[string]any{
				"type":     card.Visualization.Type,
				"settings": card.Visualization.Settings,
			})
			if err != nil {
				return "", fmt.Errorf("failed to marshal card visualization: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO dashboard_cards (id, dashboard_id, position, card_id, title, description, visualization, query, score)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), id, i, card.ID, card.Title, card.Description,
			nullableString(vizJSON), string(queryJSON), card.Score,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert dashboard card: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit dashboard: %w", err)
	}

	s.logger.Debug("dashboard saved", "id", id, "cards", len(cards))
	return id, nil
}

// GetDashboard retrieves a dashboard and its cards by id.
func (s *Store) GetDashboard(ctx context.Context, id string) (*Dashboard, error) {
	d := &Dashboard{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, rule_name, table_id, database_id, created_at
		 FROM dashboards WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Title, &d.Description, &d.RuleName, &d.TableID, &d.DatabaseID, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dashboard not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, card_id, position, title, description, visualization, query, score
		 FROM dashboard_cards WHERE dashboard_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		c := &CardRecord{}
		var viz sql.NullString
		if err := rows.Scan(&c.ID, &c.CardID, &c.Position, &c.Title, &c.Description, &viz, &c.Query, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard card: %w", err)
		}
		c.Visualization = viz.String
		d.Cards = append(d.Cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dashboard cards: %w", err)
	}
	return d, nil
}

// ListDashboards returns all dashboards without their cards, newest
// first.
func (s *Store) ListDashboards(ctx context.Context) ([]*Dashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, rule_name, table_id, database_id, created_at
		 FROM dashboards ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dashboards []*Dashboard
	for rows.Next() {
		d := &Dashboard{}
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.RuleName, &d.TableID, &d.DatabaseID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		dashboards = append(dashboards, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dashboards: %w", err)
	}
	return dashboards, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
