package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries content_calendars using plainto_tsquery and ts_rank, with
// ts_headline for the copy snippet.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	const where = `c.user_id = $2 AND c.fts @@ plainto_tsquery('english', $1)`

	var total int
	countSQL := `SELECT count(*) FROM content_calendars c WHERE ` + where
	if err := p.db.QueryRow(countSQL, q.Text, q.OwnerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT c.id, c.user_id, c.date, c.hook,
			ts_headline('english', coalesce(c.copy, ''), plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			c.team_status, c.client_status
		FROM content_calendars c
		WHERE %s
		ORDER BY ts_rank(c.fts, plainto_tsquery('english', $1)) DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := p.db.Query(dataSQL, q.Text, q.OwnerID)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.Hook, &r.Snippet, &r.TeamStatus, &r.ClientStatus); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgfts iterate: %w", err)
	}
	return results, total, nil
}

// LoadAllItems reads every calendar item for re-indexing into Meilisearch.
func (p *PgFTS) LoadAllItems(ctx context.Context) ([]ItemRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, date, hook, copy, kpi, team_status, client_status
		FROM content_calendars
	`)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	items := make([]ItemRecord, 0)
	for rows.Next() {
		var item ItemRecord
		if err := rows.Scan(&item.ID, &item.UserID, &item.Date, &item.Hook, &item.Copy, &item.KPI, &item.TeamStatus, &item.ClientStatus); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
