package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const calendarColumns = `id, user_id, date, day, platform, type, team_status, client_status, is_new, hook, copy, kpi, image_prompt_1, image_prompt_2, comments, created_at, updated_at`

func scanCalendarItem(row interface{ Scan(...any) error }) (CalendarItem, error) {
	var item CalendarItem
	var platformRaw, commentsRaw []byte
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Date,
		&item.Day,
		&platformRaw,
		&item.Type,
		&item.TeamStatus,
		&item.ClientStatus,
		&item.IsNew,
		&item.Hook,
		&item.Copy,
		&item.KPI,
		&item.ImagePrompt1,
		&item.ImagePrompt2,
		&commentsRaw,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return CalendarItem{}, err
	}
	item.Platform = decodeStrings(platformRaw)
	item.Comments = decodeStrings(commentsRaw)
	return item, nil
}

func encodeStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	encoded, _ := json.Marshal(values)
	return string(encoded)
}

func decodeStrings(raw []byte) []string {
	values := []string{}
	_ = json.Unmarshal(raw, &values)
	return values
}

func (s *PostgresStore) ListCalendarItems(ctx context.Context, userID string) ([]CalendarItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+calendarColumns+`
		FROM content_calendars
		WHERE user_id=$1
		ORDER BY date ASC, created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list calendar items: %w", err)
	}
	defer rows.Close()

	items := make([]CalendarItem, 0)
	for rows.Next() {
		item, err := scanCalendarItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCalendarItem(ctx context.Context, itemID, userID string) (CalendarItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+calendarColumns+`
		FROM content_calendars
		WHERE id=$1 AND user_id=$2
	`, itemID, userID)
	return scanCalendarItem(row)
}

func (s *PostgresStore) InsertCalendarItem(ctx context.Context, item CalendarItem) (CalendarItem, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO content_calendars (id, user_id, date, day, platform, type, team_status, client_status, is_new, hook, copy, kpi, image_prompt_1, image_prompt_2, comments)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::jsonb)
		RETURNING `+calendarColumns+`
	`,
		item.ID, item.UserID, item.Date, item.Day, encodeStrings(item.Platform),
		item.Type, item.TeamStatus, item.ClientStatus, item.IsNew,
		item.Hook, item.Copy, item.KPI, item.ImagePrompt1, item.ImagePrompt2,
		encodeStrings(item.Comments),
	)
	inserted, err := scanCalendarItem(row)
	if err != nil {
		return CalendarItem{}, fmt.Errorf("insert calendar item: %w", err)
	}
	return inserted, nil
}

// UpdateCalendarItem applies the non-nil fields of patch to the row matched by
// id AND owner, stamps updated_at, and returns the updated row. sql.ErrNoRows
// when no row matches.
func (s *PostgresStore) UpdateCalendarItem(ctx context.Context, itemID, userID string, patch CalendarItemUpdate) (CalendarItem, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{itemID, userID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.Date != nil {
		add("date", *patch.Date)
	}
	if patch.Day != nil {
		add("day", *patch.Day)
	}
	if patch.Platform != nil {
		args = append(args, encodeStrings(*patch.Platform))
		sets = append(sets, fmt.Sprintf("platform=$%d::jsonb", len(args)))
	}
	if patch.Type != nil {
		add("type", *patch.Type)
	}
	if patch.TeamStatus != nil {
		add("team_status", *patch.TeamStatus)
	}
	if patch.ClientStatus != nil {
		add("client_status", *patch.ClientStatus)
	}
	if patch.IsNew != nil {
		add("is_new", *patch.IsNew)
	}
	if patch.Hook != nil {
		add("hook", *patch.Hook)
	}
	if patch.Copy != nil {
		add("copy", *patch.Copy)
	}
	if patch.KPI != nil {
		add("kpi", *patch.KPI)
	}
	if patch.ImagePrompt1 != nil {
		add("image_prompt_1", *patch.ImagePrompt1)
	}
	if patch.ImagePrompt2 != nil {
		add("image_prompt_2", *patch.ImagePrompt2)
	}
	if patch.Comments != nil {
		args = append(args, encodeStrings(*patch.Comments))
		sets = append(sets, fmt.Sprintf("comments=$%d::jsonb", len(args)))
	}

	query := `
		UPDATE content_calendars
		SET ` + strings.Join(sets, ", ") + `
		WHERE id=$1 AND user_id=$2
		RETURNING ` + calendarColumns
	row := s.db.QueryRowContext(ctx, query, args...)
	return scanCalendarItem(row)
}

func (s *PostgresStore) DeleteCalendarItem(ctx context.Context, itemID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM content_calendars WHERE id=$1 AND user_id=$2
	`, itemID, userID)
	if err != nil {
		return fmt.Errorf("delete calendar item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete calendar item rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceCalendar removes every item the owner has and inserts the new batch
// in one transaction, so a failed upload never leaves a mix of old and new
// rows. Returns the inserted rows ordered by date ascending.
func (s *PostgresStore) ReplaceCalendar(ctx context.Context, userID string, items []CalendarItem) ([]CalendarItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace calendar: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_calendars WHERE user_id=$1`, userID); err != nil {
		return nil, fmt.Errorf("clear calendar: %w", err)
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_calendars (id, user_id, date, day, platform, type, team_status, client_status, is_new, hook, copy, kpi, image_prompt_1, image_prompt_2, comments)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::jsonb)
		`,
			item.ID, userID, item.Date, item.Day, encodeStrings(item.Platform),
			item.Type, item.TeamStatus, item.ClientStatus, item.IsNew,
			item.Hook, item.Copy, item.KPI, item.ImagePrompt1, item.ImagePrompt2,
			encodeStrings(item.Comments),
		); err != nil {
			return nil, fmt.Errorf("insert calendar row: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+calendarColumns+`
		FROM content_calendars
		WHERE user_id=$1
		ORDER BY date ASC, created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("read replaced calendar: %w", err)
	}
	inserted := make([]CalendarItem, 0, len(items))
	for rows.Next() {
		item, err := scanCalendarItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan replaced calendar: %w", err)
		}
		inserted = append(inserted, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate replaced calendar: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace calendar: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) ListClients(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, company_name, brand_color, logo_url, industry, role, onedrive_report_url, onedrive_assets_url, is_email_verified, created_at, updated_at
		FROM users
		WHERE role='client'
		ORDER BY company_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(
			&user.ID, &user.Email, &user.CompanyName, &user.BrandColor,
			&user.LogoURL, &user.Industry, &user.Role,
			&user.OneDriveReportURL, &user.OneDriveAssetsURL,
			&user.IsEmailVerified, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return users, nil
}

// ClientContentStats aggregates per-client item totals. Last activity falls
// back to account creation for clients with no items.
func (s *PostgresStore) ClientContentStats(ctx context.Context) ([]ClientStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.company_name, u.email,
			COUNT(c.id)::int AS total_items,
			COUNT(c.id) FILTER (WHERE c.team_status='ready-post' AND c.client_status='approved')::int AS completed_items,
			COALESCE(MAX(c.updated_at), u.created_at) AS last_activity
		FROM users u
		LEFT JOIN content_calendars c ON c.user_id = u.id
		WHERE u.role='client'
		GROUP BY u.id, u.company_name, u.email, u.created_at
		ORDER BY u.company_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("client content stats: %w", err)
	}
	defer rows.Close()

	stats := make([]ClientStats, 0)
	for rows.Next() {
		var row ClientStats
		if err := rows.Scan(&row.UserID, &row.CompanyName, &row.Email, &row.TotalItems, &row.CompletedItems, &row.LastActivity); err != nil {
			return nil, fmt.Errorf("scan client stats: %w", err)
		}
		stats = append(stats, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) SummaryCounts(ctx context.Context) (clients int, items int, completed int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role='client'`).Scan(&clients); err != nil {
		err = fmt.Errorf("count clients: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_calendars`).Scan(&items); err != nil {
		err = fmt.Errorf("count calendar items: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content_calendars
		WHERE team_status='ready-post' AND client_status='approved'
	`).Scan(&completed); err != nil {
		err = fmt.Errorf("count completed items: %w", err)
		return
	}
	return
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.email, u.company_name, u.role
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Email, &user.CompanyName, &user.Role)
	if err != nil {
		return User{}, err
	}
	if user.Role == "" {
		user.Role = "client"
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
