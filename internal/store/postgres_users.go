package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const userColumns = `id, email, password_hash, company_name, brand_color, logo_url, industry, role, onedrive_report_url, onedrive_assets_url, is_email_verified, COALESCE(verification_token, ''), verification_expires_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CompanyName,
		&user.BrandColor,
		&user.LogoURL,
		&user.Industry,
		&user.Role,
		&user.OneDriveReportURL,
		&user.OneDriveAssetsURL,
		&user.IsEmailVerified,
		&user.VerificationToken,
		&user.VerificationExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)
	`, email)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id=$1
	`, userID)
	return scanUser(row)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	role := user.Role
	if role == "" {
		role = "client"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, company_name, brand_color, logo_url, industry, role, onedrive_report_url, onedrive_assets_url, is_email_verified, verification_token)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
	`,
		user.ID, user.Email, user.PasswordHash, user.CompanyName, user.BrandColor,
		user.LogoURL, user.Industry, role, user.OneDriveReportURL, user.OneDriveAssetsURL,
		user.IsEmailVerified, user.VerificationToken,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET verification_token=$2, verification_expires_at=$3, updated_at=NOW()
		WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// UpdateUserProfile applies the non-nil fields of the patch and returns the
// updated user. sql.ErrNoRows when the user does not exist.
func (s *PostgresStore) UpdateUserProfile(ctx context.Context, userID string, patch ProfileUpdate) (User, error) {
	sets := []string{"updated_at=NOW()"}
	args := []any{userID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if patch.CompanyName != nil {
		add("company_name", *patch.CompanyName)
	}
	if patch.BrandColor != nil {
		add("brand_color", *patch.BrandColor)
	}
	if patch.LogoURL != nil {
		add("logo_url", *patch.LogoURL)
	}
	if patch.Industry != nil {
		add("industry", *patch.Industry)
	}
	if patch.OneDriveReportURL != nil {
		add("onedrive_report_url", *patch.OneDriveReportURL)
	}
	if patch.OneDriveAssetsURL != nil {
		add("onedrive_assets_url", *patch.OneDriveAssetsURL)
	}

	query := `
		UPDATE users
		SET ` + strings.Join(sets, ", ") + `
		WHERE id=$1
		RETURNING ` + userColumns
	row := s.db.QueryRowContext(ctx, query, args...)
	return scanUser(row)
}
