package store

import "time"

type User struct {
	ID                    string
	Email                 string
	PasswordHash          string
	CompanyName           string
	BrandColor            string
	LogoURL               string
	Industry              string
	Role                  string
	OneDriveReportURL     string
	OneDriveAssetsURL     string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CalendarItem is one scheduled content unit. Date is kept as the opaque
// string the sheet supplied; ordering over it is lexical.
type CalendarItem struct {
	ID           string
	UserID       string
	Date         string
	Day          string
	Platform     []string
	Type         string
	TeamStatus   string
	ClientStatus string
	IsNew        bool
	Hook         string
	Copy         string
	KPI          string
	ImagePrompt1 string
	ImagePrompt2 string
	Comments     []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CalendarItemUpdate is a partial update; nil fields are left untouched.
type CalendarItemUpdate struct {
	Date         *string
	Day          *string
	Platform     *[]string
	Type         *string
	TeamStatus   *string
	ClientStatus *string
	IsNew        *bool
	Hook         *string
	Copy         *string
	KPI          *string
	ImagePrompt1 *string
	ImagePrompt2 *string
	Comments     *[]string
}

// ClientStats is the per-client aggregate row the admin dashboard renders.
// Completed means ready-post on the team axis and approved on the client axis.
type ClientStats struct {
	UserID         string
	CompanyName    string
	Email          string
	TotalItems     int
	CompletedItems int
	LastActivity   time.Time
}

type ProfileUpdate struct {
	CompanyName       *string
	BrandColor        *string
	LogoURL           *string
	Industry          *string
	OneDriveReportURL *string
	OneDriveAssetsURL *string
}
