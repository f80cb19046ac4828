package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"contentcal/api/internal/auth"
	"contentcal/api/internal/authpw"
	"contentcal/api/internal/config"
	"contentcal/api/internal/csvio"
	"contentcal/api/internal/email"
	"contentcal/api/internal/export"
	"contentcal/api/internal/genai"
	"contentcal/api/internal/rbac"
	"contentcal/api/internal/search"
	"contentcal/api/internal/snapshot"
	"contentcal/api/internal/store"
	"contentcal/api/internal/util"
	"contentcal/api/internal/workflow"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	CompanyName  string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

// ItemInput is the request body for creating a calendar item.
type ItemInput struct {
	Date         string   `json:"date"`
	Day          string   `json:"day"`
	Platform     []string `json:"platform"`
	Type         string   `json:"type"`
	TeamStatus   string   `json:"teamStatus"`
	ClientStatus string   `json:"clientStatus"`
	Hook         string   `json:"hook"`
	Copy         string   `json:"copy"`
	KPI          string   `json:"kpi"`
	ImagePrompt1 string   `json:"imagePrompt1"`
	ImagePrompt2 string   `json:"imagePrompt2"`
	Comments     []string `json:"comments"`
}

// ItemPatch is the request body for a partial update; nil fields untouched.
type ItemPatch struct {
	Date         *string   `json:"date"`
	Day          *string   `json:"day"`
	Platform     *[]string `json:"platform"`
	Type         *string   `json:"type"`
	TeamStatus   *string   `json:"teamStatus"`
	ClientStatus *string   `json:"clientStatus"`
	IsNew        *bool     `json:"isNew"`
	Hook         *string   `json:"hook"`
	Copy         *string   `json:"copy"`
	KPI          *string   `json:"kpi"`
	ImagePrompt1 *string   `json:"imagePrompt1"`
	ImagePrompt2 *string   `json:"imagePrompt2"`
	Comments     *[]string `json:"comments"`
}

type dataStore interface {
	ListCalendarItems(context.Context, string) ([]store.CalendarItem, error)
	GetCalendarItem(context.Context, string, string) (store.CalendarItem, error)
	InsertCalendarItem(context.Context, store.CalendarItem) (store.CalendarItem, error)
	UpdateCalendarItem(context.Context, string, string, store.CalendarItemUpdate) (store.CalendarItem, error)
	DeleteCalendarItem(context.Context, string, string) error
	ReplaceCalendar(context.Context, string, []store.CalendarItem) ([]store.CalendarItem, error)
	GetUserByID(context.Context, string) (store.User, error)
	ListClients(context.Context) ([]store.User, error)
	ClientContentStats(context.Context) ([]store.ClientStats, error)
	SummaryCounts(context.Context) (int, int, int, error)
	UpdateUserProfile(context.Context, string, store.ProfileUpdate) (store.User, error)
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	Ping(ctx context.Context) error
}

// refreshStore holds refresh tokens; Redis in production, the Postgres store
// when Redis is not configured.
type refreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexItems(items []search.ItemRecord)
	DeleteItem(id string)
	ReplaceOwner(userID string, items []search.ItemRecord)
}

type archiveService interface {
	Record(clientID, csvText, author, message string) (snapshot.Snapshot, error)
	History(clientID string, limit int) ([]snapshot.Snapshot, error)
	ContentAt(clientID, hash string) (string, error)
}

type reportService interface {
	StatusReport(user store.User, items []store.CalendarItem) (*export.Result, error)
}

type assetService interface {
	UploadLogo(ctx context.Context, clientID string, reader io.Reader, size int64, contentType string) (string, error)
	UploadGeneratedImage(ctx context.Context, clientID string, reader io.Reader, size int64, contentType string) (string, error)
}

type textGenerator interface {
	Regenerate(ctx context.Context, req genai.RegenerateRequest) (string, error)
}

type imageGenerator interface {
	Generate(ctx context.Context, req genai.ImageRequest) (string, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshStore
	search   searchIndex
	archive  archiveService

	authpw   *authpw.Service
	email    *email.Service
	reports  reportService
	assets   assetService
	textGen  textGenerator
	imageGen imageGenerator

	httpClient *http.Client

	// Serializes bulk replaces per owner so concurrent uploads cannot
	// interleave their delete-then-insert windows.
	bulkMu    sync.Mutex
	bulkLocks map[string]*sync.Mutex
}

func New(cfg config.Config, dataStore *store.PostgresStore, archive *snapshot.Service, searchService *search.Service) *Service {
	return newService(cfg, dataStore, dataStore, archive, searchService)
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions refreshStore, archive *snapshot.Service, searchService *search.Service) *Service {
	return newService(cfg, dataStore, sessions, archive, searchService)
}

func newService(cfg config.Config, dataStore dataStore, sessions refreshStore, archive *snapshot.Service, searchService *search.Service) *Service {
	svc := &Service{
		cfg:        cfg,
		store:      dataStore,
		sessions:   sessions,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		bulkLocks:  make(map[string]*sync.Mutex),
	}
	if archive != nil {
		svc.archive = archive
	}
	if searchService != nil {
		svc.search = searchService
	}
	return svc
}

func (s *Service) SetAuthService(svc *authpw.Service)   { s.authpw = svc }
func (s *Service) SetEmailService(svc *email.Service)   { s.email = svc }
func (s *Service) SetReportService(svc reportService)   { s.reports = svc }
func (s *Service) SetAssetService(svc assetService)     { s.assets = svc }
func (s *Service) SetTextGenerator(svc textGenerator)   { s.textGen = svc }
func (s *Service) SetImageGenerator(svc imageGenerator) { s.imageGen = svc }

func (s *Service) AuthPasswordService() *authpw.Service { return s.authpw }

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// SendVerificationEmail is best effort; a failed send leaves the account
// created and the token valid.
func (s *Service) SendVerificationEmail(to, name, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.BaseURL + "/verify-email?token=" + token
	if err := s.email.SendVerificationEmail(to, name, url); err != nil {
		log.Printf("verification email to %s failed: %v", to, err)
	}
}

func (s *Service) SendPasswordResetEmail(to, name, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := s.cfg.BaseURL + "/reset-password?token=" + token
	if err := s.email.SendPasswordResetEmail(to, name, url); err != nil {
		log.Printf("password reset email to %s failed: %v", to, err)
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- sessions ---

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	partial, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// Redis stores only the user ID; re-read the full row so the new access
	// token carries the current role and company name.
	user, err := s.store.GetUserByID(ctx, partial.ID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:     user.ID,
		Company: user.CompanyName,
		Role:    user.Role,
		JTI:     jti,
		Exp:     expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		CompanyName:  user.CompanyName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:       token,
		UserID:      user.ID,
		CompanyName: user.CompanyName,
		Role:        user.Role,
		JTI:         claims.JTI,
		ExpiresAt:   time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// ResolveOwner decides whose calendar the request operates on. requested is
// the client_id query parameter, empty to act as oneself. When an elevated
// capability targets another owner, the target must exist and hold the client
// role. The decision is made before any persistence call.
func (s *Service) ResolveOwner(ctx context.Context, session Session, requested string) (string, error) {
	capability := rbac.Authorize(session.Role, session.UserID)
	owner, err := capability.ActingOwner(requested)
	if err != nil {
		return "", forbiddenError()
	}
	if owner == "" {
		return session.UserID, nil
	}
	if owner != session.UserID {
		target, err := s.store.GetUserByID(ctx, owner)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", domainError(http.StatusNotFound, "NOT_FOUND", "Client not found", nil)
			}
			return "", err
		}
		if rbac.Normalize(target.Role) != rbac.RoleClient {
			return "", domainError(http.StatusNotFound, "NOT_FOUND", "Client not found", nil)
		}
	}
	return owner, nil
}

// --- calendar ---

func (s *Service) ListCalendar(ctx context.Context, owner string) (map[string]any, error) {
	items, err := s.store.ListCalendarItems(ctx, owner)
	if err != nil {
		return nil, err
	}
	return map[string]any{"items": itemPayloads(items)}, nil
}

func (s *Service) CreateItem(ctx context.Context, owner string, input ItemInput) (map[string]any, error) {
	if strings.TrimSpace(input.Date) == "" {
		return nil, validationError("date is required")
	}
	if strings.TrimSpace(input.Hook) == "" {
		return nil, validationError("hook is required")
	}

	teamStatus, _ := workflow.NormalizeTeamStatus(input.TeamStatus)
	clientStatus, _ := workflow.NormalizeClientStatus(input.ClientStatus)

	item := store.CalendarItem{
		ID:           util.NewID("cal"),
		UserID:       owner,
		Date:         strings.TrimSpace(input.Date),
		Day:          strings.TrimSpace(input.Day),
		Platform:     nonNilStrings(input.Platform),
		Type:         strings.TrimSpace(input.Type),
		TeamStatus:   string(teamStatus),
		ClientStatus: string(clientStatus),
		IsNew:        true,
		Hook:         strings.TrimSpace(input.Hook),
		Copy:         input.Copy,
		KPI:          input.KPI,
		ImagePrompt1: input.ImagePrompt1,
		ImagePrompt2: input.ImagePrompt2,
		Comments:     nonNilStrings(input.Comments),
	}

	inserted, err := s.store.InsertCalendarItem(ctx, item)
	if err != nil {
		return nil, err
	}
	s.indexItems(inserted)
	return map[string]any{"item": itemPayload(inserted)}, nil
}

func (s *Service) UpdateItem(ctx context.Context, owner, itemID string, patch ItemPatch) (map[string]any, error) {
	update := store.CalendarItemUpdate{
		Date:         patch.Date,
		Day:          patch.Day,
		Platform:     patch.Platform,
		Type:         patch.Type,
		IsNew:        patch.IsNew,
		Hook:         patch.Hook,
		Copy:         patch.Copy,
		KPI:          patch.KPI,
		ImagePrompt1: patch.ImagePrompt1,
		ImagePrompt2: patch.ImagePrompt2,
		Comments:     patch.Comments,
	}
	if patch.TeamStatus != nil {
		normalized, _ := workflow.NormalizeTeamStatus(*patch.TeamStatus)
		value := string(normalized)
		update.TeamStatus = &value
	}
	if patch.ClientStatus != nil {
		normalized, _ := workflow.NormalizeClientStatus(*patch.ClientStatus)
		value := string(normalized)
		update.ClientStatus = &value
	}

	updated, err := s.store.UpdateCalendarItem(ctx, itemID, owner, update)
	if err != nil {
		return nil, err
	}
	s.indexItems(updated)
	return map[string]any{"item": itemPayload(updated)}, nil
}

func (s *Service) DeleteItem(ctx context.Context, owner, itemID string) error {
	if err := s.store.DeleteCalendarItem(ctx, itemID, owner); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteItem(itemID)
	}
	return nil
}

// BulkReplace parses a CSV batch and atomically replaces the owner's
// calendar. The normalized CSV is committed to the owner's archive.
func (s *Service) BulkReplace(ctx context.Context, owner, actor, csvText string) (map[string]any, error) {
	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	records, report, err := csvio.Parse(csvText)
	if err != nil {
		if err == csvio.ErrEmptyInput {
			return nil, domainError(http.StatusUnprocessableEntity, "EMPTY_CSV", "CSV input is empty", nil)
		}
		return nil, err
	}

	items := make([]store.CalendarItem, 0, len(records))
	for _, record := range records {
		items = append(items, recordToItem(owner, record))
	}

	inserted, err := s.store.ReplaceCalendar(ctx, owner, items)
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		// The calendar is already replaced at this point; a failed archive
		// commit must not fail the upload.
		message := fmt.Sprintf("Bulk upload: %d rows", len(records))
		if _, err := s.archive.Record(owner, csvio.Write(records), actor, message); err != nil {
			log.Printf("archiving upload for %s failed: %v", owner, err)
		}
	}
	if s.search != nil {
		s.search.ReplaceOwner(owner, toSearchRecords(inserted))
	}

	return map[string]any{
		"submitted": report.Submitted,
		"accepted":  report.Accepted,
		"corrected": report.Corrected,
		"skipped":   report.Skipped,
		"items":     itemPayloads(inserted),
	}, nil
}

// ExportCSV renders the owner's calendar in the canonical sheet layout.
func (s *Service) ExportCSV(ctx context.Context, owner string) (filename, csvText string, err error) {
	user, err := s.store.GetUserByID(ctx, owner)
	if err != nil {
		return "", "", err
	}
	items, err := s.store.ListCalendarItems(ctx, owner)
	if err != nil {
		return "", "", err
	}

	records := make([]csvio.Record, 0, len(items))
	for _, item := range items {
		records = append(records, itemToRecord(item))
	}

	name := strings.ReplaceAll(strings.TrimSpace(user.CompanyName), " ", "-")
	if name == "" {
		name = "calendar"
	}
	return name + "-calendar.csv", csvio.Write(records), nil
}

func (s *Service) StatusReport(ctx context.Context, owner string) (*export.Result, error) {
	if s.reports == nil {
		return nil, unavailableError("report export not configured")
	}
	user, err := s.store.GetUserByID(ctx, owner)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListCalendarItems(ctx, owner)
	if err != nil {
		return nil, err
	}
	result, err := s.reports.StatusReport(user, items)
	if err != nil {
		if err == export.ErrPDFDependencyMissing || strings.Contains(err.Error(), export.ErrPDFDependencyMissing.Error()) {
			return nil, unavailableError("PDF renderer unavailable")
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) UploadHistory(ctx context.Context, owner string, limit int) (map[string]any, error) {
	if s.archive == nil {
		return map[string]any{"snapshots": []any{}}, nil
	}
	snapshots, err := s.archive.History(owner, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"snapshots": snapshots}, nil
}

// ArchivedCSV returns the calendar CSV as it was at an archived upload.
func (s *Service) ArchivedCSV(owner, hash string) (string, error) {
	if s.archive == nil {
		return "", unavailableError("upload archive not configured")
	}
	content, err := s.archive.ContentAt(owner, hash)
	if err != nil {
		return "", err
	}
	return content, nil
}

// --- comments ---

// Comment appends a comment to a calendar item and fans the notification out:
// an admin comment notifies the owning client, a client comment notifies the
// team inbox list.
func (s *Service) Comment(ctx context.Context, session Session, owner, itemID, comment string) (map[string]any, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, validationError("comment is required")
	}

	item, err := s.store.GetCalendarItem(ctx, itemID, owner)
	if err != nil {
		return nil, err
	}

	comments := append(nonNilStrings(item.Comments), comment)
	updated, err := s.store.UpdateCalendarItem(ctx, itemID, owner, store.CalendarItemUpdate{Comments: &comments})
	if err != nil {
		return nil, err
	}
	s.indexItems(updated)

	if err := s.notifyComment(ctx, session, owner, updated, comment); err != nil {
		return nil, err
	}

	return map[string]any{"item": itemPayload(updated)}, nil
}

func (s *Service) notifyComment(ctx context.Context, session Session, owner string, item store.CalendarItem, comment string) error {
	if !s.SMTPConfigured() {
		log.Printf("email not configured, skipping comment notification for item %s", item.ID)
		return nil
	}

	client, err := s.store.GetUserByID(ctx, owner)
	if err != nil {
		return err
	}
	data := email.CommentData{
		Recipient:   client.CompanyName,
		Author:      session.CompanyName,
		CompanyName: client.CompanyName,
		ItemDate:    item.Date,
		ItemHook:    item.Hook,
		Comment:     comment,
		CalendarURL: s.cfg.BaseURL + "/dashboard",
	}

	if rbac.Normalize(session.Role) == rbac.RoleAdmin {
		if err := s.email.SendCommentToClient(client.Email, data); err != nil {
			return upstreamError("comment notification failed")
		}
		return nil
	}
	if err := s.email.SendCommentToTeam(s.cfg.TeamEmails, data); err != nil {
		return upstreamError("comment notification failed")
	}
	return nil
}

// --- admin ---

func (s *Service) AdminClients(ctx context.Context, now time.Time) (map[string]any, error) {
	stats, err := s.store.ClientContentStats(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	accountByID := make(map[string]store.User, len(accounts))
	for _, account := range accounts {
		accountByID[account.ID] = account
	}

	clients := make([]map[string]any, 0, len(stats))
	for _, stat := range stats {
		rate := 0.0
		if stat.TotalItems > 0 {
			rate = float64(stat.CompletedItems) / float64(stat.TotalItems)
		}
		account := accountByID[stat.UserID]
		clients = append(clients, map[string]any{
			"userId":         stat.UserID,
			"companyName":    stat.CompanyName,
			"email":          stat.Email,
			"industry":       account.Industry,
			"brandColor":     account.BrandColor,
			"logoUrl":        account.LogoURL,
			"totalItems":     stat.TotalItems,
			"completedItems": stat.CompletedItems,
			"completionRate": rate,
			"lastActivity":   stat.LastActivity,
			"active":         workflow.IsActive(stat.LastActivity, now),
		})
	}

	totalClients, totalItems, totalCompleted, err := s.store.SummaryCounts(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"clients": clients,
		"totals": map[string]any{
			"clients":   totalClients,
			"items":     totalItems,
			"completed": totalCompleted,
		},
	}, nil
}

// Impersonate issues a session for the target client. The target must exist
// and hold the client role.
func (s *Service) Impersonate(ctx context.Context, session Session, clientID string) (Session, error) {
	if rbac.Normalize(session.Role) != rbac.RoleAdmin {
		return Session{}, forbiddenError()
	}
	target, err := s.store.GetUserByID(ctx, clientID)
	if err != nil {
		return Session{}, err
	}
	if rbac.Normalize(target.Role) != rbac.RoleClient {
		return Session{}, validationError("target is not a client account")
	}
	return s.issueSession(ctx, target)
}

// --- search ---

func (s *Service) Search(ctx context.Context, owner, q string, limit, offset int) (map[string]any, error) {
	if strings.TrimSpace(q) == "" {
		return nil, validationError("q is required")
	}
	if s.search == nil {
		return nil, unavailableError("search not configured")
	}
	response := s.search.Search(search.Query{
		Text:    strings.TrimSpace(q),
		OwnerID: owner,
		Limit:   limit,
		Offset:  offset,
	})
	return map[string]any{
		"results": response.Results,
		"total":   response.Total,
		"query":   response.Query,
	}, nil
}

// --- generation ---

func (s *Service) RegenerateContent(ctx context.Context, req genai.RegenerateRequest) (map[string]any, error) {
	if s.textGen == nil {
		return nil, unavailableError("content generation not configured")
	}
	if strings.TrimSpace(req.CurrentContent) == "" {
		return nil, validationError("currentContent is required")
	}
	text, err := s.textGen.Regenerate(ctx, req)
	if err != nil {
		if err == genai.ErrUnknownContentType || strings.Contains(err.Error(), genai.ErrUnknownContentType.Error()) {
			return nil, validationError("contentType must be hook, caption, or image_prompt")
		}
		return nil, upstreamError("content generation failed")
	}
	return map[string]any{
		"generatedContent": text,
		"contentType":      req.ContentType,
	}, nil
}

// GenerateImage asks the provider for an image and, when object storage is
// configured, copies it there so the URL survives provider expiry.
func (s *Service) GenerateImage(ctx context.Context, owner string, req genai.ImageRequest) (map[string]any, error) {
	if s.imageGen == nil {
		return nil, unavailableError("image generation not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, validationError("prompt is required")
	}

	providerURL, err := s.imageGen.Generate(ctx, req)
	if err != nil {
		return nil, upstreamError("image generation failed")
	}

	imageURL := providerURL
	if s.assets != nil {
		stored, err := s.storeGeneratedImage(ctx, owner, providerURL)
		if err != nil {
			log.Printf("storing generated image failed, returning provider URL: %v", err)
		} else {
			imageURL = stored
		}
	}

	return map[string]any{
		"imageUrl": imageURL,
		"prompt":   req.Prompt,
	}, nil
}

func (s *Service) storeGeneratedImage(ctx context.Context, owner, providerURL string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, providerURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image fetch: %w", err)
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fetch generated image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch generated image: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	return s.assets.UploadGeneratedImage(ctx, owner, resp.Body, resp.ContentLength, contentType)
}

// --- assets / profile ---

func (s *Service) UploadLogo(ctx context.Context, owner string, reader io.Reader, size int64, contentType string) (map[string]any, error) {
	if s.assets == nil {
		return nil, unavailableError("object storage not configured")
	}
	url, err := s.assets.UploadLogo(ctx, owner, reader, size, contentType)
	if err != nil {
		return nil, upstreamError("logo upload failed")
	}
	if _, err := s.store.UpdateUserProfile(ctx, owner, store.ProfileUpdate{LogoURL: &url}); err != nil {
		return nil, err
	}
	return map[string]any{"logoUrl": url}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": userPayload(user)}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, patch store.ProfileUpdate) (map[string]any, error) {
	user, err := s.store.UpdateUserProfile(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": userPayload(user)}, nil
}

// --- helpers ---

func (s *Service) ownerLock(owner string) *sync.Mutex {
	s.bulkMu.Lock()
	defer s.bulkMu.Unlock()
	lock, ok := s.bulkLocks[owner]
	if !ok {
		lock = &sync.Mutex{}
		s.bulkLocks[owner] = lock
	}
	return lock
}

func (s *Service) indexItems(items ...store.CalendarItem) {
	if s.search == nil {
		return
	}
	s.search.IndexItems(toSearchRecords(items))
}

func recordToItem(owner string, record csvio.Record) store.CalendarItem {
	return store.CalendarItem{
		ID:           util.NewID("cal"),
		UserID:       owner,
		Date:         record.Date,
		Day:          record.Day,
		Platform:     record.Platform,
		Type:         record.Type,
		TeamStatus:   string(record.TeamStatus),
		ClientStatus: string(record.ClientStatus),
		IsNew:        record.IsNew,
		Hook:         record.Hook,
		Copy:         record.Copy,
		KPI:          record.KPI,
		ImagePrompt1: record.ImagePrompt1,
		ImagePrompt2: record.ImagePrompt2,
		Comments:     record.Comments,
	}
}

func itemToRecord(item store.CalendarItem) csvio.Record {
	return csvio.Record{
		Date:         item.Date,
		Day:          item.Day,
		Platform:     nonNilStrings(item.Platform),
		Type:         item.Type,
		TeamStatus:   workflow.TeamStatus(item.TeamStatus),
		ClientStatus: workflow.ClientStatus(item.ClientStatus),
		IsNew:        item.IsNew,
		Hook:         item.Hook,
		Copy:         item.Copy,
		KPI:          item.KPI,
		ImagePrompt1: item.ImagePrompt1,
		ImagePrompt2: item.ImagePrompt2,
		Comments:     nonNilStrings(item.Comments),
	}
}

func toSearchRecords(items []store.CalendarItem) []search.ItemRecord {
	records := make([]search.ItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, search.ItemRecord{
			ID:           item.ID,
			UserID:       item.UserID,
			Date:         item.Date,
			Hook:         item.Hook,
			Copy:         item.Copy,
			KPI:          item.KPI,
			TeamStatus:   item.TeamStatus,
			ClientStatus: item.ClientStatus,
		})
	}
	return records
}

func itemPayloads(items []store.CalendarItem) []map[string]any {
	payloads := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, itemPayload(item))
	}
	return payloads
}

func itemPayload(item store.CalendarItem) map[string]any {
	return map[string]any{
		"id":           item.ID,
		"userId":       item.UserID,
		"date":         item.Date,
		"day":          item.Day,
		"platform":     nonNilStrings(item.Platform),
		"type":         item.Type,
		"teamStatus":   item.TeamStatus,
		"clientStatus": item.ClientStatus,
		"isNew":        item.IsNew,
		"hook":         item.Hook,
		"copy":         item.Copy,
		"kpi":          item.KPI,
		"imagePrompt1": item.ImagePrompt1,
		"imagePrompt2": item.ImagePrompt2,
		"comments":     nonNilStrings(item.Comments),
		"createdAt":    item.CreatedAt,
		"updatedAt":    item.UpdatedAt,
	}
}

func userPayload(user store.User) map[string]any {
	return map[string]any{
		"id":                user.ID,
		"email":             user.Email,
		"companyName":       user.CompanyName,
		"brandColor":        user.BrandColor,
		"logoUrl":           user.LogoURL,
		"industry":          user.Industry,
		"role":              user.Role,
		"oneDriveReportUrl": user.OneDriveReportURL,
		"oneDriveAssetsUrl": user.OneDriveAssetsURL,
		"isEmailVerified":   user.IsEmailVerified,
		"createdAt":         user.CreatedAt,
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
