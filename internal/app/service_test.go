package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"contentcal/api/internal/config"
	"contentcal/api/internal/search"
	"contentcal/api/internal/snapshot"
	"contentcal/api/internal/store"
)

type fakeStore struct {
	listCalendarItemsFn  func(context.Context, string) ([]store.CalendarItem, error)
	getCalendarItemFn    func(context.Context, string, string) (store.CalendarItem, error)
	insertCalendarItemFn func(context.Context, store.CalendarItem) (store.CalendarItem, error)
	updateCalendarItemFn func(context.Context, string, string, store.CalendarItemUpdate) (store.CalendarItem, error)
	deleteCalendarItemFn func(context.Context, string, string) error
	replaceCalendarFn    func(context.Context, string, []store.CalendarItem) ([]store.CalendarItem, error)
	getUserByIDFn        func(context.Context, string) (store.User, error)
	listClientsFn        func(context.Context) ([]store.User, error)
	clientContentStatsFn func(context.Context) ([]store.ClientStats, error)
	summaryCountsFn      func(context.Context) (int, int, int, error)
	updateUserProfileFn  func(context.Context, string, store.ProfileUpdate) (store.User, error)
}

func (f *fakeStore) ListCalendarItems(ctx context.Context, userID string) ([]store.CalendarItem, error) {
	if f.listCalendarItemsFn != nil {
		return f.listCalendarItemsFn(ctx, userID)
	}
	return nil, nil
}
func (f *fakeStore) GetCalendarItem(ctx context.Context, itemID, userID string) (store.CalendarItem, error) {
	if f.getCalendarItemFn != nil {
		return f.getCalendarItemFn(ctx, itemID, userID)
	}
	return store.CalendarItem{}, sql.ErrNoRows
}
func (f *fakeStore) InsertCalendarItem(ctx context.Context, item store.CalendarItem) (store.CalendarItem, error) {
	if f.insertCalendarItemFn != nil {
		return f.insertCalendarItemFn(ctx, item)
	}
	return item, nil
}
func (f *fakeStore) UpdateCalendarItem(ctx context.Context, itemID, userID string, patch store.CalendarItemUpdate) (store.CalendarItem, error) {
	if f.updateCalendarItemFn != nil {
		return f.updateCalendarItemFn(ctx, itemID, userID, patch)
	}
	return store.CalendarItem{}, sql.ErrNoRows
}
func (f *fakeStore) DeleteCalendarItem(ctx context.Context, itemID, userID string) error {
	if f.deleteCalendarItemFn != nil {
		return f.deleteCalendarItemFn(ctx, itemID, userID)
	}
	return sql.ErrNoRows
}
func (f *fakeStore) ReplaceCalendar(ctx context.Context, userID string, items []store.CalendarItem) ([]store.CalendarItem, error) {
	if f.replaceCalendarFn != nil {
		return f.replaceCalendarFn(ctx, userID, items)
	}
	return items, nil
}
func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{ID: userID, CompanyName: "Acme Media", Role: "client"}, nil
}
func (f *fakeStore) ListClients(ctx context.Context) ([]store.User, error) {
	if f.listClientsFn != nil {
		return f.listClientsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) ClientContentStats(ctx context.Context) ([]store.ClientStats, error) {
	if f.clientContentStatsFn != nil {
		return f.clientContentStatsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) SummaryCounts(ctx context.Context) (int, int, int, error) {
	if f.summaryCountsFn != nil {
		return f.summaryCountsFn(ctx)
	}
	return 0, 0, 0, nil
}
func (f *fakeStore) UpdateUserProfile(ctx context.Context, userID string, patch store.ProfileUpdate) (store.User, error) {
	if f.updateUserProfileFn != nil {
		return f.updateUserProfileFn(ctx, userID, patch)
	}
	return store.User{ID: userID}, nil
}
func (f *fakeStore) SaveRefreshSession(context.Context, string, string, time.Time) error { return nil }
func (f *fakeStore) LookupRefreshSession(context.Context, string) (store.User, error) {
	return store.User{}, errors.New("not found")
}
func (f *fakeStore) RevokeRefreshSession(context.Context, string) error          { return nil }
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) IsAccessTokenRevoked(context.Context, string) (bool, error) { return false, nil }
func (f *fakeStore) Ping(context.Context) error                                 { return nil }

type fakeArchive struct {
	recordFn    func(clientID, csvText, author, message string) (snapshot.Snapshot, error)
	historyFn   func(clientID string, limit int) ([]snapshot.Snapshot, error)
	contentAtFn func(clientID, hash string) (string, error)
}

func (f *fakeArchive) Record(clientID, csvText, author, message string) (snapshot.Snapshot, error) {
	if f.recordFn != nil {
		return f.recordFn(clientID, csvText, author, message)
	}
	return snapshot.Snapshot{Hash: "abc1234", Message: message, Author: author, CreatedAt: time.Now()}, nil
}
func (f *fakeArchive) History(clientID string, limit int) ([]snapshot.Snapshot, error) {
	if f.historyFn != nil {
		return f.historyFn(clientID, limit)
	}
	return nil, nil
}
func (f *fakeArchive) ContentAt(clientID, hash string) (string, error) {
	if f.contentAtFn != nil {
		return f.contentAtFn(clientID, hash)
	}
	return "", errors.New("not found")
}

type fakeSearch struct {
	mu       sync.Mutex
	indexed  []search.ItemRecord
	replaced map[string][]search.ItemRecord
	deleted  []string
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Query: q.Text}
}
func (f *fakeSearch) IndexItems(items []search.ItemRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, items...)
}
func (f *fakeSearch) DeleteItem(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}
func (f *fakeSearch) ReplaceOwner(userID string, items []search.ItemRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaced == nil {
		f.replaced = make(map[string][]search.ItemRecord)
	}
	f.replaced[userID] = items
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
			BaseURL:    "http://localhost:3000",
		},
		store:      fs,
		sessions:   fs,
		httpClient: http.DefaultClient,
		bulkLocks:  make(map[string]*sync.Mutex),
	}
}

func clientSession(userID string) Session {
	return Session{UserID: userID, CompanyName: "Acme Media", Role: "client"}
}

func adminSession() Session {
	return Session{UserID: "user_admin", CompanyName: "ContentCal Team", Role: "admin"}
}

func TestResolveOwner(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{})

	owner, err := svc.ResolveOwner(ctx, clientSession("user_1"), "")
	if err != nil || owner != "user_1" {
		t.Fatalf("client acting as self: owner=%q err=%v", owner, err)
	}

	owner, err = svc.ResolveOwner(ctx, clientSession("user_1"), "user_1")
	if err != nil || owner != "user_1" {
		t.Fatalf("client naming itself: owner=%q err=%v", owner, err)
	}

	if _, err := svc.ResolveOwner(ctx, clientSession("user_1"), "user_2"); err == nil {
		t.Fatal("client acting on another owner should be forbidden")
	} else {
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Status != http.StatusForbidden {
			t.Fatalf("expected 403 domain error, got %v", err)
		}
	}

	owner, err = svc.ResolveOwner(ctx, adminSession(), "user_2")
	if err != nil || owner != "user_2" {
		t.Fatalf("admin acting on client: owner=%q err=%v", owner, err)
	}

	owner, err = svc.ResolveOwner(ctx, adminSession(), "")
	if err != nil || owner != "user_admin" {
		t.Fatalf("admin acting as self: owner=%q err=%v", owner, err)
	}
}

func TestResolveOwnerVerifiesTarget(t *testing.T) {
	ctx := context.Background()
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			switch userID {
			case "user_1":
				return store.User{ID: "user_1", CompanyName: "Acme Media", Role: "client"}, nil
			case "user_admin2":
				return store.User{ID: "user_admin2", Role: "admin"}, nil
			}
			return store.User{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs)

	var domainErr *DomainError
	if _, err := svc.ResolveOwner(ctx, adminSession(), "user_ghost"); !errors.As(err, &domainErr) || domainErr.Status != http.StatusNotFound {
		t.Fatalf("missing target should be 404, got %v", err)
	}

	if _, err := svc.ResolveOwner(ctx, adminSession(), "user_admin2"); !errors.As(err, &domainErr) || domainErr.Status != http.StatusNotFound {
		t.Fatalf("non-client target should be 404, got %v", err)
	}

	owner, err := svc.ResolveOwner(ctx, adminSession(), "user_1")
	if err != nil || owner != "user_1" {
		t.Fatalf("existing client target: owner=%q err=%v", owner, err)
	}
}

func TestCreateItemRequiresDateAndHook(t *testing.T) {
	svc := newTestService(&fakeStore{})

	if _, err := svc.CreateItem(context.Background(), "user_1", ItemInput{Hook: "Launch"}); err == nil {
		t.Fatal("expected validation error for missing date")
	}
	if _, err := svc.CreateItem(context.Background(), "user_1", ItemInput{Date: "Oct 24"}); err == nil {
		t.Fatal("expected validation error for missing hook")
	}
}

func TestCreateItemCoercesStatuses(t *testing.T) {
	var inserted store.CalendarItem
	fs := &fakeStore{
		insertCalendarItemFn: func(_ context.Context, item store.CalendarItem) (store.CalendarItem, error) {
			inserted = item
			return item, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateItem(context.Background(), "user_1", ItemInput{
		Date:         "Oct 24",
		Hook:         "Launch teaser",
		TeamStatus:   "  READY   Review ",
		ClientStatus: "shipped",
	})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	if inserted.TeamStatus != "ready-review" {
		t.Errorf("TeamStatus = %q, want ready-review", inserted.TeamStatus)
	}
	if inserted.ClientStatus != "not-submitted" {
		t.Errorf("ClientStatus = %q, want coerced default", inserted.ClientStatus)
	}
	if !inserted.IsNew {
		t.Error("created items should be flagged new")
	}
	if inserted.UserID != "user_1" {
		t.Errorf("UserID = %q", inserted.UserID)
	}
}

func TestUpdateItemNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})
	hook := "New hook"
	_, err := svc.UpdateItem(context.Background(), "user_1", "cal_missing", ItemPatch{Hook: &hook})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestBulkReplaceEmptyCSV(t *testing.T) {
	replaced := false
	fs := &fakeStore{
		replaceCalendarFn: func(_ context.Context, _ string, items []store.CalendarItem) ([]store.CalendarItem, error) {
			replaced = true
			return items, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.BulkReplace(context.Background(), "user_1", "Acme Media", "\n\n")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "EMPTY_CSV" {
		t.Fatalf("expected EMPTY_CSV error, got %v", err)
	}
	if replaced {
		t.Fatal("empty upload must not touch the store")
	}
}

func TestBulkReplaceFlow(t *testing.T) {
	csvText := "Date,Hook,Team Status\n" +
		"Oct 24,Launch teaser,ready post\n" +
		",Missing date,in progress\n" +
		"Oct 25,Follow up,shipped\n"

	var storedOwner string
	var storedItems []store.CalendarItem
	fs := &fakeStore{
		replaceCalendarFn: func(_ context.Context, owner string, items []store.CalendarItem) ([]store.CalendarItem, error) {
			storedOwner = owner
			storedItems = items
			return items, nil
		},
	}
	svc := newTestService(fs)

	var archivedCSV, archivedAuthor string
	svc.archive = &fakeArchive{
		recordFn: func(clientID, csvText, author, message string) (snapshot.Snapshot, error) {
			archivedCSV = csvText
			archivedAuthor = author
			return snapshot.Snapshot{Hash: "abc1234"}, nil
		},
	}
	idx := &fakeSearch{}
	svc.search = idx

	payload, err := svc.BulkReplace(context.Background(), "user_1", "Acme Media", csvText)
	if err != nil {
		t.Fatalf("BulkReplace() error = %v", err)
	}

	if storedOwner != "user_1" || len(storedItems) != 2 {
		t.Fatalf("stored %d items for %q, want 2 for user_1", len(storedItems), storedOwner)
	}
	if payload["submitted"] != 3 || payload["accepted"] != 2 || payload["skipped"] != 1 || payload["corrected"] != 1 {
		t.Fatalf("unexpected report payload: %v", payload)
	}
	if storedItems[0].TeamStatus != "ready-post" {
		t.Errorf("first row team status = %q", storedItems[0].TeamStatus)
	}

	if archivedAuthor != "Acme Media" {
		t.Errorf("archive author = %q", archivedAuthor)
	}
	if !strings.Contains(archivedCSV, "\"Launch teaser\"") {
		t.Errorf("archived CSV should be the normalized export, got %q", archivedCSV)
	}
	if len(idx.replaced["user_1"]) != 2 {
		t.Errorf("search index got %d records, want 2", len(idx.replaced["user_1"]))
	}
}

func TestBulkReplaceArchiveFailureIsNonFatal(t *testing.T) {
	fs := &fakeStore{
		replaceCalendarFn: func(_ context.Context, _ string, items []store.CalendarItem) ([]store.CalendarItem, error) {
			return items, nil
		},
	}
	svc := newTestService(fs)
	svc.archive = &fakeArchive{
		recordFn: func(_, _, _, _ string) (snapshot.Snapshot, error) {
			return snapshot.Snapshot{}, errors.New("repo locked")
		},
	}

	payload, err := svc.BulkReplace(context.Background(), "user_1", "Acme Media", "Date,Hook\nOct 24,Launch teaser\n")
	if err != nil {
		t.Fatalf("archive failure must not fail the upload: %v", err)
	}
	if payload["accepted"] != 1 {
		t.Fatalf("payload = %v", payload)
	}
}

func TestCommentAppendsAndValidates(t *testing.T) {
	existing := store.CalendarItem{
		ID: "cal_1", UserID: "user_1", Date: "Oct 24", Hook: "Launch teaser",
		Comments: []string{"First note"},
	}
	var patched store.CalendarItemUpdate
	fs := &fakeStore{
		getCalendarItemFn: func(_ context.Context, itemID, userID string) (store.CalendarItem, error) {
			if itemID != "cal_1" || userID != "user_1" {
				return store.CalendarItem{}, sql.ErrNoRows
			}
			return existing, nil
		},
		updateCalendarItemFn: func(_ context.Context, _, _ string, patch store.CalendarItemUpdate) (store.CalendarItem, error) {
			patched = patch
			updated := existing
			updated.Comments = *patch.Comments
			return updated, nil
		},
	}
	svc := newTestService(fs)

	if _, err := svc.Comment(context.Background(), clientSession("user_1"), "user_1", "cal_1", "   "); err == nil {
		t.Fatal("expected validation error for blank comment")
	}

	payload, err := svc.Comment(context.Background(), clientSession("user_1"), "user_1", "cal_1", "Please reshoot")
	if err != nil {
		t.Fatalf("Comment() error = %v", err)
	}
	if patched.Comments == nil || len(*patched.Comments) != 2 || (*patched.Comments)[1] != "Please reshoot" {
		t.Fatalf("comment not appended: %v", patched.Comments)
	}
	item := payload["item"].(map[string]any)
	if got := item["comments"].([]string); len(got) != 2 {
		t.Fatalf("payload comments = %v", got)
	}
}

func TestImpersonate(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			switch userID {
			case "user_1":
				return store.User{ID: "user_1", CompanyName: "Acme Media", Role: "client"}, nil
			case "user_admin2":
				return store.User{ID: "user_admin2", Role: "admin"}, nil
			}
			return store.User{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs)

	if _, err := svc.Impersonate(context.Background(), clientSession("user_1"), "user_2"); err == nil {
		t.Fatal("client must not impersonate")
	}

	if _, err := svc.Impersonate(context.Background(), adminSession(), "user_missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := svc.Impersonate(context.Background(), adminSession(), "user_admin2"); err == nil {
		t.Fatal("impersonating another admin must be rejected")
	}

	session, err := svc.Impersonate(context.Background(), adminSession(), "user_1")
	if err != nil {
		t.Fatalf("Impersonate() error = %v", err)
	}
	if session.UserID != "user_1" || session.Role != "client" {
		t.Fatalf("impersonated session = %+v", session)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("impersonated session should carry tokens")
	}
}

func TestAdminClientsAggregates(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		clientContentStatsFn: func(context.Context) ([]store.ClientStats, error) {
			return []store.ClientStats{
				{UserID: "user_1", CompanyName: "Acme Media", TotalItems: 4, CompletedItems: 1, LastActivity: now.Add(-2 * 24 * time.Hour)},
				{UserID: "user_2", CompanyName: "Dormant Co", TotalItems: 0, CompletedItems: 0, LastActivity: now.Add(-45 * 24 * time.Hour)},
			}, nil
		},
		listClientsFn: func(context.Context) ([]store.User, error) {
			return []store.User{
				{ID: "user_1", Industry: "Retail", BrandColor: "#ff6600"},
				{ID: "user_2"},
			}, nil
		},
		summaryCountsFn: func(context.Context) (int, int, int, error) { return 2, 4, 1, nil },
	}
	svc := newTestService(fs)

	payload, err := svc.AdminClients(context.Background(), now)
	if err != nil {
		t.Fatalf("AdminClients() error = %v", err)
	}

	clients := payload["clients"].([]map[string]any)
	if len(clients) != 2 {
		t.Fatalf("got %d clients", len(clients))
	}
	if clients[0]["active"] != true || clients[1]["active"] != false {
		t.Fatalf("activity flags wrong: %v / %v", clients[0]["active"], clients[1]["active"])
	}
	if clients[0]["completionRate"] != 0.25 {
		t.Fatalf("completionRate = %v, want 0.25", clients[0]["completionRate"])
	}
	if clients[1]["completionRate"] != 0.0 {
		t.Fatalf("empty calendar completionRate = %v, want 0", clients[1]["completionRate"])
	}
	if clients[0]["industry"] != "Retail" {
		t.Fatalf("account fields not merged: %v", clients[0])
	}

	totals := payload["totals"].(map[string]any)
	if totals["clients"] != 2 || totals["items"] != 4 || totals["completed"] != 1 {
		t.Fatalf("totals = %v", totals)
	}
}

func TestSessionLifecycle(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, CompanyName: "Acme Media", Role: "client"}, nil
		},
	}
	svc := newTestService(fs)

	session, err := svc.CreateSession(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("session should carry both tokens")
	}

	parsed, err := svc.SessionFromToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	if parsed.UserID != "user_1" || parsed.Role != "client" || parsed.CompanyName != "Acme Media" {
		t.Fatalf("parsed session = %+v", parsed)
	}

	if _, err := svc.SessionFromToken(context.Background(), "garbage"); err == nil {
		t.Fatal("garbage token should not parse")
	}
}

func TestExportCSVUsesCanonicalLayout(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, CompanyName: "Acme Media"}, nil
		},
		listCalendarItemsFn: func(context.Context, string) ([]store.CalendarItem, error) {
			return []store.CalendarItem{
				{Date: "Oct 24", Hook: "Launch \"teaser\"", Platform: []string{"Instagram", "TikTok"}, TeamStatus: "ready-post", ClientStatus: "approved", Comments: []string{"a", "b"}},
			}, nil
		},
	}
	svc := newTestService(fs)

	filename, csvText, err := svc.ExportCSV(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if filename != "Acme-Media-calendar.csv" {
		t.Errorf("filename = %q", filename)
	}
	if !strings.HasPrefix(csvText, "\"Date\",\"Day\",\"Platform\"") {
		t.Errorf("header missing: %q", csvText)
	}
	if !strings.Contains(csvText, "\"Instagram|TikTok\"") {
		t.Errorf("platforms should join on pipe: %q", csvText)
	}
	if !strings.Contains(csvText, "\"Launch \"\"teaser\"\"\"") {
		t.Errorf("quotes should be doubled: %q", csvText)
	}
	if !strings.Contains(csvText, "\"a | b\"") {
		t.Errorf("comments should join with ' | ': %q", csvText)
	}
}
