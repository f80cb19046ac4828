// Package snapshot keeps a per-client git archive of uploaded calendars.
// Every bulk replace commits the normalized CSV, so the destructive
// delete-then-insert stays recoverable.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const calendarFile = "calendar.csv"

// Snapshot describes one archived upload.
type Snapshot struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Record commits a calendar CSV to the client's archive, creating the
// repository on first upload. Returns the snapshot for the new commit.
func (s *Service) Record(clientID, csvText, author, message string) (Snapshot, error) {
	lock := s.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.ensureRepo(clientID)
	if err != nil {
		return Snapshot{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Snapshot{}, fmt.Errorf("open worktree: %w", err)
	}

	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, calendarFile), []byte(csvText), 0o644); err != nil {
		return Snapshot{}, fmt.Errorf("write calendar file: %w", err)
	}
	if _, err := worktree.Add(calendarFile); err != nil {
		return Snapshot{}, fmt.Errorf("git add calendar: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.contentcal.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("commit calendar: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read commit object: %w", err)
	}
	return toSnapshot(commitObj), nil
}

// History lists archived uploads, newest first.
func (s *Service) History(clientID string, limit int) ([]Snapshot, error) {
	lock := s.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(clientID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []Snapshot{}, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return nil, fmt.Errorf("resolve main: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Snapshot, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toSnapshot(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// ContentAt returns the archived CSV at a given commit hash.
func (s *Service) ContentAt(clientID, hash string) (string, error) {
	lock := s.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(clientID))
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}

	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return "", err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commitObj.File(calendarFile)
	if err != nil {
		return "", fmt.Errorf("load calendar from commit: %w", err)
	}
	reader, err := file.Reader()
	if err != nil {
		return "", fmt.Errorf("open calendar reader: %w", err)
	}
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read calendar bytes: %w", err)
	}
	return string(contents), nil
}

func (s *Service) ensureRepo(clientID string) (*git.Repository, error) {
	path := s.repoPath(clientID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, calendarFile), []byte{}, 0o644); err != nil {
		return nil, fmt.Errorf("write initial calendar: %w", err)
	}
	if _, err := worktree.Add(calendarFile); err != nil {
		return nil, fmt.Errorf("git add initial calendar: %w", err)
	}
	hash, err := worktree.Commit("Initialize calendar archive", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "ContentCal",
			Email: "archive@local.contentcal.dev",
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit initial calendar: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return nil, fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(clientID string) string {
	return filepath.Join(s.baseDir, clientID)
}

func (s *Service) clientLock(clientID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[clientID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[clientID] = lock
	return lock
}

func toSnapshot(commitObj *object.Commit) Snapshot {
	return Snapshot{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	cleaned := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			cleaned = append(cleaned, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			cleaned = append(cleaned, '.')
		}
	}
	if len(cleaned) == 0 {
		return "user"
	}
	return string(cleaned)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
