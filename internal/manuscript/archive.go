// Package manuscript keeps a git history of every submitted paper version.
package manuscript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"folio/api/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const snapshotFile = "manuscript.json"

var ErrNoArchive = errors.New("manuscript archive not found")

// Snapshot is the metadata committed for one paper version.
type Snapshot struct {
	PaperID   string   `json:"paperId"`
	Version   int      `json:"version"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Keywords  []string `json:"keywords"`
	CoAuthors []string `json:"coAuthors,omitempty"`
	Category  string   `json:"category"`
	FileID    string   `json:"fileId,omitempty"`
	FileName  string   `json:"fileName,omitempty"`
	Changes   string   `json:"changes,omitempty"`
}

type Archive struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Archive {
	return &Archive{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// RecordVersion commits the snapshot on main and tags it v<version>. The
// repository is created on first use.
func (a *Archive) RecordVersion(snap Snapshot, author string) (store.CommitInfo, error) {
	if snap.PaperID == "" {
		return store.CommitInfo{}, fmt.Errorf("snapshot paper id is required")
	}
	lock := a.paperLock(snap.PaperID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := a.openOrInit(snap.PaperID)
	if err != nil {
		return store.CommitInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return store.CommitInfo{}, fmt.Errorf("write %s: %w", snapshotFile, err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return store.CommitInfo{}, fmt.Errorf("git add snapshot: %w", err)
	}

	signature := &object.Signature{
		Name:  author,
		Email: fmt.Sprintf("%s@archive.folio.local", sanitizeEmail(author)),
		When:  time.Now(),
	}
	hash, err := worktree.Commit(fmt.Sprintf("Version %d: %s", snap.Version, snap.Title), &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            signature,
	})
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("commit snapshot: %w", err)
	}

	tag := fmt.Sprintf("v%d", snap.Version)
	_, err = repo.CreateTag(tag, hash, &git.CreateTagOptions{
		Tagger:  signature,
		Message: tag,
	})
	if err != nil && !errors.Is(err, git.ErrTagExists) {
		return store.CommitInfo{}, fmt.Errorf("create tag %s: %w", tag, err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists commits newest first. A paper without an archive yields
// ErrNoArchive.
func (a *Archive) History(paperID string, limit int) ([]store.CommitInfo, error) {
	lock := a.paperLock(paperID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := a.open(paperID)
	if err != nil {
		return nil, err
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

	items := make([]store.CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// SnapshotAt reads the snapshot stored at a commit hash or tag (e.g. "v2").
func (a *Archive) SnapshotAt(paperID, revision string) (Snapshot, error) {
	lock := a.paperLock(paperID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := a.open(paperID)
	if err != nil {
		return Snapshot{}, err
	}
	hash, err := resolveRevision(repo, revision)
	if err != nil {
		return Snapshot{}, err
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read commit %s: %w", revision, err)
	}
	return readSnapshot(commitObj)
}

func (a *Archive) repoPath(paperID string) string {
	return filepath.Join(a.baseDir, paperID)
}

func (a *Archive) open(paperID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(a.repoPath(paperID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoArchive
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (a *Archive) openOrInit(paperID string) (*git.Repository, error) {
	repo, err := a.open(paperID)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, ErrNoArchive) {
		return nil, err
	}

	path := a.repoPath(paperID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (a *Archive) paperLock(paperID string) *sync.Mutex {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	lock, ok := a.locks[paperID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	a.locks[paperID] = lock
	return lock
}

func readSnapshot(commitObj *object.Commit) (Snapshot, error) {
	file, err := commitObj.File(snapshotFile)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s from commit: %w", snapshotFile, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(contents), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String(),
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func resolveRevision(repo *git.Repository, revision string) (plumbing.Hash, error) {
	if plumbing.IsHash(revision) {
		return plumbing.NewHash(revision), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve revision %s: %w", revision, err)
	}
	return *resolved, nil
}
