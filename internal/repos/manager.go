package repos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/config"
	"bkpt-go/internal/lockfile"
	"bkpt-go/internal/logdb"
	"bkpt-go/internal/model"
	"bkpt-go/internal/store"
)

// Manager discovers, opens and deletes repositories in the local
// repository store. One subdirectory per book identity:
//
//	<root>/
//	  <identity key>/
//	    checkpoints.db   (checkpoint log)
//	    content/         (content-addressed payloads)
//	    .lock            (repository lock file)
type Manager struct {
	root   string
	cfg    *config.Config
	cipher ckpt.Cipher
	logger ckpt.Logger
	clock  ckpt.Clock
}

// NewManager creates a Manager over the repository store root.
func NewManager(cfg *config.Config, cipher ckpt.Cipher, logger ckpt.Logger, clock ckpt.Clock) *Manager {
	return &Manager{
		root:   cfg.StoreRoot,
		cfg:    cfg,
		cipher: cipher,
		logger: logger,
		clock:  clock,
	}
}

// Repository is one open repository: its log, content store and the
// service bound to them. Close releases the log's database connection.
type Repository struct {
	ID      string
	Dir     string
	Log     *logdb.SQLiteLog
	Service *ckpt.Service
}

// Close releases the repository's resources.
func (r *Repository) Close() error {
	return r.Log.Close()
}

// OpenOrCreate opens the repository for identity, creating it on first
// use. The book's display metadata is refreshed on every open so the
// management view tracks renames.
func (m *Manager) OpenOrCreate(ctx context.Context, identity model.BookIdentity) (*Repository, error) {
	id := identity.Key()
	dir := filepath.Join(m.root, id)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating repository directory: %w", err)
	}

	log, err := logdb.New(filepath.Join(dir, "checkpoints.db"))
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint log: %w", err)
	}

	if err := log.SetBook(ctx, identity); err != nil {
		log.Close()
		return nil, err
	}

	cs, err := store.NewStoreFromConfig(m.cfg.Store, filepath.Join(dir, "content"), m.cipher)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("opening content store: %w", err)
	}

	locker := lockfile.New(filepath.Join(dir, ".lock"), m.cfg.Lock)
	svc := ckpt.NewService(log, cs, locker, m.logger, m.clock)

	m.logger.Debug("repository opened", "id", id)
	return &Repository{ID: id, Dir: dir, Log: log, Service: svc}, nil
}

// List returns a summary for every repository in the store, sorted by
// title then id. A store root that does not exist yet yields an empty
// list.
func (m *Manager) List(ctx context.Context) ([]model.RepositorySummary, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading repository store: %w", err)
	}

	var summaries []model.RepositorySummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		summary, err := m.summarize(ctx, e.Name())
		if err != nil {
			m.logger.Warn("skipping unreadable repository", "id", e.Name(), "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Title != summaries[j].Title {
			return summaries[i].Title < summaries[j].Title
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

// summarize builds the management projection for one repository.
func (m *Manager) summarize(ctx context.Context, id string) (model.RepositorySummary, error) {
	dir := filepath.Join(m.root, id)

	log, err := logdb.New(filepath.Join(dir, "checkpoints.db"))
	if err != nil {
		return model.RepositorySummary{}, err
	}
	defer log.Close()

	book, err := log.Book(ctx)
	if err != nil {
		return model.RepositorySummary{}, err
	}

	checkpoints, err := log.List(ctx)
	if err != nil {
		return model.RepositorySummary{}, err
	}

	summary := model.RepositorySummary{
		ID:              id,
		Title:           book.Title,
		SourcePath:      book.SourcePath,
		BookUUID:        book.UUID,
		FormatVersion:   book.FormatVersion,
		CheckpointCount: len(checkpoints),
	}
	if n := len(checkpoints); n > 0 {
		summary.LastModified = checkpoints[n-1].CreatedAt
	} else if info, err := os.Stat(dir); err == nil {
		summary.LastModified = info.ModTime()
	}
	return summary, nil
}

// Remove deletes one repository with all its checkpoints and content.
// An empty id is rejected with ErrNothingSelected; an already-absent
// repository is an idempotent success.
func (m *Manager) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ckpt.ErrNothingSelected
	}

	dir := filepath.Join(m.root, id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	// Hold the repository lock so a concurrent writer in another process
	// cannot race the deletion.
	locker := lockfile.New(filepath.Join(dir, ".lock"), m.cfg.Lock)
	release, err := locker.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing repository %s: %w", id, err)
	}

	m.logger.Info("repository removed", "id", id)
	return nil
}

// RemoveAll deletes every repository in the store. Fails with
// ErrNothingSelected when the store is empty.
func (m *Manager) RemoveAll(ctx context.Context) error {
	entries, err := os.ReadDir(m.root)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading repository store: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	if len(ids) == 0 {
		return ckpt.ErrNothingSelected
	}

	for _, id := range ids {
		if err := m.Remove(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
