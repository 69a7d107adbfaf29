package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bkpt-go/internal/ckpt"
	"bkpt-go/internal/config"
	"bkpt-go/internal/encryption"
	"bkpt-go/internal/model"
	"bkpt-go/internal/repos"
	"bkpt-go/internal/worktree"
)

// identityFile is the per-book marker holding the book's UUID, so the
// same book resolves to the same repository across sessions.
const identityFile = ".bkptid"

// App is the application layer between the CLI and the checkpoint
// service. It constructs all dependencies from config, exposes
// high-level operations that accept raw directory paths, and owns the
// log file lifecycle.
type App struct {
	cfg     *config.Config
	cipher  ckpt.Cipher
	manager *repos.Manager
	logger  ckpt.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Save", "Restore"). The
// caller must call Close when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	cipher, err := encryption.NewCipherFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID+"/"+operation)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapted := &slogAdapter{l: logger}
	manager := repos.NewManager(cfg, cipher, adapted, ckpt.RealClock{})

	return &App{
		cfg:     cfg,
		cipher:  cipher,
		manager: manager,
		logger:  adapted,
		logFile: logFile,
	}, nil
}

// Close releases the App's resources.
func (a *App) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}

// UnlockCipher unlocks the age private key for operations that need to
// read encrypted content. A no-op when encryption is disabled.
func (a *App) UnlockCipher(passphrase string) error {
	if c, ok := a.cipher.(*encryption.AgeCipher); ok {
		return c.Unlock(passphrase)
	}
	return nil
}

// SetupKeys generates the age key pair for at-rest encryption.
func (a *App) SetupKeys(passphrase string) error {
	c, ok := a.cipher.(*encryption.AgeCipher)
	if !ok {
		return fmt.Errorf("encryption is not enabled in the config")
	}
	if c.IsConfigured() {
		return fmt.Errorf("encryption keys already exist")
	}
	return c.Setup(passphrase)
}

// openBook resolves the book directory into an identity, a working
// tree, and its open repository. The caller must close the repository.
func (a *App) openBook(ctx context.Context, rawDir string) (*repos.Repository, *worktree.DirTree, error) {
	tree, err := worktree.NewDirTree(rawDir, a.cfg.WorkingTree.Ignore)
	if err != nil {
		return nil, nil, err
	}

	identity, err := resolveIdentity(tree.Root())
	if err != nil {
		return nil, nil, err
	}

	repo, err := a.manager.OpenOrCreate(ctx, identity)
	if err != nil {
		return nil, nil, err
	}
	return repo, tree, nil
}

// resolveIdentity derives the BookIdentity for a book directory. The
// UUID is read from the identity file, generated and persisted on first
// contact so the book keeps resolving to the same repository.
func resolveIdentity(root string) (model.BookIdentity, error) {
	idPath := filepath.Join(root, identityFile)

	data, err := os.ReadFile(idPath)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if _, perr := uuid.Parse(id); perr != nil {
			return model.BookIdentity{}, fmt.Errorf("invalid book identity in %s: %w", idPath, perr)
		}
		return model.BookIdentity{
			UUID:       id,
			Title:      filepath.Base(root),
			SourcePath: root,
		}, nil
	case os.IsNotExist(err):
		id := uuid.New().String()
		if werr := os.WriteFile(idPath, []byte(id+"\n"), 0644); werr != nil {
			return model.BookIdentity{}, fmt.Errorf("writing book identity: %w", werr)
		}
		return model.BookIdentity{
			UUID:       id,
			Title:      filepath.Base(root),
			SourcePath: root,
		}, nil
	default:
		return model.BookIdentity{}, fmt.Errorf("reading book identity: %w", err)
	}
}

// SaveCheckpoint snapshots the book directory into a new checkpoint.
// Returns the assigned checkpoint index.
func (a *App) SaveCheckpoint(ctx context.Context, rawDir string, description string) (int64, error) {
	repo, tree, err := a.openBook(ctx, rawDir)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	files, err := tree.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return repo.Service.Write(ctx, files, description)
}

// ListCheckpoints returns the book's checkpoint history, oldest first.
func (a *App) ListCheckpoints(ctx context.Context, rawDir string) ([]model.CheckpointSummary, error) {
	repo, _, err := a.openBook(ctx, rawDir)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	return repo.Service.List(ctx)
}

// GetCheckpoint returns one full checkpoint of the book.
func (a *App) GetCheckpoint(ctx context.Context, rawDir string, index int64) (*model.Checkpoint, error) {
	repo, _, err := a.openBook(ctx, rawDir)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	return repo.Service.Get(ctx, index)
}

// Compare diffs the current working tree against the checkpoint at
// index.
func (a *App) Compare(ctx context.Context, rawDir string, index int64) (*model.DiffResult, error) {
	repo, tree, err := a.openBook(ctx, rawDir)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	files, err := tree.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return repo.Service.Compare(ctx, files, index)
}

// ModifiedContent loads both sides of a modified text file for diff
// presentation.
func (a *App) ModifiedContent(ctx context.Context, rawDir string, index int64, relPath string) (working, checkpointed []byte, err error) {
	repo, tree, err := a.openBook(ctx, rawDir)
	if err != nil {
		return nil, nil, err
	}
	defer repo.Close()

	files, err := tree.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return repo.Service.ModifiedContent(ctx, files, index, relPath)
}

// Restore replaces the book directory's contents with the checkpoint at
// index. Destructive: the caller is responsible for confirming with the
// user first.
func (a *App) Restore(ctx context.Context, rawDir string, index int64) ([]string, error) {
	repo, tree, err := a.openBook(ctx, rawDir)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	replaced, err := repo.Service.Checkout(ctx, tree, index)
	if err != nil {
		return nil, err
	}

	// The identity file lives in the working tree but is never
	// checkpointed; put it back so the book keeps its repository.
	book, berr := repo.Log.Book(ctx)
	if berr == nil && book.UUID != "" {
		idPath := filepath.Join(tree.Root(), identityFile)
		if werr := os.WriteFile(idPath, []byte(book.UUID+"\n"), 0644); werr != nil {
			a.logger.Warn("restoring book identity file failed", "error", werr)
		}
	}
	return replaced, nil
}

// Verify checks every checkpoint of the book for missing or corrupt
// content.
func (a *App) Verify(ctx context.Context, rawDir string) ([]ckpt.VerifyProblem, error) {
	repo, _, err := a.openBook(ctx, rawDir)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	return repo.Service.Verify(ctx)
}

// ListRepositories returns a summary of every repository in the store.
func (a *App) ListRepositories(ctx context.Context) ([]model.RepositorySummary, error) {
	return a.manager.List(ctx)
}

// RemoveRepository deletes one repository and everything in it.
func (a *App) RemoveRepository(ctx context.Context, id string) error {
	return a.manager.Remove(ctx, id)
}

// RemoveAllRepositories deletes every repository in the store.
func (a *App) RemoveAllRepositories(ctx context.Context) error {
	return a.manager.RemoveAll(ctx)
}
