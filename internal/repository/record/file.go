package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/idrisfallout/artemis-installer/internal/domain/plan"
)

// Filename is the uninstall record's name inside the install root.
const Filename = "uninstall.yaml"

// recordFilePermissions restricts the record to the owner.
const recordFilePermissions = 0o600

// Repository defines persistence operations for the uninstall record.
type Repository interface {
	Load(ctx context.Context) (*plan.Record, error)
	Save(ctx context.Context, rec *plan.Record) error
	Delete(ctx context.Context) error
}

// FileRepository persists the uninstall record as YAML inside the install
// root, so the record travels with the installation it describes.
type FileRepository struct {
	// path is the filesystem location of the record file.
	path string
	// mu protects concurrent access to the record file.
	mu sync.Mutex
}

// ErrNotFound is returned when no record exists, i.e. nothing is installed.
var ErrNotFound = errors.New("uninstall record not found")

// NewFileRepository creates a repository reading/writing the record inside
// the provided install root.
func NewFileRepository(installRoot string) *FileRepository {
	return &FileRepository{
		path: filepath.Join(filepath.Clean(installRoot), Filename),
	}
}

// Path returns the record file's location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*plan.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read uninstall record: %w", err)
	}

	var rec plan.Record
	if err = yaml.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode uninstall record: %w", err)
	}

	return &rec, nil
}

// Save writes the record to disk.
func (r *FileRepository) Save(_ context.Context, rec *plan.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode uninstall record: %w", err)
	}

	if err = os.WriteFile(r.path, data, recordFilePermissions); err != nil {
		return fmt.Errorf("write uninstall record: %w", err)
	}

	return nil
}

// Delete removes the record file; a missing file is not an error.
func (r *FileRepository) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove uninstall record: %w", err)
	}

	return nil
}
