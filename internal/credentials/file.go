package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pribylovaa/school-admin/internal/models"
)

// File хранит учётные данные в JSON-файле с правами 0600.
// Запись выполняется через временный файл и rename, поэтому читатель
// никогда не увидит наполовину записанный файл.
type File struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFile создаёт файловое хранилище. Каталог создаётся при первой записи.
func NewFile(path string) (*File, error) {
	const op = "credentials.NewFile"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}

	return &File{path: path, now: time.Now}, nil
}

func (f *File) AccessToken(_ context.Context) (string, error) {
	const op = "credentials.File.AccessToken"

	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.load()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return creds.Access(f.now()), nil
}

func (f *File) RefreshToken(_ context.Context) (string, error) {
	const op = "credentials.File.RefreshToken"

	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.load()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return creds.Refresh(f.now()), nil
}

func (f *File) SetAccessToken(_ context.Context, token string, expiresAt time.Time) error {
	const op = "credentials.File.SetAccessToken"

	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.load()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	creds.AccessToken = token
	creds.AccessExpiresAt = expiresAt

	if err := f.save(creds); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *File) SetPair(_ context.Context, creds models.Credentials) error {
	const op = "credentials.File.SetPair"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.save(creds); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *File) Clear(_ context.Context) error {
	const op = "credentials.File.Clear"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// load читает файл; отсутствующий файл — пустые учётные данные.
func (f *File) load() (models.Credentials, error) {
	var creds models.Credentials

	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return creds, nil
		}

		return creds, err
	}

	if err := json.Unmarshal(b, &creds); err != nil {
		return creds, fmt.Errorf("decode %s: %w", f.path, err)
	}

	return creds, nil
}

func (f *File) save(creds models.Credentials) error {
	b, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, f.path)
}
