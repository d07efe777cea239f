package tokens

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File keeps the token in <dir>/<key>, readable only by the owner.
// Used by the CLI where the session is process-wide.
type File struct {
	path string
}

func NewFile(dir, key string) *File {
	return &File{path: filepath.Join(dir, key)}
}

// DefaultDir returns the per-user config directory for evoctl.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "evoctl"), nil
}

func (f *File) Path() string { return f.path }

func (f *File) Load(ctx context.Context) (string, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("tokens: read %s: %w", f.path, err)
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

func (f *File) Save(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("tokens: empty token")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("tokens: mkdir: %w", err)
	}
	// write-then-rename keeps a single token on disk at all times
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(token), 0o600); err != nil {
		return fmt.Errorf("tokens: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("tokens: rename: %w", err)
	}
	return nil
}

func (f *File) Delete(ctx context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokens: remove: %w", err)
	}
	return nil
}
