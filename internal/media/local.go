package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/utils"
)

type localStore struct {
	log     *logger.Logger
	baseDir string
	baseURL string
}

func NewLocalStore(log *logger.Logger) (Store, error) {
	storeLog := log.With("service", "LocalStore")
	baseDir := utils.GetEnv("UPLOAD_DIR", "uploads", log)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("Failed to create upload dir %q: %w", baseDir, err)
	}
	baseURL := strings.TrimRight(utils.GetEnv("PUBLIC_BASE_URL", "", log), "/")
	return &localStore{
		log:     storeLog,
		baseDir: baseDir,
		baseURL: baseURL,
	}, nil
}

// resolve rejects keys that escape the base dir.
func (ls *localStore) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("empty storage key")
	}
	return filepath.Join(ls.baseDir, clean), nil
}

func (ls *localStore) Save(ctx context.Context, key string, file io.Reader) error {
	path, err := ls.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("Failed to create dir for %q: %w", key, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Failed to create file %q: %w", key, err)
	}
	if _, err := io.Copy(f, file); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("Failed to write file %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("Failed to close file %q: %w", key, err)
	}
	return nil
}

func (ls *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := ls.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to open file %q: %w", key, err)
	}
	return f, nil
}

func (ls *localStore) Delete(ctx context.Context, key string) error {
	path, err := ls.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("Failed to delete file %q: %w", key, err)
	}
	return nil
}

func (ls *localStore) PublicURL(key string) string {
	if ls.baseURL != "" {
		return ls.baseURL + "/uploads/" + key
	}
	return "/uploads/" + key
}
