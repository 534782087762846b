package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/utils"
)

// Store is the durable home of uploaded photo bytes. Keys are opaque; the
// tagging service reads bytes back through Open before calling the vision API.
type Store interface {
	Save(ctx context.Context, key string, file io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// New picks the store implementation from MEDIA_STORAGE: "gcs" for the bucket
// store, anything else (default "local") for the on-disk store.
func New(log *logger.Logger) (Store, error) {
	mode := strings.ToLower(strings.TrimSpace(utils.GetEnv("MEDIA_STORAGE", "local", log)))
	switch mode {
	case "gcs":
		return NewBucketStore(log)
	case "local", "":
		return NewLocalStore(log)
	default:
		return nil, fmt.Errorf("unknown MEDIA_STORAGE mode %q", mode)
	}
}
