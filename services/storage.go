package services

import (
	"context"
	"time"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
)

// ObjectStorage is the object-store surface used for uploaded documents.
type ObjectStorage interface {
	// DownloadToTemp fetches the object to a temp file and returns its
	// path. The caller removes the file.
	DownloadToTemp(ctx context.Context, key string) (string, error)

	// PresignPut mints an upload URL for the key.
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)

	// ObjectURL returns the public (CDN) URL for a key.
	ObjectURL(key string) string
}

// DocumentExtractor turns an uploaded document into plain text. PDFs run
// through an asynchronous OCR job; office formats are parsed or converted
// locally.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, file models.FileDescriptor) (string, error)
}
