// Package media stores journal images and returns the URL kept in the
// journal entry.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/identityrpc"
	"github.com/aquemenida/caliope-ai-studio/internal/netx"
)

// MaxImageSize is the largest accepted journal image.
const MaxImageSize = 4 << 20

type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

func checkImage(data []byte, contentType string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", common.ErrInvalidArgument)
	}
	if len(data) > MaxImageSize {
		return fmt.Errorf("%w: image larger than 4 MB", common.ErrInvalidArgument)
	}
	if contentType == "" {
		return fmt.Errorf("%w: missing content type", common.ErrInvalidArgument)
	}
	return nil
}

// DataURLUploader embeds the image in a data: URL. It is used when no
// object storage is reachable.
type DataURLUploader struct{}

func (DataURLUploader) Upload(_ context.Context, data []byte, contentType string) (string, error) {
	if err := checkImage(data, contentType); err != nil {
		return "", err
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Presigner hands out one-shot upload URLs; the gateway client satisfies it.
type Presigner interface {
	PresignUpload(ctx context.Context, contentType string) (*identityrpc.PresignUploadResponse, error)
}

// PresignedUploader PUTs the image to a URL presigned by the gateway and
// returns the object's public URL.
type PresignedUploader struct {
	presigner Presigner
	http      *http.Client
}

func NewPresignedUploader(p Presigner) *PresignedUploader {
	return &PresignedUploader{presigner: p, http: &http.Client{Timeout: 30 * time.Second}}
}

func (u *PresignedUploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := checkImage(data, contentType); err != nil {
		return "", err
	}

	target, err := u.presigner.PresignUpload(ctx, contentType)
	if err != nil {
		return "", fmt.Errorf("presign upload: %w", err)
	}

	if err := netx.PutPresigned(ctx, u.http, target.UploadURL, contentType, data); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	return target.PublicURL, nil
}
