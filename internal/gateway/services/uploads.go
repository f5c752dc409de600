package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	gc "github.com/aquemenida/caliope-ai-studio/internal/gateway/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadURLValidity is how long a presigned PUT stays usable.
const UploadURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// Upload is a presigned object slot for one journal image.
type Upload struct {
	Key       string
	UploadURL string
	PublicURL string
}

// UploadService presigns journal image uploads to S3-compatible storage.
type UploadService struct {
	config *gc.Config
	now    func() time.Time
}

func NewUploadService(cfg *gc.Config) *UploadService {
	return &UploadService{config: cfg, now: time.Now}
}

// StorageKey returns a fresh object key under the user's journal prefix.
func StorageKey(userID string, d time.Time) string {
	return fmt.Sprintf("journal/%s/%d/%02d/%02d/%v", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *UploadService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return newS3PresignClient(client), nil
}

// PresignUpload returns a presigned PUT for an image owned by userID.
// Content types other than image/* yield common.ErrInvalidArgument.
func (s *UploadService) PresignUpload(ctx context.Context, userID, contentType string) (*Upload, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content type %q is not an image", common.ErrInvalidArgument, contentType)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 config: %v", common.ErrBackendUnavailable, err)
	}

	bucket := s.config.S3Bucket
	key := StorageKey(userID, s.now().UTC())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(UploadURLValidity))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &Upload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: strings.TrimRight(s.config.PublicBaseURL, "/") + "/" + key,
	}, nil
}
