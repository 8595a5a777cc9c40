// Package storage issues presigned URLs for manuscript files kept in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"folio/api/internal/util"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrObjectNotFound = errors.New("object not found")

// AllowedContentTypes are the manuscript formats accepted for submission.
var AllowedContentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

type Config struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string
	Region      string
	UseSSL      bool
	UploadTTL   time.Duration
	DownloadTTL time.Duration
}

type UploadTicket struct {
	FileID    string    `json:"fileId"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ObjectInfo struct {
	Size        int64
	ContentType string
}

type Minio struct {
	client *minio.Client
	cfg    Config
}

func NewMinio(cfg Config) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if cfg.UploadTTL <= 0 {
		cfg.UploadTTL = 15 * time.Minute
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = time.Hour
	}
	return &Minio{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the configured bucket when it does not exist yet.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{Region: m.cfg.Region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.cfg.Bucket, err)
	}
	return nil
}

// PresignUpload reserves a new file id under the owner's prefix and returns a
// URL the client can PUT the manuscript to directly.
func (m *Minio) PresignUpload(ctx context.Context, ownerID string) (UploadTicket, error) {
	fileID := ObjectKey(ownerID, util.NewID("file"))
	expiresAt := time.Now().Add(m.cfg.UploadTTL)
	u, err := m.client.PresignedPutObject(ctx, m.cfg.Bucket, fileID, m.cfg.UploadTTL)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("presign upload: %w", err)
	}
	return UploadTicket{FileID: fileID, UploadURL: u.String(), ExpiresAt: expiresAt}, nil
}

// URL returns a time-limited download URL for fileID.
func (m *Minio) URL(ctx context.Context, fileID, fileName string) (string, error) {
	params := url.Values{}
	if name := strings.TrimSpace(fileName); name != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(name)))
	}
	u, err := m.client.PresignedGetObject(ctx, m.cfg.Bucket, fileID, m.cfg.DownloadTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u.String(), nil
}

func (m *Minio) Stat(ctx context.Context, fileID string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.cfg.Bucket, fileID, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}
	return ObjectInfo{Size: info.Size, ContentType: info.ContentType}, nil
}

// ObjectKey scopes file ids by owner so a caller can only reference objects
// they uploaded.
func ObjectKey(ownerID, fileID string) string {
	return "uploads/" + ownerID + "/" + fileID
}

func OwnedBy(fileID, ownerID string) bool {
	return strings.HasPrefix(fileID, "uploads/"+ownerID+"/")
}

func AllowedContentType(contentType string) bool {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	_, ok := AllowedContentTypes[strings.ToLower(base)]
	return ok
}
