// Package file turns multipart uploads into stored objects and attachment
// records.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	s3pkg "github.com/Alijeyrad/dentlab_backend/pkg/s3"
)

var (
	ErrUnsupportedType = errors.New("Only image files are allowed")
	ErrNoFiles         = errors.New("No files uploaded")
	ErrForeignURL      = errors.New("File is not stored in this bucket")
)

// Folder is the key prefix an upload is stored under.
type Folder string

const (
	FolderCases    Folder = "cases"
	FolderUsers    Folder = "users"
	FolderAdmins   Folder = "admins"
	FolderProducts Folder = "products"
	FolderSettings Folder = "settings"
	FolderMessages Folder = "messages"
)

// imagesOnly reports whether the folder accepts image uploads only.
func (f Folder) imagesOnly() bool {
	switch f {
	case FolderUsers, FolderAdmins, FolderProducts, FolderSettings:
		return true
	}
	return false
}

// Objects is the subset of the bucket client the service needs.
type Objects interface {
	UploadFile(ctx context.Context, prefix string, fh *multipart.FileHeader) (*s3pkg.Object, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(u string) (string, bool)
	PresignDownload(ctx context.Context, key string) (string, error)
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Upload(ctx context.Context, folder Folder, files []*multipart.FileHeader) ([]repo.Attachment, error)
	UploadURLs(ctx context.Context, folder Folder, files []*multipart.FileHeader) ([]string, error)
	Remove(ctx context.Context, urls ...string)
	// DownloadURL returns a short-lived link to a stored object.
	DownloadURL(ctx context.Context, url string) (string, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type fileService struct {
	objects Objects
	now     func() time.Time
}

func New(objects Objects) Service {
	return &fileService{objects: objects, now: time.Now}
}

// Upload stores every file or none: on the first failure objects already
// written are removed again.
func (s *fileService) Upload(ctx context.Context, folder Folder, files []*multipart.FileHeader) ([]repo.Attachment, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if folder.imagesOnly() {
		for _, fh := range files {
			if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
				return nil, ErrUnsupportedType
			}
		}
	}

	out := make([]repo.Attachment, 0, len(files))
	for _, fh := range files {
		obj, err := s.objects.UploadFile(ctx, string(folder), fh)
		if err != nil {
			s.Remove(ctx, lo.Map(out, func(a repo.Attachment, _ int) string { return a.FileURL })...)
			return nil, fmt.Errorf("upload %q: %w", fh.Filename, err)
		}
		out = append(out, repo.Attachment{FileURL: obj.URL, FileName: obj.FileName, UploadedAt: s.now().UTC()})
	}
	return out, nil
}

func (s *fileService) UploadURLs(ctx context.Context, folder Folder, files []*multipart.FileHeader) ([]string, error) {
	atts, err := s.Upload(ctx, folder, files)
	if err != nil {
		return nil, err
	}
	return lo.Map(atts, func(a repo.Attachment, _ int) string { return a.FileURL }), nil
}

// Remove deletes the objects behind urls. URLs outside the bucket are
// ignored and failures are only logged.
func (s *fileService) Remove(ctx context.Context, urls ...string) {
	for _, u := range urls {
		key, ok := s.objects.KeyFromURL(u)
		if !ok {
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "file: delete object failed", "key", key, "error", err)
		}
	}
}

func (s *fileService) DownloadURL(ctx context.Context, url string) (string, error) {
	key, ok := s.objects.KeyFromURL(strings.TrimSpace(url))
	if !ok {
		return "", ErrForeignURL
	}
	link, err := s.objects.PresignDownload(ctx, key)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return link, nil
}
