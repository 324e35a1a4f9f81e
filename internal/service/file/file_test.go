package file

import (
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	s3pkg "github.com/Alijeyrad/dentlab_backend/pkg/s3"
)

const base = "https://cdn.example.com/dentlab"

type fakeObjects struct {
	stored  map[string]bool
	failOn  string
	deleted []string
}

func (f *fakeObjects) UploadFile(_ context.Context, prefix string, fh *multipart.FileHeader) (*s3pkg.Object, error) {
	if fh.Filename == f.failOn {
		return nil, errors.New("bucket unavailable")
	}
	key := prefix + "/" + fh.Filename
	f.stored[key] = true
	return &s3pkg.Object{Key: key, URL: base + "/" + key, FileName: fh.Filename, Size: fh.Size}, nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	delete(f.stored, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) KeyFromURL(u string) (string, bool) {
	if !strings.HasPrefix(u, base+"/") {
		return "", false
	}
	return strings.TrimPrefix(u, base+"/"), true
}

func (f *fakeObjects) PresignDownload(_ context.Context, key string) (string, error) {
	return base + "/" + key + "?X-Amz-Signature=sig", nil
}

func header(name, contentType string) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	return &multipart.FileHeader{Filename: name, Header: h, Size: 10}
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name    string
		folder  Folder
		files   []*multipart.FileHeader
		wantErr error
		wantN   int
	}{
		{"case scan", FolderCases, []*multipart.FileHeader{header("scan.stl", "model/stl"), header("xray.png", "image/png")}, nil, 2},
		{"avatar", FolderUsers, []*multipart.FileHeader{header("me.jpg", "image/jpeg")}, nil, 1},
		{"pdf as avatar", FolderUsers, []*multipart.FileHeader{header("cv.pdf", "application/pdf")}, ErrUnsupportedType, 0},
		{"nothing", FolderProducts, nil, ErrNoFiles, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objs := &fakeObjects{stored: map[string]bool{}}
			atts, err := New(objs).Upload(context.Background(), tt.folder, tt.files)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(atts) != tt.wantN {
				t.Fatalf("attachments = %d, want %d", len(atts), tt.wantN)
			}
			for _, a := range atts {
				if !strings.HasPrefix(a.FileURL, base+"/"+string(tt.folder)+"/") || a.UploadedAt.IsZero() {
					t.Errorf("attachment = %+v", a)
				}
			}
		})
	}
}

func TestUploadRollsBackOnFailure(t *testing.T) {
	objs := &fakeObjects{stored: map[string]bool{}, failOn: "b.stl"}
	_, err := New(objs).Upload(context.Background(), FolderCases, []*multipart.FileHeader{
		header("a.stl", "model/stl"),
		header("b.stl", "model/stl"),
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(objs.stored) != 0 {
		t.Errorf("objects left behind: %v", objs.stored)
	}
}

func TestRemoveSkipsForeignURLs(t *testing.T) {
	objs := &fakeObjects{stored: map[string]bool{"products/p.png": true}}
	New(objs).Remove(context.Background(), base+"/products/p.png", "https://elsewhere.org/x.png")
	if len(objs.deleted) != 1 || objs.deleted[0] != "products/p.png" {
		t.Errorf("deleted = %v", objs.deleted)
	}
}

func TestDownloadURL(t *testing.T) {
	svc := New(&fakeObjects{stored: map[string]bool{}})

	link, err := svc.DownloadURL(context.Background(), base+"/cases/scan.stl")
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.Contains(link, "cases/scan.stl?X-Amz-Signature=") {
		t.Errorf("link = %q", link)
	}

	if _, err := svc.DownloadURL(context.Background(), "https://elsewhere.example.com/a.png"); !errors.Is(err, ErrForeignURL) {
		t.Errorf("foreign url err = %v, want ErrForeignURL", err)
	}
}
