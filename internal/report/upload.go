package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"epcsync/internal/port"
)

var contentTypes = map[string]string{
	".json": "application/json",
	".csv":  "text/csv; charset=utf-8",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// Uploader copies written report files to object storage under
// <prefix>reports/<name>.
type Uploader struct {
	storage port.ObjectStorage
	bucket  string
	prefix  string
}

// NewUploader creates an Uploader.
func NewUploader(storage port.ObjectStorage, bucket, prefix string) *Uploader {
	return &Uploader{storage: storage, bucket: bucket, prefix: prefix}
}

// Key returns the object key a report file is stored under.
func (u *Uploader) Key(path string) string {
	return u.prefix + "reports/" + filepath.Base(path)
}

// UploadFile uploads one report file and returns its location.
func (u *Uploader) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}

	ct := contentTypes[filepath.Ext(path)]
	if ct == "" {
		ct = "application/octet-stream"
	}
	out, err := u.storage.Upload(ctx, port.UploadInput{
		Bucket:      u.bucket,
		Key:         u.Key(path),
		Body:        f,
		ContentType: ct,
		Size:        info.Size(),
	})
	if err != nil {
		return "", err
	}
	logrus.Infof("report.Uploader: uploaded %s to %s", filepath.Base(path), out.Location)
	return out.Location, nil
}
