// Package blobstore persists ticket attachments and returns a locator for
// each stored file.
package blobstore

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload is one file received with a ticket.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Store saves uploads. A failure affects only the file being saved.
type Store interface {
	Save(ctx context.Context, upload Upload, dir string) (string, error)
}

// ErrEmptyUpload is returned for zero-byte files.
var ErrEmptyUpload = errors.New("blobstore: empty upload")

// objectName builds "<dir>/<uuid>_<base name>" with a cleaned directory.
func objectName(dir, fileName string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "", errors.New("blobstore: missing file name")
	}
	dir = strings.Trim(path.Clean("/"+strings.ReplaceAll(dir, "\\", "/")), "/")
	name := uuid.NewString() + "_" + base
	if dir == "" {
		return name, nil
	}
	return dir + "/" + name, nil
}
