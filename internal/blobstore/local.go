package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files under a root directory and returns URLs below a public
// base, e.g. /uploads/tickets/HD-7K2Q9XAB/<uuid>_log.txt.
type Local struct {
	root    string
	baseURL string
}

// NewLocal returns a filesystem-backed store.
func NewLocal(root, publicBaseURL string) *Local {
	return &Local{root: root, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Save writes the upload below the root directory and returns its public URL.
func (l *Local) Save(ctx context.Context, upload Upload, dir string) (string, error) {
	if len(upload.Data) == 0 {
		return "", ErrEmptyUpload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := objectName(dir, upload.FileName)
	if err != nil {
		return "", err
	}
	full := filepath.Join(l.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(full, upload.Data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return l.baseURL + "/" + name, nil
}
