package blobstore

import (
	"context"
	"sync"
)

// Memory keeps uploads in process, keyed by locator.
type Memory struct {
	mu      sync.Mutex
	objects map[string]Upload
	// FailOn makes Save fail for the named files.
	FailOn map[string]error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{objects: map[string]Upload{}, FailOn: map[string]error{}}
}

// Save keeps the upload in memory and returns a mem:// locator.
func (m *Memory) Save(_ context.Context, upload Upload, dir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailOn[upload.FileName]; ok {
		return "", err
	}
	if len(upload.Data) == 0 {
		return "", ErrEmptyUpload
	}
	name, err := objectName(dir, upload.FileName)
	if err != nil {
		return "", err
	}
	locator := "mem://" + name
	m.objects[locator] = upload
	return locator, nil
}

// Get returns a stored upload.
func (m *Memory) Get(locator string) (Upload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.objects[locator]
	return u, ok
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
