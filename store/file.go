package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists each in-flight message as its own JSON file under dir,
// one file per packet identifier. Every operation is synchronous.
type FileStore struct {
	dir         string
	permissions os.FileMode
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithPermissions sets the file mode used for stored message files. Default
// is 0644.
func WithPermissions(perm os.FileMode) FileStoreOption {
	return func(f *FileStore) { f.permissions = perm }
}

// NewFileStore creates a file-backed Store rooted at dir, creating it if
// necessary.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	fs := &FileStore{dir: dir, permissions: 0644}
	for _, opt := range opts {
		opt(fs)
	}

	if err := os.MkdirAll(dir, fs.permissions|0111); err != nil {
		return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
	}
	return fs, nil
}

func (f *FileStore) path(pid uint16) string {
	return filepath.Join(f.dir, fmt.Sprintf("message_%d.json", pid))
}

// Put implements Store.
func (f *FileStore) Put(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return &UnavailableError{Pid: msg.Pid, Err: err}
	}
	if err := os.WriteFile(f.path(msg.Pid), data, f.permissions); err != nil {
		return &UnavailableError{Pid: msg.Pid, Err: err}
	}
	return nil
}

// Get implements Store.
func (f *FileStore) Get(pid uint16) (Message, error) {
	data, err := os.ReadFile(f.path(pid))
	if os.IsNotExist(err) {
		return Message{}, &NotFoundError{Pid: pid}
	}
	if err != nil {
		return Message{}, &UnavailableError{Pid: pid, Err: err}
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, &UnavailableError{Pid: pid, Err: err}
	}
	return msg, nil
}

// Delete implements Store.
func (f *FileStore) Delete(pid uint16) error {
	err := os.Remove(f.path(pid))
	if err != nil && !os.IsNotExist(err) {
		return &UnavailableError{Pid: pid, Err: err}
	}
	return nil
}

var _ Store = (*FileStore)(nil)
