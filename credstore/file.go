package credstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	auth "github.com/Brij5/contentkoshn-sub001"
)

// fileState is the on-disk layout: exactly one durable key. The
// session itself is never persisted; it is re-derived from the
// backend after every restart.
type fileState struct {
	Credential string `json:"credential,omitempty"`
}

// File persists the credential in a JSON state file so it survives
// process restarts on the same machine. Writes go through a temp file
// and rename so a crash never leaves a torn state file.
type File struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	warnOnce sync.Once
}

var _ auth.CredentialStore = (*File)(nil)

// FileOption configures the File store.
type FileOption func(*File)

// WithFileLogger sets the logger used to report storage degradation.
func WithFileLogger(l *slog.Logger) FileOption {
	return func(f *File) { f.logger = l }
}

// NewFile creates a file-backed store at path. The parent directory is
// created on first write.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Get returns the stored credential, if any. An unreadable or corrupt
// state file reports absent.
func (f *File) Get(_ context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		f.degraded("read", err)
		return "", false
	}
	return st.Credential, st.Credential != ""
}

// Set stores the credential. Storage failure degrades to a logged
// no-op; callers never see an error.
func (f *File) Set(_ context.Context, credential string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.write(fileState{Credential: credential}); err != nil {
		f.degraded("write", err)
	}
	return nil
}

// Clear removes the stored credential. Like Set, failures degrade to a
// logged no-op.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		f.degraded("clear", err)
	}
	return nil
}

func (f *File) write(st fileState) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *File) degraded(op string, err error) {
	f.warnOnce.Do(func() {
		f.logger.Warn("credential storage degraded, continuing without persistence",
			"path", f.path, "op", op, "err", err)
	})
}
