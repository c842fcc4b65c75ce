package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemSink writes report documents under a root directory.
type FilesystemSink struct {
	root string
}

// NewFilesystemSink returns a sink rooted at path, creating it if needed.
func NewFilesystemSink(root string) (*FilesystemSink, error) {
	if root == "" {
		root = "./reports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create report root: %w", err)
	}
	return &FilesystemSink{root: root}, nil
}

// Driver implements Sink.
func (s *FilesystemSink) Driver() Driver { return DriverFilesystem }

// sanitizeName rejects names that would escape the root.
func sanitizeName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("empty report name")
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	if strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	return clean, nil
}

// Put implements Sink. The document lands via a temp file and rename so a
// half-written report is never observable.
func (s *FilesystemSink) Put(_ context.Context, name string, r io.Reader) (string, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}
