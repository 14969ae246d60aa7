// sodascan
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package storage keeps the files a task execution produces, such as the
// scan result, and hands out URIs to read them back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/caas-team/sodascan/internal/logger"
)

// Scheme is the URI scheme of stored files
const Scheme = "storage"

var (
	// ErrNotFound is returned when no file is stored under the URI
	ErrNotFound = errors.New("file not found in storage")
	// ErrInvalidURI is returned for URIs not pointing into the storage
	ErrInvalidURI = errors.New("invalid storage uri")
)

// Storage stores and retrieves files by URI
type Storage interface {
	// Put stores the content read from r under the given path and returns its URI
	Put(ctx context.Context, path string, r io.Reader) (string, error)
	// Get opens the file stored under the URI
	Get(ctx context.Context, uri string) (io.ReadCloser, error)
}

var _ Storage = (*Local)(nil)

// Local is a Storage backed by a directory of an afero filesystem
type Local struct {
	fs   afero.Fs
	root string
}

// NewLocal creates a storage rooted at root on the given filesystem
func NewLocal(fs afero.Fs, root string) *Local {
	return &Local{fs: fs, root: filepath.Clean(root)}
}

// Put stores the content read from r under p
func (l *Local) Put(ctx context.Context, p string, r io.Reader) (string, error) {
	log := logger.FromContext(ctx)
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}

	target := filepath.Join(l.root, filepath.FromSlash(clean))
	if err := l.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		log.Error("Failed to create storage directory", "path", target, "error", err)
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	f, err := l.fs.Create(target)
	if err != nil {
		log.Error("Failed to create storage file", "path", target, "error", err)
		return "", fmt.Errorf("failed to create storage file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil {
			log.Error("Failed to close storage file", "path", target, "error", cErr)
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write storage file: %w", err)
	}

	uri := URI(clean)
	log.Debug("Stored file", "uri", uri)
	return uri, nil
}

// Get opens the file the uri points to
func (l *Local) Get(_ context.Context, uri string) (io.ReadCloser, error) {
	p, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	f, err := l.fs.Open(filepath.Join(l.root, filepath.FromSlash(p)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return f, nil
}

// URI returns the storage uri of the given path
func URI(p string) string {
	return (&url.URL{Scheme: Scheme, Path: "/" + strings.TrimPrefix(p, "/")}).String()
}

// ParseURI returns the path a storage uri points to
func ParseURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != Scheme || u.Host != "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	return cleanPath(u.Path)
}

// cleanPath normalizes p and rejects paths escaping the storage root
func cleanPath(p string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(p))
	if clean == "/" || strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: path %q", ErrInvalidURI, p)
	}
	return strings.TrimPrefix(clean, "/"), nil
}
