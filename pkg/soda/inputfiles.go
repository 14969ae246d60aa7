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

package soda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/afero"

	"github.com/caas-team/sodascan/internal/httpclient"
	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/runctx"
	"github.com/caas-team/sodascan/pkg/storage"
)

const (
	filePrefix    = "file://"
	httpPrefix    = "http://"
	httpsPrefix   = "https://"
	storagePrefix = storage.Scheme + "://"
)

// inputFiles renders the input files and resolves their content
func (s *Scan) inputFiles(ctx context.Context, rc *runctx.RunContext, vars map[string]any) (map[string]string, error) {
	raw, err := s.rawInputFiles(rc, vars)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(raw))
	for name, content := range raw {
		rendered, err := rc.Render(content, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to render input file %s: %w", name, err)
		}
		resolved, err := resolveContent(ctx, rc, rendered)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve input file %s: %w", name, err)
		}
		files[name] = resolved
	}
	return files, nil
}

// rawInputFiles accepts the input files as map or as JSON string
func (s *Scan) rawInputFiles(rc *runctx.RunContext, vars map[string]any) (map[string]string, error) {
	switch v := s.InputFiles.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]any:
		files := make(map[string]string, len(v))
		for name, content := range v {
			str, ok := content.(string)
			if !ok {
				return nil, fmt.Errorf("%w: input file %s must be a string, got %T", ErrInvalidTask, name, content)
			}
			files[name] = str
		}
		return files, nil
	case string:
		rendered, err := rc.Render(v, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to render input files: %w", err)
		}
		files := map[string]string{}
		if err := json.Unmarshal([]byte(rendered), &files); err != nil {
			return nil, fmt.Errorf("%w: input files must be a JSON object of strings: %w", ErrInvalidTask, err)
		}
		return files, nil
	default:
		return nil, fmt.Errorf("%w: unsupported input files type %T", ErrInvalidTask, v)
	}
}

// resolveContent loads referenced content, other content is returned as is
func resolveContent(ctx context.Context, rc *runctx.RunContext, content string) (string, error) {
	switch {
	case strings.HasPrefix(content, storagePrefix):
		f, err := rc.Storage.Get(ctx, content)
		if err != nil {
			return "", err
		}
		return readAll(ctx, f)
	case strings.HasPrefix(content, filePrefix):
		if !rc.HostFiles {
			return "", fmt.Errorf("%w: reading host files is disabled: %s", ErrInvalidTask, content)
		}
		b, err := afero.ReadFile(rc.Fs, strings.TrimPrefix(content, filePrefix))
		if err != nil {
			return "", err
		}
		return string(b), nil
	case strings.HasPrefix(content, httpPrefix), strings.HasPrefix(content, httpsPrefix):
		return fetch(ctx, content)
	default:
		return content, nil
	}
}

// fetch downloads the content with the client of the context
func fetch(ctx context.Context, url string) (string, error) {
	log := logger.FromContext(ctx)
	client := httpclient.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Error("Failed to fetch input file", "url", url, "error", err)
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return "", fmt.Errorf("request to %s failed with status %d", url, resp.StatusCode)
	}
	return readAll(ctx, resp.Body)
}

func readAll(ctx context.Context, rc io.ReadCloser) (string, error) {
	defer func() {
		if err := rc.Close(); err != nil {
			logger.FromContext(ctx).Warn("Failed to close input file", "error", err)
		}
	}()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
