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

package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path"
	"regexp"
	"sync"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/storage"
)

// markerPattern matches the lines a script announces its outputs with
var markerPattern = regexp.MustCompile(`^::(\{.*\})::$`)

// maxLineSize is the longest line read from the output streams
const maxLineSize = 1024 * 1024

type marker struct {
	Outputs map[string]any `json:"outputs"`
}

// collector counts, logs and parses the lines of the output streams
type collector struct {
	log    *slog.Logger
	mu     sync.Mutex
	stdout int
	stderr int
	vars   map[string]any
}

func newCollector(ctx context.Context) *collector {
	return &collector{
		log:  logger.FromContext(ctx),
		vars: map[string]any{},
	}
}

// consume reads r line by line until it is exhausted.
// Lines longer than maxLineSize are truncated. The reader is drained even
// after a read error so the writing process never blocks.
func (c *collector) consume(r io.Reader, stderr bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 64*1024)
	truncated := false
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			_, _ = io.Copy(io.Discard, r)
			return fmt.Errorf("failed to read output: %w", err)
		}

		if room := maxLineSize - len(line); room < len(chunk) {
			line = append(line, chunk[:max(room, 0)]...)
			truncated = true
		} else {
			line = append(line, chunk...)
		}
		if more {
			continue
		}

		if truncated {
			c.log.Warn("Output line truncated", "limit", maxLineSize)
		}
		c.line(string(line), stderr)
		line = line[:0]
		truncated = false
	}
}

// line handles a single output line
func (c *collector) line(line string, stderr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m := markerPattern.FindStringSubmatch(line); m != nil {
		var out marker
		if err := json.Unmarshal([]byte(m[1]), &out); err != nil {
			c.log.Warn("Invalid output marker", "line", line, "error", err)
		} else {
			maps.Copy(c.vars, out.Outputs)
			return
		}
	}

	if stderr {
		c.stderr++
		c.log.Warn(line, "stream", "stderr")
		return
	}
	c.stdout++
	c.log.Info(line, "stream", "stdout")
}

// output returns the collected output with the given exit code
func (c *collector) output(exitCode int) *ScriptOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &ScriptOutput{
		ExitCode:        exitCode,
		StdOutLineCount: c.stdout,
		StdErrLineCount: c.stderr,
		Vars:            maps.Clone(c.vars),
		OutputFiles:     map[string]string{},
	}
}

// opener opens an output file of a run
type opener func(ctx context.Context, name string) (io.ReadCloser, error)

// uploadOutputs stores the declared output files. Missing files are skipped.
func uploadOutputs(ctx context.Context, store storage.Storage, cmds *Commands, open opener) (map[string]string, error) {
	log := logger.FromContext(ctx)
	uris := make(map[string]string, len(cmds.OutputFiles))
	for _, name := range cmds.OutputFiles {
		rc, err := open(ctx, name)
		if err != nil {
			log.Warn("Output file not found", "file", name, "error", err)
			continue
		}
		uri, err := store.Put(ctx, path.Join(cmds.StoragePrefix, name), rc)
		if cErr := rc.Close(); cErr != nil {
			log.Warn("Failed to close output file", "file", name, "error", cErr)
		}
		if err != nil {
			return uris, fmt.Errorf("failed to store output file %s: %w", name, err)
		}
		uris[name] = uri
	}
	return uris, nil
}
