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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/storage"
)

var _ Runner = (*Process)(nil)

// waitDelay is the time the output pipes are drained after the process was killed
const waitDelay = 5 * time.Second

// Process runs the commands as a local process group
type Process struct {
	storage storage.Storage
	fs      afero.Fs
}

// NewProcess creates a process runner reading its output files from the os filesystem
func NewProcess(store storage.Storage) *Process {
	return &Process{storage: store, fs: afero.NewOsFs()}
}

// Name returns the runner type
func (p *Process) Name() Type {
	return TypeProcess
}

// AdditionalVars exposes the host working directory
func (p *Process) AdditionalVars(workingDir string) map[string]any {
	return map[string]any{WorkingDirVar: workingDir}
}

// Run executes the commands with the host environment extended by the task environment.
// A cancelled context kills the whole process group.
func (p *Process) Run(ctx context.Context, cmds *Commands) (*ScriptOutput, error) {
	log := logger.FromContext(ctx)
	if err := validate(cmds); err != nil {
		return nil, err
	}

	args := append(append([]string{}, cmds.Interpreter[1:]...), cmds.Script())
	cmd := exec.CommandContext(ctx, cmds.Interpreter[0], args...) // #nosec G204
	cmd.Dir = cmds.WorkingDir
	cmd.Env = append(os.Environ(), environ(cmds.Env)...)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr: %w", err)
	}

	log.Debug("Starting process", "interpreter", cmds.Interpreter, "dir", cmds.WorkingDir)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	c := newCollector(ctx)
	var g errgroup.Group
	g.Go(func() error { return c.consume(stdout, false) })
	g.Go(func() error { return c.consume(stderr, true) })
	readErr := g.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		log.Warn("Process was cancelled", "error", ctx.Err())
		return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
	}
	if readErr != nil {
		log.Warn("Output could not be read completely", "error", readErr)
	}

	out := c.output(exitCode)
	out.OutputFiles, err = uploadOutputs(ctx, p.storage, cmds, func(_ context.Context, name string) (io.ReadCloser, error) {
		return p.fs.Open(filepath.Join(cmds.WorkingDir, filepath.FromSlash(name)))
	})
	if err != nil {
		return out, err
	}

	log.Debug("Process finished", "exitCode", exitCode, "stdout", out.StdOutLineCount, "stderr", out.StdErrLineCount)
	if exitCode != 0 {
		return out, &ExitCodeError{ExitCode: exitCode}
	}
	return out, nil
}

// environ converts the env map to sorted KEY=VALUE pairs
func environ(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}
