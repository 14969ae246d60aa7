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
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/storage"
)

var _ Runner = (*Docker)(nil)

// ContainerWorkingDir is the directory the task files are copied to inside the container
const ContainerWorkingDir = "/workdir"

// Docker runs the commands in a container started with testcontainers
type Docker struct {
	storage storage.Storage
	fs      afero.Fs
}

// NewDocker creates a container runner copying the task files from the os filesystem
func NewDocker(store storage.Storage) *Docker {
	return &Docker{storage: store, fs: afero.NewOsFs()}
}

// Name returns the runner type
func (d *Docker) Name() Type {
	return TypeDocker
}

// AdditionalVars exposes the working directory inside the container
func (d *Docker) AdditionalVars(_ string) map[string]any {
	return map[string]any{WorkingDirVar: ContainerWorkingDir}
}

// Run copies the working directory into a new container, runs the commands and waits for the container to exit.
// The container log is a single stream, all lines are counted as stdout.
func (d *Docker) Run(ctx context.Context, cmds *Commands) (*ScriptOutput, error) {
	log := logger.FromContext(ctx)
	if err := validate(cmds); err != nil {
		return nil, err
	}
	if cmds.ContainerImage == "" {
		return nil, fmt.Errorf("no container image given")
	}

	files, err := d.containerFiles(cmds.WorkingDir)
	if err != nil {
		return nil, err
	}

	script := fmt.Sprintf("mkdir -p %[1]s && cd %[1]s\n%[2]s", ContainerWorkingDir, cmds.Script())
	entrypoint, cmd := cmds.Interpreter, []string{script}
	if len(cmds.ContainerEntryPoint) > 0 {
		entrypoint = cmds.ContainerEntryPoint
		cmd = append(append([]string{}, cmds.Interpreter...), script)
	}
	req := testcontainers.ContainerRequest{
		Image:      cmds.ContainerImage,
		Entrypoint: entrypoint,
		Cmd:        cmd,
		Env:        cmds.Env,
		Files:      files,
		WaitingFor: wait.ForExit(),
	}

	log.Debug("Starting container", "image", cmds.ContainerImage, "files", len(files))
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	defer func() {
		if tErr := testcontainers.TerminateContainer(container); tErr != nil {
			log.Warn("Failed to terminate container", "error", tErr)
		}
	}()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to run container: %w", err)
	}

	state, err := container.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container state: %w", err)
	}

	c := newCollector(ctx)
	logs, err := container.Logs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	readErr := c.consume(logs, false)
	if cErr := logs.Close(); cErr != nil {
		log.Warn("Failed to close container logs", "error", cErr)
	}
	if readErr != nil {
		log.Warn("Container logs could not be read completely", "error", readErr)
	}

	out := c.output(state.ExitCode)
	out.OutputFiles, err = uploadOutputs(ctx, d.storage, cmds, func(ctx context.Context, name string) (io.ReadCloser, error) {
		return container.CopyFileFromContainer(ctx, path.Join(ContainerWorkingDir, name))
	})
	if err != nil {
		return out, err
	}

	log.Debug("Container finished", "exitCode", state.ExitCode, "stdout", out.StdOutLineCount)
	if state.ExitCode != 0 {
		return out, &ExitCodeError{ExitCode: state.ExitCode}
	}
	return out, nil
}

// containerFiles lists the files of the working directory with their target in the container
func (d *Docker) containerFiles(workingDir string) ([]testcontainers.ContainerFile, error) {
	var files []testcontainers.ContainerFile
	err := afero.Walk(d.fs, workingDir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(workingDir, p)
		if err != nil {
			return err
		}
		files = append(files, testcontainers.ContainerFile{
			HostFilePath:      p,
			ContainerFilePath: path.Join(ContainerWorkingDir, filepath.ToSlash(rel)),
			FileMode:          0o644,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list working directory: %w", err)
	}
	return files, nil
}
