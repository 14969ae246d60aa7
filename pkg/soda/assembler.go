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
	"errors"
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/runctx"
	"github.com/caas-team/sodascan/pkg/runner"
)

const (
	configurationFile = "configuration.yml"
	checksFile        = "checks.yml"
	mainFile          = "main.py"
	resultFile        = "result.json"
)

// interpreter runs the joined command lines
var interpreter = []string{"/bin/sh", "-c"}

// baseEnv is added to the task environment
var baseEnv = map[string]string{
	"PYTHONUNBUFFERED":     "true",
	"PIP_ROOT_USER_ACTION": "ignore",
}

// assembled is the prepared execution of a scan
type assembled struct {
	commands      *runner.Commands
	configuration map[string]any
	files         map[string]string
}

// assemble renders the task properties, writes the files into dir and builds the commands
func (s *Scan) assemble(ctx context.Context, rc *runctx.RunContext, r runner.Runner, dir string) (*assembled, error) {
	log := logger.FromContext(ctx)
	vars := r.AdditionalVars(dir)
	workingDir, _ := vars[runner.WorkingDirVar].(string)

	env, err := rc.RenderStringMap(s.Env, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render env: %w", err)
	}
	image, entryPoint, err := s.image(ctx, rc, vars)
	if err != nil {
		return nil, err
	}
	configuration, err := rc.RenderMap(s.Configuration, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render configuration: %w", err)
	}
	checks, err := rc.RenderMap(s.Checks, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render checks: %w", err)
	}
	variables, err := rc.RenderMap(s.Variables, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render variables: %w", err)
	}
	requirements, err := rc.RenderStrings(s.Requirements, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render requirements: %w", err)
	}

	files, err := s.inputFiles(ctx, rc, vars)
	if err != nil {
		return nil, err
	}

	generated, err := s.generatedFiles(ctx, configuration, checks, variables, workingDir)
	if err != nil {
		return nil, err
	}
	for name := range generated {
		if _, ok := files[name]; ok {
			log.Warn("Input file is replaced by a generated file", "file", name)
		}
	}
	maps.Copy(files, generated)

	if err := writeFiles(rc.Fs, dir, files); err != nil {
		return nil, err
	}

	cmdEnv := make(map[string]string, len(env)+len(baseEnv))
	maps.Copy(cmdEnv, env)
	maps.Copy(cmdEnv, baseEnv)

	log.Debug("Scan assembled", "dir", dir, "files", len(files), "requirements", len(requirements))
	return &assembled{
		commands: &runner.Commands{
			WorkingDir:          dir,
			Interpreter:         interpreter,
			Commands:            commandLines(workingDir, requirements),
			Env:                 cmdEnv,
			ContainerImage:      image,
			ContainerEntryPoint: entryPoint,
			OutputFiles:         []string{resultFile},
			StoragePrefix:       rc.StoragePrefix(),
		},
		configuration: configuration,
		files:         files,
	}, nil
}

// image resolves the container image. The deprecated docker options win over the container image.
func (s *Scan) image(ctx context.Context, rc *runctx.RunContext, vars map[string]any) (string, []string, error) {
	if opts := s.dockerOptions(); opts != nil {
		logger.FromContext(ctx).Warn("The docker property is deprecated, use taskRunner and containerImage instead")
		image := opts.Image
		if image == "" {
			image = DefaultImage
		}
		image, err := rc.Render(image, vars)
		if err != nil {
			return "", nil, fmt.Errorf("failed to render docker image: %w", err)
		}
		return image, opts.EntryPoint, nil
	}

	image, err := rc.Render(s.ContainerImage, vars)
	if err != nil {
		return "", nil, fmt.Errorf("failed to render container image: %w", err)
	}
	if image == "" {
		image = DefaultImage
	}
	return image, nil, nil
}

// generatedFiles returns configuration.yml, checks.yml and main.py
func (s *Scan) generatedFiles(ctx context.Context, configuration, checks, variables map[string]any, workingDir string) (map[string]string, error) {
	files := map[string]string{}

	if len(configuration) > 0 {
		b, err := yaml.Marshal(configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to encode configuration: %w", err)
		}
		files[configurationFile] = string(b)
	} else {
		logger.FromContext(ctx).Warn("Configuration is empty, skipping " + configurationFile)
	}

	b, err := yaml.Marshal(checks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checks: %w", err)
	}
	files[checksFile] = string(b)

	script, err := driver{workingDir: workingDir, verbose: s.Verbose, variables: variables}.script()
	if err != nil {
		return nil, err
	}
	files[mainFile] = script
	return files, nil
}

// commandLines returns the commands running the driver, inside a virtual environment if there are requirements
func commandLines(workingDir string, requirements []string) []string {
	driverPath := strings.TrimSuffix(workingDir, "/") + "/" + mainFile
	if len(requirements) == 0 {
		return []string{"python " + driverPath}
	}
	return []string{
		"set -o errexit",
		"python -m venv --system-site-packages " + workingDir + " > /dev/null",
		"./bin/pip install pip --upgrade > /dev/null",
		"./bin/pip install " + strings.Join(quoteAll(requirements), " ") + " > /dev/null",
		"./bin/python " + driverPath,
	}
}

// quoteAll quotes every argument for a posix shell
func quoteAll(args []string) []string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return quoted
}

// errInvalidFileName is returned for file names leaving the working directory
var errInvalidFileName = errors.New("invalid file name")

// writeFiles writes the files relative to dir
func writeFiles(fs afero.Fs, dir string, files map[string]string) error {
	for name, content := range files {
		clean := path.Clean(filepath.ToSlash(name))
		if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("%w: %q", errInvalidFileName, name)
		}
		target := filepath.Join(dir, filepath.FromSlash(clean))
		if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		if err := afero.WriteFile(fs, target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
