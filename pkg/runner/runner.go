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

// Package runner executes the command lines of a task either as a local
// process or inside a container and collects their output.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caas-team/sodascan/pkg/storage"
)

// Type is the kind of runner a task is executed with
type Type string

const (
	// TypeProcess runs the commands as a process on the host
	TypeProcess Type = "process"
	// TypeDocker runs the commands in a container
	TypeDocker Type = "docker"
)

// String returns the string representation of the runner type
func (t Type) String() string {
	return string(t)
}

// ParseType parses a runner type case-insensitively
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := registry[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// WorkingDirVar is the name of the template variable holding the working directory
const WorkingDirVar = "workingDir"

// ExitCodeVar is the name of the output variable carrying the exit code of the driver
const ExitCodeVar = "exitCode"

// Runner executes command lines
type Runner interface {
	// Name returns the runner type
	Name() Type
	// AdditionalVars returns the template variables of the runner for the given host working directory
	AdditionalVars(workingDir string) map[string]any
	// Run executes the commands and returns their output. A non-zero
	// exit code returns the output together with an *ExitCodeError.
	Run(ctx context.Context, cmds *Commands) (*ScriptOutput, error)
}

// Commands describes what a runner executes
type Commands struct {
	// WorkingDir is the host directory holding the task files
	WorkingDir string
	// Interpreter is the command the joined command lines are passed to as last argument
	Interpreter []string
	// Commands are the command lines, executed as one script
	Commands []string
	// Env are the additional environment variables
	Env map[string]string
	// ContainerImage is the image used by container runners
	ContainerImage string
	// ContainerEntryPoint overrides the entrypoint of the image. If empty, the interpreter is the entrypoint.
	ContainerEntryPoint []string
	// OutputFiles are the files relative to the working directory uploaded to storage after the run
	OutputFiles []string
	// StoragePrefix is the storage path the output files are stored under
	StoragePrefix string
}

// Script returns the command lines joined to a single script
func (c *Commands) Script() string {
	return strings.Join(c.Commands, "\n")
}

// ScriptOutput is the result of a run
type ScriptOutput struct {
	// ExitCode is the exit code of the interpreter
	ExitCode int `json:"exitCode" yaml:"exitCode"`
	// StdOutLineCount is the number of lines written to stdout
	StdOutLineCount int `json:"stdOutLineCount" yaml:"stdOutLineCount"`
	// StdErrLineCount is the number of lines written to stderr
	StdErrLineCount int `json:"stdErrLineCount" yaml:"stdErrLineCount"`
	// Vars are the output variables announced with marker lines
	Vars map[string]any `json:"vars,omitempty" yaml:"vars,omitempty"`
	// OutputFiles maps output file names to their storage uri
	OutputFiles map[string]string `json:"outputFiles,omitempty" yaml:"outputFiles,omitempty"`
}

var (
	// ErrUnknownType is returned for unsupported runner types
	ErrUnknownType = errors.New("unknown runner type")
	// ErrExitCode is returned if the commands exit with a non-zero exit code
	ErrExitCode = errors.New("command exited with non-zero exit code")
	// ErrNoCommands is returned if there is nothing to execute
	ErrNoCommands = errors.New("no commands to execute")
)

// ExitCodeError carries the exit code of a failed run
type ExitCodeError struct {
	ExitCode int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("%s: %d", ErrExitCode, e.ExitCode)
}

func (e *ExitCodeError) Unwrap() error {
	return ErrExitCode
}

// factory creates a runner storing its output files in the given storage
type factory func(store storage.Storage) Runner

// registry contains the available runners
var registry = map[Type]factory{
	TypeProcess: func(store storage.Storage) Runner { return NewProcess(store) },
	TypeDocker:  func(store storage.Storage) Runner { return NewDocker(store) },
}

// New creates the runner of the given type
func New(t Type, store storage.Storage) (Runner, error) {
	if store == nil {
		return nil, errors.New("storage is nil")
	}
	if f, ok := registry[t]; ok {
		return f(store), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
}

func validate(cmds *Commands) error {
	if cmds == nil || len(cmds.Commands) == 0 {
		return ErrNoCommands
	}
	if len(cmds.Interpreter) == 0 {
		return errors.New("no interpreter given")
	}
	return nil
}
