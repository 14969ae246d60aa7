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

// Package soda runs Soda data quality scans. A scan renders its
// configuration and checks into a working directory together with a small
// Python driver, executes the driver with a runner and maps the JSON result
// of the scan to a final state.
package soda

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/metrics"
	"github.com/caas-team/sodascan/pkg/models"
	"github.com/caas-team/sodascan/pkg/runctx"
	"github.com/caas-team/sodascan/pkg/runner"
)

const (
	// DefaultImage is the container image used if none is configured
	DefaultImage = "sodadata/soda-core"
	// DataSourceName is the data source the scan runs against. The configuration must define it.
	DataSourceName = "kestra"
)

// EmptyConfiguration decides how a scan treats an empty configuration
type EmptyConfiguration string

const (
	// EmptyConfigurationSkip omits configuration.yml
	EmptyConfigurationSkip EmptyConfiguration = "skip"
	// EmptyConfigurationReject fails the validation
	EmptyConfigurationReject EmptyConfiguration = "reject"
)

var (
	// ErrInvalidTask is returned if the task properties are invalid
	ErrInvalidTask = errors.New("invalid scan task")
	// ErrMissingExitCode is returned if the driver did not announce its exit code
	ErrMissingExitCode = errors.New("scan did not report an exit code")
	// ErrResultNotFound is returned if the scan did not produce a result file
	ErrResultNotFound = errors.New("scan result not found")
)

// TaskRunner selects the runner of a scan
type TaskRunner struct {
	Type runner.Type `json:"type" yaml:"type" mapstructure:"type" validate:"omitempty,oneof=docker process"`
}

// DockerOptions are the deprecated container options
type DockerOptions struct {
	Image      string   `json:"image,omitempty" yaml:"image,omitempty" mapstructure:"image"`
	EntryPoint []string `json:"entryPoint,omitempty" yaml:"entryPoint,omitempty" mapstructure:"entryPoint"`
}

// Scan is a data quality scan task
type Scan struct {
	// Configuration is rendered to configuration.yml and defines the data source
	Configuration map[string]any `json:"configuration" yaml:"configuration" mapstructure:"configuration" validate:"required"`
	// Checks are the SodaCL checks rendered to checks.yml
	Checks map[string]any `json:"checks" yaml:"checks" mapstructure:"checks" validate:"required,min=1"`
	// Variables are passed to the scan
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty" mapstructure:"variables"`
	// Verbose enables the verbose output of the scan
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty" mapstructure:"verbose"`
	// Requirements are the python dependencies installed into a virtual environment
	Requirements []string `json:"requirements,omitempty" yaml:"requirements,omitempty" mapstructure:"requirements"`
	// Env are additional environment variables
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty" mapstructure:"env"`
	// InputFiles are extra files for the working directory, as map or JSON string
	InputFiles any `json:"inputFiles,omitempty" yaml:"inputFiles,omitempty" mapstructure:"inputFiles"`
	// ContainerImage is the image of container runners
	ContainerImage string `json:"containerImage,omitempty" yaml:"containerImage,omitempty" mapstructure:"containerImage"`
	// TaskRunner selects the runner
	TaskRunner *TaskRunner `json:"taskRunner,omitempty" yaml:"taskRunner,omitempty" mapstructure:"taskRunner"`
	// EmptyConfiguration decides how an empty configuration is treated
	EmptyConfiguration EmptyConfiguration `json:"emptyConfiguration,omitempty" yaml:"emptyConfiguration,omitempty" mapstructure:"emptyConfiguration" validate:"omitempty,oneof=skip reject"`

	// Runner is deprecated, use TaskRunner
	Runner string `json:"runner,omitempty" yaml:"runner,omitempty" mapstructure:"runner" validate:"omitempty,oneof=PROCESS DOCKER process docker"`
	// Docker is deprecated, use TaskRunner and ContainerImage
	Docker *DockerOptions `json:"docker,omitempty" yaml:"docker,omitempty" mapstructure:"docker"`
	// DockerOptions is a deprecated alias of Docker
	DockerOptions *DockerOptions `json:"dockerOptions,omitempty" yaml:"dockerOptions,omitempty" mapstructure:"dockerOptions"`
}

// Output is the result of a scan execution
type Output struct {
	// ExecutionID identifies the execution
	ExecutionID string `json:"executionId" yaml:"executionId"`
	// Result is the parsed scan result
	Result *models.ScanResult `json:"result" yaml:"result"`
	// StdOutLineCount is the number of lines the scan wrote to stdout
	StdOutLineCount int `json:"stdOutLineCount" yaml:"stdOutLineCount"`
	// StdErrLineCount is the number of lines the scan wrote to stderr
	StdErrLineCount int `json:"stdErrLineCount" yaml:"stdErrLineCount"`
	// ExitCode is the exit code of the scan
	ExitCode int `json:"exitCode" yaml:"exitCode"`
	// Configuration is the rendered configuration
	Configuration map[string]any `json:"configuration" yaml:"configuration"`
	// State is the final state of the scan
	State models.State `json:"state" yaml:"state"`
	// Metrics are the metrics reported by the scan
	Metrics []metrics.Counter `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	// OutputFiles maps the output files to their storage uri
	OutputFiles map[string]string `json:"outputFiles,omitempty" yaml:"outputFiles,omitempty"`
}

// FinalState returns the state derived from the scan result
func (o *Output) FinalState() (models.State, bool) {
	if o == nil || o.Result == nil {
		return "", false
	}
	return o.Result.State(), true
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the task properties
func (s *Scan) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	if s.EmptyConfiguration == EmptyConfigurationReject && len(s.Configuration) == 0 {
		return fmt.Errorf("%w: configuration must not be empty", ErrInvalidTask)
	}
	return nil
}

// ApplyDefaults sets the runner type and the empty configuration mode
// if the task leaves them unset
func (s *Scan) ApplyDefaults(runnerType runner.Type, mode EmptyConfiguration) {
	if s.Runner == "" && (s.TaskRunner == nil || s.TaskRunner.Type == "") && runnerType != "" {
		s.TaskRunner = &TaskRunner{Type: runnerType}
	}
	if s.EmptyConfiguration == "" {
		s.EmptyConfiguration = mode
	}
}

// RunnerType resolves and parses the runner of the task.
// The deprecated runner property wins over the task runner, docker is the fallback.
func (s *Scan) RunnerType() (runner.Type, error) {
	switch {
	case s.Runner != "":
		return runner.ParseType(s.Runner)
	case s.TaskRunner != nil && s.TaskRunner.Type != "":
		return runner.ParseType(string(s.TaskRunner.Type))
	}
	return runner.TypeDocker, nil
}

// runnerType resolves the runner. The deprecated runner property wins over the task runner.
func (s *Scan) runnerType(ctx context.Context) runner.Type {
	if s.Runner != "" {
		logger.FromContext(ctx).Warn("The runner property is deprecated, use taskRunner instead", "runner", s.Runner)
		return runner.Type(strings.ToLower(s.Runner))
	}
	if s.TaskRunner != nil && s.TaskRunner.Type != "" {
		return s.TaskRunner.Type
	}
	return runner.TypeDocker
}

// dockerOptions returns the deprecated docker options
func (s *Scan) dockerOptions() *DockerOptions {
	if s.Docker != nil {
		return s.Docker
	}
	return s.DockerOptions
}

const tracerName = "github.com/caas-team/sodascan/pkg/soda"

// Run executes the scan within the given run context
func (s *Scan) Run(ctx context.Context, rc *runctx.RunContext) (*Output, error) {
	log := logger.FromContext(ctx).With("execution", rc.ExecutionID)
	ctx = logger.IntoContext(ctx, log)
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "soda.Scan", trace.WithAttributes(attribute.String("execution.id", rc.ExecutionID)))
	defer span.End()

	if err := s.Validate(); err != nil {
		log.Error("Invalid scan task", "error", err)
		return nil, spanError(span, err)
	}

	r, err := runner.New(s.runnerType(ctx), rc.Storage)
	if err != nil {
		return nil, spanError(span, fmt.Errorf("%w: %w", ErrInvalidTask, err))
	}
	span.SetAttributes(attribute.String("runner", r.Name().String()))

	dir, err := rc.WorkingDir(ctx)
	if err != nil {
		return nil, spanError(span, err)
	}
	defer rc.Cleanup(ctx)

	actx, aspan := tracer.Start(ctx, "soda.assemble")
	assembled, err := s.assemble(actx, rc, r, dir)
	aspan.End()
	if err != nil {
		log.Error("Failed to assemble scan", "error", err)
		return nil, spanError(span, err)
	}

	log.Info("Starting scan", "runner", r.Name(), "image", assembled.commands.ContainerImage)
	ectx, espan := tracer.Start(ctx, "soda.execute")
	out, err := r.Run(ectx, assembled.commands)
	espan.End()
	if err != nil {
		log.Error("Scan execution failed", "error", err)
		return nil, spanError(span, fmt.Errorf("scan execution failed: %w", err))
	}

	exitCode, err := exitCodeOf(out.Vars)
	if err != nil {
		return nil, spanError(span, err)
	}

	recorder := metrics.NewRecorder()
	ictx, ispan := tracer.Start(ctx, "soda.interpret")
	result, err := interpret(ictx, rc.Storage, metrics.Multi(rc.Metrics, recorder), out)
	ispan.End()
	if err != nil {
		log.Error("Failed to interpret scan result", "error", err)
		return nil, spanError(span, err)
	}

	output := &Output{
		ExecutionID:     rc.ExecutionID,
		Result:          result,
		StdOutLineCount: out.StdOutLineCount,
		StdErrLineCount: out.StdErrLineCount,
		ExitCode:        exitCode,
		Configuration:   assembled.configuration,
		State:           result.State(),
		Metrics:         recorder.Counters(),
		OutputFiles:     out.OutputFiles,
	}
	span.SetAttributes(attribute.String("state", string(output.State)))
	log.Info("Scan finished", "state", output.State, "exitCode", exitCode,
		"checks", len(result.Checks), "failed", len(result.ChecksByOutcome(models.OutcomeFail)))
	return output, nil
}

// exitCodeOf reads the exit code the driver announced
func exitCodeOf(vars map[string]any) (int, error) {
	v, ok := vars[runner.ExitCodeVar]
	if !ok || v == nil {
		return 0, ErrMissingExitCode
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: unexpected value %v", ErrMissingExitCode, v)
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
