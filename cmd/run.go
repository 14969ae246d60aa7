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

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/config"
	"github.com/caas-team/sodascan/pkg/controller"
	"github.com/caas-team/sodascan/pkg/metrics"
	"github.com/caas-team/sodascan/pkg/models"
	"github.com/caas-team/sodascan/pkg/soda"
	"github.com/caas-team/sodascan/pkg/storage"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	telemetryShutdownTimeout = 10 * time.Second
)

// ErrScanNotSuccessful is returned if the scan finished with a state failing the command
var ErrScanNotSuccessful = errors.New("scan was not successful")

type runOptions struct {
	output        string
	failOnWarning bool
}

// NewCmdRun creates a new run command
func NewCmdRun() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single scan",
		Long: "Runs the scan task read from a file or an http(s) url and prints its output.\n" +
			"The command fails if the scan fails or ends in the FAILED state.",
		SilenceUsage: true,
		RunE:         run(&flagMapping, opts),
	}

	NewFlag("task.source", flagMapping.TaskSource).StringP("f").Bind(cmd, "",
		"The file path or http(s) url of the scan task")
	NewFlag("task.http.token", flagMapping.TaskHttpToken).String().Bind(cmd, "",
		"http task: Bearer token to authenticate the http endpoint")
	NewFlag("task.http.timeout", flagMapping.TaskHttpTimeout).Int().Bind(cmd, 30,
		"http task: The timeout for the http request in seconds")
	NewFlag("task.http.retryCount", flagMapping.TaskHttpRetryCount).Int().Bind(cmd, 3,
		"http task: Amount of retries trying to load the task")
	NewFlag("task.http.retryDelay", flagMapping.TaskHttpRetryDelay).Int().Bind(cmd, 1,
		"http task: The initial delay between retries in seconds")

	cmd.Flags().StringVarP(&opts.output, "output", "o", formatJSON, "The format of the printed output, json or yaml")
	cmd.Flags().BoolVar(&opts.failOnWarning, "fail-on-warning", false, "Fail the command if the scan ends in the WARNING state")

	return cmd
}

// run is the entry point to run a single scan
func run(fm *config.FlagsNameMapping, opts *runOptions) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if opts.output != formatJSON && opts.output != formatYAML {
			return fmt.Errorf("unsupported output format %q", opts.output)
		}

		log := logger.NewLogger()
		ctx, cancel := signal.NotifyContext(logger.IntoContext(cmd.Context(), log), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg := loadConfig()
		if err := errors.Join(cfg.Validate(ctx, fm), cfg.ValidateTask(ctx, fm)); err != nil {
			log.Error("Error while validating the config", "error", err)
			return fmt.Errorf("invalid configuration: %w", err)
		}

		raw, err := config.NewLoader(cfg).Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load task: %w", err)
		}
		scan, err := soda.Decode(raw)
		if err != nil {
			return err
		}

		m := metrics.New(cfg.Telemetry, cmd.Root().Version)
		if err := m.Initialize(ctx); err != nil {
			return err
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
			defer scancel()
			if err := m.Shutdown(sctx); err != nil {
				log.Warn("Failed to flush telemetry", "error", err)
			}
		}()

		store := storage.NewLocal(afero.NewOsFs(), cfg.Storage.Path)
		sc := controller.NewScanController(nil, m.Sink(), store, cfg.Runner)

		log.Info("Running scan", "task", cfg.Task.Source)
		out, err := sc.Execute(ctx, scan)
		if err != nil {
			return err
		}

		if err := printOutput(cmd.OutOrStdout(), out, opts.output); err != nil {
			return err
		}
		return checkState(out, opts.failOnWarning)
	}
}

// printOutput writes the scan output in the given format
func printOutput(w io.Writer, out *soda.Output, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return nil
	}
}

// checkState fails for FAILED scans and, if asked for, WARNING scans
func checkState(out *soda.Output, failOnWarning bool) error {
	state, ok := out.FinalState()
	if !ok {
		return fmt.Errorf("%w: no result", ErrScanNotSuccessful)
	}
	switch {
	case state == models.StateFailed:
		return fmt.Errorf("%w: state %s", ErrScanNotSuccessful, state)
	case state == models.StateWarning && failOnWarning:
		return fmt.Errorf("%w: state %s", ErrScanNotSuccessful, state)
	default:
		return nil
	}
}
