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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/config"
	"github.com/caas-team/sodascan/pkg/server"
)

// NewCmdServe creates a new serve command
func NewCmdServe() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan api",
		Long: "Starts an api running scans on request.\n" +
			"The outputs of finished scans are kept in memory until the server stops.",
		SilenceUsage: true,
		RunE:         serve(&flagMapping),
	}

	NewFlag("api.address", flagMapping.ApiAddress).String().Bind(cmd, ":8080", "api: The address the server is listening on")
	NewFlag("api.scanRate", flagMapping.ApiScanRate).Float64().Bind(cmd, 0, "api: Accepted scans per second, 0 accepts every scan")
	NewFlag("api.scanBurst", flagMapping.ApiScanBurst).Int().Bind(cmd, 1, "api: Scans accepted at once when a scan rate is set")
	NewFlag("api.allowedRunners", flagMapping.ApiAllowedRunners).StringSlice().Bind(cmd, []string{"docker"}, "api: Runner types submitted scans may use")
	NewFlag("api.hostFiles", flagMapping.ApiHostFiles).Bool().Bind(cmd, false, "api: Allow submitted scans to read host files through file:// input files")

	return cmd
}

// serve is the entry point to start the api
func serve(fm *config.FlagsNameMapping) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger()
		ctx, cancel := signal.NotifyContext(logger.IntoContext(cmd.Context(), log), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfg := loadConfig()
		if err := errors.Join(cfg.Validate(ctx, fm), cfg.ValidateApi(ctx, fm)); err != nil {
			log.Error("Error while validating the config", "error", err)
			return fmt.Errorf("invalid configuration: %w", err)
		}

		s := server.New(cfg, cmd.Root().Version)

		log.Info("Running sodascan server")
		return s.Run(ctx)
	}
}
