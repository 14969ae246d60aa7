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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/caas-team/sodascan/pkg/config"
)

// envPrefix is the prefix of the environment variables overriding flags
const envPrefix = "SODASCAN"

// flagMapping holds the cli names of the configuration flags
var flagMapping = config.FlagsNameMapping{
	TaskSource:         "file",
	TaskHttpToken:      "taskHttpToken",
	TaskHttpTimeout:    "taskHttpTimeout",
	TaskHttpRetryCount: "taskHttpRetryCount",
	TaskHttpRetryDelay: "taskHttpRetryDelay",

	RunnerType:         "runnerType",
	EmptyConfiguration: "emptyConfiguration",
	WorkDir:            "workDir",
	StoragePath:        "storagePath",
	ApiAddress:         "apiAddress",
	ApiScanRate:        "apiScanRate",
	ApiScanBurst:       "apiScanBurst",
	ApiAllowedRunners:  "apiAllowedRunners",
	ApiHostFiles:       "apiHostFiles",

	TelemetryExporter: "telemetryExporter",
	TelemetryUrl:      "telemetryUrl",
	TelemetryToken:    "telemetryToken",
	TelemetryInsecure: "telemetryInsecure",
	TelemetryInterval: "telemetryInterval",
}

// NewCmdRoot creates a new root command
func NewCmdRoot(version string) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sodascan",
		Short: "Sodascan, the data quality scan runner",
		Long: "Sodascan runs data quality scans with the Soda scanning library.\n" +
			"Scans are executed once from the command line or on request through an API.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is none, flags and environment only)")

	NewFlag("runner.type", flagMapping.RunnerType).String().Bind(rootCmd, "docker",
		"runner: The runner executing scans that do not select one, docker or process")
	NewFlag("runner.emptyConfiguration", flagMapping.EmptyConfiguration).String().Bind(rootCmd, "skip",
		"runner: How scans without data source configuration are handled, skip or reject")
	NewFlag("runner.workDir", flagMapping.WorkDir).String().Bind(rootCmd, "",
		"runner: The parent directory of the scan working directories (default is the os temp dir)")
	NewFlag("storage.path", flagMapping.StoragePath).String().Bind(rootCmd, ".sodascan/storage",
		"storage: The directory the output files of scans are kept in")

	NewFlag("telemetry.exporter", flagMapping.TelemetryExporter).String().Bind(rootCmd, "prometheus",
		"telemetry: The exporter of the scan metrics, prometheus or otlp")
	NewFlag("telemetry.url", flagMapping.TelemetryUrl).String().Bind(rootCmd, "",
		"telemetry: The host:port of the otlp collector")
	NewFlag("telemetry.token", flagMapping.TelemetryToken).String().Bind(rootCmd, "",
		"telemetry: Bearer token to authenticate with the otlp collector")
	NewFlag("telemetry.insecure", flagMapping.TelemetryInsecure).Bool().Bind(rootCmd, false,
		"telemetry: Disables tls towards the otlp collector")
	NewFlag("telemetry.interval", flagMapping.TelemetryInterval).Int().Bind(rootCmd, 30,
		"telemetry: The push interval of the otlp exporter in seconds")

	return rootCmd
}

// BuildCmd creates the root command with all child commands
func BuildCmd(version string) *cobra.Command {
	cmd := NewCmdRoot(version)
	cmd.AddCommand(NewCmdRun())
	cmd.AddCommand(NewCmdServe())
	cmd.AddCommand(NewCmdSchema())
	cmd.AddCommand(NewCmdGenDocs(cmd))
	return cmd
}

// Execute adds all child commands to the root command
// and executes the cmd tree
func Execute(version string) {
	cmd := BuildCmd(version)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads the config file if set and the environment variables
func initConfig(cfgFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
	}
	return nil
}

// loadConfig creates the configuration from flags, environment and config file
func loadConfig() *config.Config {
	cfg := config.NewConfig()

	cfg.SetTaskSource(viper.GetString("task.source"))
	cfg.SetTaskHttpToken(viper.GetString("task.http.token"))
	cfg.SetTaskHttpTimeout(viper.GetInt("task.http.timeout"))
	cfg.SetTaskHttpRetryCount(viper.GetInt("task.http.retryCount"))
	cfg.SetTaskHttpRetryDelay(viper.GetInt("task.http.retryDelay"))

	cfg.SetRunnerType(viper.GetString("runner.type"))
	cfg.SetEmptyConfiguration(viper.GetString("runner.emptyConfiguration"))
	cfg.SetWorkDir(viper.GetString("runner.workDir"))
	cfg.SetStoragePath(viper.GetString("storage.path"))
	cfg.SetApiAddress(viper.GetString("api.address"))
	cfg.SetApiScanRate(viper.GetFloat64("api.scanRate"), viper.GetInt("api.scanBurst"))
	cfg.SetApiAllowedRunners(viper.GetStringSlice("api.allowedRunners"))
	cfg.SetApiHostFiles(viper.GetBool("api.hostFiles"))

	cfg.SetTelemetryExporter(viper.GetString("telemetry.exporter"))
	cfg.SetTelemetryUrl(viper.GetString("telemetry.url"))
	cfg.SetTelemetryToken(viper.GetString("telemetry.token"))
	cfg.SetTelemetryInsecure(viper.GetBool("telemetry.insecure"))
	cfg.SetTelemetryInterval(viper.GetInt("telemetry.interval"))

	return cfg
}
