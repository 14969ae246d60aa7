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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/api"
	"github.com/caas-team/sodascan/pkg/server"
)

// NewCmdSchema creates a new schema command
func NewCmdSchema() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the openapi document",
		Long:  `Prints the openapi document of the scan api including the schemas of the scan task and its output`,
		RunE:  runSchema(&output),
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatYAML, "The format of the document, json or yaml")

	return cmd
}

// runSchema generates the openapi document
func runSchema(output *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logger.IntoContext(cmd.Context(), logger.NewLogger())
		doc, err := api.OpenAPI(ctx, cmd.Root().Version, server.Operations()...)
		if err != nil {
			return err
		}

		var b []byte
		switch *output {
		case formatJSON:
			b, err = json.MarshalIndent(&doc, "", "  ")
		case formatYAML:
			b, err = yaml.Marshal(&doc)
		default:
			return fmt.Errorf("unsupported output format %q", *output)
		}
		if err != nil {
			return fmt.Errorf("failed to encode openapi document: %w", err)
		}

		_, err = cmd.OutOrStdout().Write(b)
		return err
	}
}
