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

package api

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/models"
)

// Operation documents one route of the api
type Operation struct {
	Path        string
	Method      string
	Summary     string
	Tags        []string
	PathParams  []string
	RequestBody any
	Response    any
	// Errors maps status codes to their description
	Errors map[int]string
}

var timestampType = reflect.TypeOf(models.Timestamp{})

// newDocument returns the document skeleton every generated document starts from
func newDocument(version string) openapi3.T {
	return openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "Sodascan API",
			Description: "Runs data quality scans and serves their results",
			Version:     version,
			Contact: &openapi3.Contact{
				URL:   "https://caas.telekom.de",
				Email: "caas-request@telekom.de",
				Name:  "CaaS Team",
			},
		},
		Paths:      make(openapi3.Paths),
		Extensions: make(map[string]any),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
		Servers: openapi3.Servers{},
	}
}

// SchemaFor generates the schema of the value's type
func SchemaFor(v any) (*openapi3.SchemaRef, error) {
	return openapi3gen.NewSchemaRefForValue(v, openapi3.Schemas{},
		openapi3gen.UseAllExportedFields(),
		openapi3gen.SchemaCustomizer(customizeSchema),
	)
}

// customizeSchema describes timestamps as what they encode to
func customizeSchema(_ string, t reflect.Type, _ reflect.StructTag, schema *openapi3.Schema) error {
	if t == timestampType {
		schema.Type = "string"
		schema.Format = "date-time"
		schema.Nullable = true
		schema.Properties = nil
	}
	return nil
}

// OpenAPI generates the document describing the given operations
func OpenAPI(ctx context.Context, version string, ops ...Operation) (openapi3.T, error) {
	log := logger.FromContext(ctx)
	doc := newDocument(version)

	for _, op := range ops {
		operation := &openapi3.Operation{
			Summary:   op.Summary,
			Tags:      op.Tags,
			Responses: openapi3.Responses{},
		}

		for _, p := range op.PathParams {
			operation.Parameters = append(operation.Parameters, &openapi3.ParameterRef{
				Value: openapi3.NewPathParameter(p).WithSchema(openapi3.NewStringSchema()),
			})
		}

		if op.RequestBody != nil {
			ref, err := SchemaFor(op.RequestBody)
			if err != nil {
				log.Error("Failed to get schema for request body", "path", op.Path, "error", err)
				return openapi3.T{}, &ErrCreateOpenapiSchema{name: op.Path, err: err}
			}
			operation.RequestBody = &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().
					WithRequired(true).
					WithContent(openapi3.NewContentWithSchemaRef(ref, []string{"application/json", "application/yaml"})),
			}
		}

		if op.Response != nil {
			ref, err := SchemaFor(op.Response)
			if err != nil {
				log.Error("Failed to get schema for response", "path", op.Path, "error", err)
				return openapi3.T{}, &ErrCreateOpenapiSchema{name: op.Path, err: err}
			}
			operation.Responses[fmt.Sprint(http.StatusOK)] = &openapi3.ResponseRef{
				Value: openapi3.NewResponse().
					WithDescription(op.Summary).
					WithContent(openapi3.NewContentWithSchemaRef(ref, []string{"application/json"})),
			}
		}

		for code, desc := range op.Errors {
			operation.Responses[fmt.Sprint(code)] = &openapi3.ResponseRef{
				Value: openapi3.NewResponse().WithDescription(desc),
			}
		}

		item, ok := doc.Paths[op.Path]
		if !ok {
			item = &openapi3.PathItem{}
			doc.Paths[op.Path] = item
		}
		item.SetOperation(op.Method, operation)
	}

	return doc, nil
}
