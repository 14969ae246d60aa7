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

// Package render evaluates the templated properties of a task.
// Templates use the text/template syntax with the sprig function set,
// variables are accessed as fields, e.g. {{ .workingDir }}.
package render

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// secretEnvPrefix is prepended to the secret name to find its environment variable
const secretEnvPrefix = "SECRET_"

// Renderer renders templated strings and the strings nested in maps and lists
type Renderer struct {
	funcs template.FuncMap
}

// New creates a renderer with the sprig functions and the secret function
func New() *Renderer {
	funcs := sprig.TxtFuncMap()
	funcs["secret"] = secret
	return &Renderer{funcs: funcs}
}

// Render renders a single template. Referencing a variable that is not
// defined is an error.
func (r *Renderer) Render(tpl string, vars map[string]any) (string, error) {
	if !strings.Contains(tpl, "{{") {
		return tpl, nil
	}

	t, err := template.New("property").Funcs(r.funcs).Option("missingkey=error").Parse(tpl)
	if err != nil {
		return "", &Error{Template: tpl, Err: err}
	}

	var sb strings.Builder
	if err := t.Execute(&sb, vars); err != nil {
		return "", &Error{Template: tpl, Err: err}
	}
	return sb.String(), nil
}

// RenderValue renders every string found in v. Maps and lists are walked
// recursively and copied, map keys are rendered as well. Other values are
// returned as they are.
func (r *Renderer) RenderValue(v any, vars map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return r.Render(val, vars)
	case map[string]any:
		return r.RenderMap(val, vars)
	case []any:
		rendered := make([]any, len(val))
		for i, item := range val {
			ri, err := r.RenderValue(item, vars)
			if err != nil {
				return nil, err
			}
			rendered[i] = ri
		}
		return rendered, nil
	case []string:
		return r.RenderStrings(val, vars)
	case map[string]string:
		return r.RenderStringMap(val, vars)
	default:
		return v, nil
	}
}

// RenderMap renders the keys and values of m into a new map
func (r *Renderer) RenderMap(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	rendered := make(map[string]any, len(m))
	for k, v := range m {
		rk, err := r.Render(k, vars)
		if err != nil {
			return nil, err
		}
		rv, err := r.RenderValue(v, vars)
		if err != nil {
			return nil, err
		}
		rendered[rk] = rv
	}
	return rendered, nil
}

// RenderStringMap renders the keys and values of m into a new map
func (r *Renderer) RenderStringMap(m map[string]string, vars map[string]any) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	rendered := make(map[string]string, len(m))
	for k, v := range m {
		rk, err := r.Render(k, vars)
		if err != nil {
			return nil, err
		}
		rv, err := r.Render(v, vars)
		if err != nil {
			return nil, err
		}
		rendered[rk] = rv
	}
	return rendered, nil
}

// RenderStrings renders every element of s into a new slice
func (r *Renderer) RenderStrings(s []string, vars map[string]any) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	rendered := make([]string, len(s))
	for i, v := range s {
		rv, err := r.Render(v, vars)
		if err != nil {
			return nil, err
		}
		rendered[i] = rv
	}
	return rendered, nil
}

// secret returns the base64 decoded value of the SECRET_<NAME> environment variable
func secret(name string) (string, error) {
	key := secretEnvPrefix + strings.ToUpper(name)
	encoded, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("secret %q not found, expected environment variable %s", name, key)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("secret %q is not base64 encoded: %w", name, err)
	}
	return string(decoded), nil
}
