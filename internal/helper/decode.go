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

package helper

import "github.com/mitchellh/mapstructure"

// Decode takes an input of any type and attempts to decode it into the type T.
// It uses mapstructure with weakly typed input, so "true" decodes into a bool and
// "a,b" decodes into a []string. Durations are parsed from their string form.
//
// Example:
//
//	raw := map[string]any{"verbose": "true", "requirements": "soda-core-postgres"}
//	scan, err := Decode[soda.Scan](raw)
func Decode[T any](input any) (T, error) {
	return decode[T](input, false)
}

// DecodeStrict behaves like [Decode] but fails if the input carries
// keys that do not map to any field of T.
func DecodeStrict[T any](input any) (T, error) {
	return decode[T](input, true)
}

func decode[T any](input any, strict bool) (T, error) {
	var result T
	config := &mapstructure.DecoderConfig{
		Metadata:         nil,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           &result,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return result, err
	}

	if err := decoder.Decode(input); err != nil {
		return result, err
	}

	return result, nil
}
