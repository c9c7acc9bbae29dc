// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ReadRes represents the result of a ReadNode or ReadAll operation.
type ReadRes struct {
	// Values maps object/variable names to their decoded values.
	// Empty when nothing was found.
	Values map[string]*Value

	// OK indicates the target was found and at least the lookup
	// completed; per-child failures do not clear it
	OK bool

	// Errors contains per-item failure information
	Errors []ErrorModel
}

// GetValue retrieves a decoded value from the result using a gjson path.
//
// Example:
//
//	res, _ := client.ReadAll(ctx)
//	speed := res.GetValue("pump1.speed").Float()
//	run := res.GetValue("cepn1.status.run").Int()
//
// Returns gjson.Result which can be converted to specific types:
//   - result.String() for string values
//   - result.Int() for integer values
//   - result.Bool() for boolean values
func (r ReadRes) GetValue(path string) gjson.Result {
	jsonStr := r.JSON()
	if jsonStr == "" {
		return gjson.Result{}
	}
	return gjson.Get(jsonStr, path)
}

// JSON returns the decoded values as a JSON string.
// Returns an empty string if marshaling fails.
func (r ReadRes) JSON() string {
	if r.Values == nil {
		return ""
	}
	data, err := json.Marshal(r.Values)
	if err != nil {
		return ""
	}
	return string(data)
}

// WriteRes represents the result of a Write operation.
//
// Results always contains one entry per originally requested path, true
// only if that specific write round-trip completed without error.
type WriteRes struct {
	// Results maps each requested path to its success flag
	Results map[string]bool

	// OK indicates every requested path succeeded
	OK bool

	// Errors contains per-path failure information
	Errors []ErrorModel
}

// GetValue retrieves a per-path result using a gjson path.
//
// Example:
//
//	res, _ := client.Write(ctx, values)
//	ok := res.GetValue("cepn1\\.sensor1").Bool()
func (r WriteRes) GetValue(path string) gjson.Result {
	jsonStr := r.JSON()
	if jsonStr == "" {
		return gjson.Result{}
	}
	return gjson.Get(jsonStr, path)
}

// JSON returns the result map as a JSON string.
// Returns an empty string if marshaling fails.
func (r WriteRes) JSON() string {
	if r.Results == nil {
		return ""
	}
	data, err := json.Marshal(r.Results)
	if err != nil {
		return ""
	}
	return string(data)
}
