// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Body wraps a JSON document describing a batch of values to write.
// Nested objects express dotted paths, so the two forms below build the
// same request:
//
//	opcua.Body{}.Set("Pump_1.speed", 1500).Set("Pump_1.enabled", true)
//	opcua.Body{}.SetRaw("Pump_1", `{"speed": 1500, "enabled": true}`)
//
// Pass the result to Client.WriteBody.
type Body struct {
	Str string
}

// Set sets a value at the given sjson path and returns the updated
// Body. Can be chained.
func (body Body) Set(path string, value interface{}) Body {
	res, _ := sjson.Set(body.Str, path, value)
	body.Str = res
	return body
}

// SetRaw sets a raw JSON fragment at the given sjson path and returns
// the updated Body. Can be chained.
func (body Body) SetRaw(path, value string) Body {
	res, _ := sjson.SetRaw(body.Str, path, value)
	body.Str = res
	return body
}

// Res returns the JSON document built so far.
func (body Body) Res() string {
	return body.Str
}

// Values flattens the document into the dotted-path map consumed by
// Client.Write. Object nesting extends the path; arrays and scalars
// become values.
func (body Body) Values() map[string]any {
	values := make(map[string]any)
	flattenBody("", gjson.Parse(body.Str), values)
	return values
}

func flattenBody(prefix string, node gjson.Result, out map[string]any) {
	if !node.IsObject() {
		if prefix != "" {
			out[prefix] = node.Value()
		}
		return
	}
	node.ForEach(func(key, value gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		flattenBody(path, value, out)
		return true
	})
}

// WriteBody writes all values described by a Body document. Equivalent
// to Write(ctx, body.Values()).
//
// Example:
//
//	body := opcua.Body{}.
//	    Set("Pump_1.speed", 1500).
//	    Set("Pump_1.enabled", true)
//	res, err := client.WriteBody(ctx, body)
func (c *Client) WriteBody(ctx context.Context, body Body) (WriteRes, error) {
	return c.Write(ctx, body.Values())
}
