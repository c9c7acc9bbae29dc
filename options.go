// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import "time"

// TargetObject sets the name of the object the client anchors all
// dotted paths to. The default is "ePAC:Project".
//
// Example:
//
//	client, _ := opcua.NewClient(url, opcua.TargetObject("Machine:Line3"))
func TargetObject(name string) func(*Client) {
	return func(c *Client) {
		c.TargetObject = name
	}
}

// ConnectTimeout bounds session establishment. A connection attempt
// that exceeds it fails with ErrConnectTimeout.
func ConnectTimeout(timeout time.Duration) func(*Client) {
	return func(c *Client) {
		c.ConnectTimeout = timeout
	}
}

// OperationTimeout bounds each read or write operation that arrives
// without its own context deadline.
func OperationTimeout(timeout time.Duration) func(*Client) {
	return func(c *Client) {
		c.OperationTimeout = timeout
	}
}

// MaxDepth sets how deep the target object discovery descends from the
// server objects root. The default is 10.
func MaxDepth(depth int) func(*Client) {
	return func(c *Client) {
		c.MaxDepth = depth
	}
}

// ListDepth sets how deep ReadAll enumerates objects below the target.
// The default is 5.
func ListDepth(depth int) func(*Client) {
	return func(c *Client) {
		c.ListDepth = depth
	}
}

// MaxConcurrent caps the number of in-flight browse requests during
// object enumeration. The default is 20.
func MaxConcurrent(n int) func(*Client) {
	return func(c *Client) {
		c.MaxConcurrent = n
	}
}

// CacheSize sets the per-keyspace capacity of the session type cache.
// The default is 1000.
func CacheSize(size int) func(*Client) {
	return func(c *Client) {
		c.CacheSize = size
	}
}

// AutoConvert controls whether written values are converted to the
// declared type of the destination node. Enabled by default; when
// disabled, values are encoded from their Go type alone.
func AutoConvert(enabled bool) func(*Client) {
	return func(c *Client) {
		c.AutoConvert = enabled
	}
}

// WithLogger sets a custom logger implementation.
//
// Example:
//
//	logger := opcua.NewDefaultLogger(opcua.LogLevelDebug)
//	client, _ := opcua.NewClient(url, opcua.WithLogger(logger))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer replaces the transport used to reach the server. Intended
// for tests that substitute an in-memory address space.
func WithDialer(dialer Dialer) func(*Client) {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}
