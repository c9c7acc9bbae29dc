// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Default client configuration values
const (
	// URLScheme is the endpoint scheme this protocol family uses
	URLScheme = "opc.tcp://"

	// DefaultTargetObject is the well-known project-root object name
	DefaultTargetObject = "ePAC:Project"

	DefaultConnectTimeout   = 30 * time.Second
	DefaultOperationTimeout = 15 * time.Second
)

// Client is a smart client over an OPC UA address space.
//
// It addresses the server's object/variable tree by dotted path name
// instead of protocol node identifiers, infers how to decode and encode
// each value's wire representation, and caches discovered type metadata
// per session.
//
// Lifecycle: one call to Connect, a body of operations, one call to
// Disconnect. WithConnection wraps the three and guarantees the
// disconnect on every exit path. No operation is retried automatically
// anywhere in this layer; retry policy belongs to the caller.
type Client struct {
	// mu synchronizes access to the connection state
	mu sync.RWMutex

	// conn is the live protocol session, nil while disconnected
	conn Conn

	// target is the discovered target object node
	target Node

	// cache holds type metadata for the current session
	cache *TypeCache

	// Connection parameters
	URL          string
	TargetObject string

	// Timeout configuration
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration

	// Navigation bounds
	MaxDepth      int
	ListDepth     int
	MaxConcurrent int

	// CacheSize is the per-keyspace TypeCache capacity
	CacheSize int

	// AutoConvert enables declared-type conversion on writes
	AutoConvert bool

	logger Logger
	dialer Dialer
}

// NewClient creates a client for the given endpoint URL.
//
// The URL must use the opc.tcp:// scheme; anything else fails fast
// before any connection attempt. The client does not connect here - use
// Connect or WithConnection.
//
// Example:
//
//	client, err := opcua.NewClient(
//	    "opc.tcp://192.168.1.10:4840",
//	    opcua.TargetObject("ePAC:Project"),
//	    opcua.ConnectTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Returns a configured Client or an error if configuration validation
// fails.
func NewClient(url string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		URL:              url,
		TargetObject:     DefaultTargetObject,
		ConnectTimeout:   DefaultConnectTimeout,
		OperationTimeout: DefaultOperationTimeout,
		MaxDepth:         DefaultMaxDepth,
		ListDepth:        DefaultListDepth,
		MaxConcurrent:    DefaultMaxConcurrent,
		CacheSize:        DefaultCacheSize,
		AutoConvert:      true,
		logger:           &NoOpLogger{},
		dialer:           dialOPCUA,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	client.logger.Info("client created",
		"url", client.URL,
		"target", client.TargetObject)

	return client, nil
}

// validateConfig validates client configuration before connection
func (c *Client) validateConfig() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("endpoint URL cannot be empty")
	}
	if !strings.HasPrefix(c.URL, URLScheme) {
		return fmt.Errorf("endpoint URL must start with %q: %s", URLScheme, c.URL)
	}
	if strings.TrimSpace(c.TargetObject) == "" {
		return fmt.Errorf("target object name cannot be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got: %v", c.ConnectTimeout)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("operation timeout must be positive, got: %v", c.OperationTimeout)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got: %d", c.MaxDepth)
	}
	if c.ListDepth < 1 {
		return fmt.Errorf("list depth must be at least 1, got: %d", c.ListDepth)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent must be at least 1, got: %d", c.MaxConcurrent)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be at least 1, got: %d", c.CacheSize)
	}
	return nil
}

// Connect establishes the session and discovers the target object.
//
// Connection establishment is bounded by ConnectTimeout and fails with
// ErrConnectTimeout rather than hanging. A fresh TypeCache is created
// for the session. Calling Connect on an already connected client is a
// no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	c.logger.Debug("connecting", "url", c.URL, "timeout", c.ConnectTimeout.String())

	dialCtx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
	defer cancel()

	conn, err := c.dialer(dialCtx, c.URL, c.ConnectTimeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ClientError{
				Operation: "connect",
				Message:   fmt.Sprintf("no response from %s within %v", c.URL, c.ConnectTimeout),
				Err:       ErrConnectTimeout,
			}
		}
		return &ClientError{Operation: "connect", Message: err.Error(), Err: err}
	}

	c.conn = conn
	c.cache = NewTypeCache(c.CacheSize)

	// Discovery shares the connect deadline: a server that accepts the
	// session but stalls during browsing must not hang Connect.
	target, ok := c.findObject(dialCtx, conn.ObjectsRoot(), c.TargetObject, c.MaxDepth)
	if !ok {
		c.conn = nil
		c.cache = nil
		if closeErr := conn.Close(ctx); closeErr != nil {
			c.logger.Warn("close after failed discovery returned error", "error", closeErr.Error())
		}
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return &ClientError{
				Operation: "connect",
				Path:      c.TargetObject,
				Message:   fmt.Sprintf("target discovery did not complete within %v", c.ConnectTimeout),
				Err:       ErrConnectTimeout,
			}
		}
		return &ClientError{
			Operation: "connect",
			Path:      c.TargetObject,
			Message:   "target object not found",
			Err:       ErrNotFound,
		}
	}
	c.target = target

	c.logger.Info("connected",
		"url", c.URL,
		"target", c.TargetObject)

	return nil
}

// Disconnect terminates the session and discards the session cache.
//
// Safe to call multiple times; subsequent calls are no-ops. Node
// handles obtained during the session are invalid afterwards.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	conn := c.conn
	c.conn = nil
	c.target = nil
	c.cache = nil

	err := conn.Close(ctx)
	if err != nil {
		c.logger.Warn("connection close returned error", "url", c.URL, "error", err.Error())
		return err
	}

	c.logger.Info("disconnected", "url", c.URL)
	return nil
}

// WithConnection connects, runs fn, and disconnects on every exit path,
// including a panic inside fn.
//
// Example:
//
//	err := client.WithConnection(ctx, func(ctx context.Context) error {
//	    res, err := client.ReadAll(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(res.JSON())
//	    return nil
//	})
func (c *Client) WithConnection(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Disconnect(ctx); err != nil {
			c.logger.Warn("disconnect failed", "url", c.URL, "error", err.Error())
		}
	}()
	return fn(ctx)
}

// Connected reports whether the client currently holds a session.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// CacheStats returns the session cache accounting. On a disconnected
// client all counts are zero.
func (c *Client) CacheStats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cache == nil {
		return CacheStats{}
	}
	return c.cache.Stats()
}

// session snapshots the connection state for one operation.
func (c *Client) session(operation string) (Conn, Node, *TypeCache, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil || c.target == nil {
		return nil, nil, nil, &ClientError{
			Operation: operation,
			Message:   "call Connect first",
			Err:       ErrNotConnected,
		}
	}
	return c.conn, c.target, c.cache, nil
}

// operationContext applies the client operation timeout to ctx.
func (c *Client) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.OperationTimeout)
}
