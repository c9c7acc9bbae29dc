// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		opts        []func(*Client)
		wantErrMsg  string
		description string
	}{
		{
			name:        "valid URL with defaults",
			url:         "opc.tcp://192.168.1.10:4840",
			description: "default configuration should pass validation",
		},
		{
			name:        "empty URL",
			url:         "",
			wantErrMsg:  "endpoint URL cannot be empty",
			description: "empty endpoint must be rejected",
		},
		{
			name:        "wrong scheme",
			url:         "http://192.168.1.10:4840",
			wantErrMsg:  "must start with",
			description: "non opc.tcp endpoints must be rejected before dialing",
		},
		{
			name:        "empty target object",
			url:         "opc.tcp://plc:4840",
			opts:        []func(*Client){TargetObject("  ")},
			wantErrMsg:  "target object name cannot be empty",
			description: "blank target object must be rejected",
		},
		{
			name:        "zero connect timeout",
			url:         "opc.tcp://plc:4840",
			opts:        []func(*Client){ConnectTimeout(0)},
			wantErrMsg:  "connect timeout must be positive",
			description: "zero connect timeout must be rejected",
		},
		{
			name:        "negative operation timeout",
			url:         "opc.tcp://plc:4840",
			opts:        []func(*Client){OperationTimeout(-time.Second)},
			wantErrMsg:  "operation timeout must be positive",
			description: "negative operation timeout must be rejected",
		},
		{
			name:        "zero max depth",
			url:         "opc.tcp://plc:4840",
			opts:        []func(*Client){MaxDepth(0)},
			wantErrMsg:  "max depth must be at least 1",
			description: "search depth below one makes discovery impossible",
		},
		{
			name:        "zero list depth",
			url:         "opc.tcp://plc:4840",
			opts:        []func(*Client){ListDepth(0)},
			wantErrMsg:  "list depth must be at least 1",
			description: "enumeration depth below one makes listing impossible",
		},
		{
			name:        "zero max concurrent",
			url:         "opc.tcp://plc:4840",
			opts:        []func(*Client){MaxConcurrent(0)},
			wantErrMsg:  "max concurrent must be at least 1",
			description: "concurrency limit below one would deadlock enumeration",
		},
		{
			name:        "zero cache size",
			url:         "opc.tcp://plc:4840",
			opts:        []func(*Client){CacheSize(0)},
			wantErrMsg:  "cache size must be at least 1",
			description: "cache capacity below one must be rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, tt.opts...)
			if tt.wantErrMsg == "" {
				if err != nil {
					t.Fatalf("%s: unexpected error: %v", tt.description, err)
				}
				if client == nil {
					t.Fatalf("%s: expected client, got nil", tt.description)
				}
				return
			}
			if err == nil {
				t.Fatalf("%s: expected error containing %q, got nil", tt.description, tt.wantErrMsg)
			}
			if !strings.Contains(err.Error(), tt.wantErrMsg) {
				t.Errorf("%s: expected error containing %q, got %q", tt.description, tt.wantErrMsg, err.Error())
			}
		})
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient("opc.tcp://plc:4840")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.TargetObject != DefaultTargetObject {
		t.Errorf("expected target object %q, got %q", DefaultTargetObject, client.TargetObject)
	}
	if client.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("expected connect timeout %v, got %v", DefaultConnectTimeout, client.ConnectTimeout)
	}
	if client.OperationTimeout != DefaultOperationTimeout {
		t.Errorf("expected operation timeout %v, got %v", DefaultOperationTimeout, client.OperationTimeout)
	}
	if client.MaxDepth != DefaultMaxDepth {
		t.Errorf("expected max depth %d, got %d", DefaultMaxDepth, client.MaxDepth)
	}
	if client.ListDepth != DefaultListDepth {
		t.Errorf("expected list depth %d, got %d", DefaultListDepth, client.ListDepth)
	}
	if client.MaxConcurrent != DefaultMaxConcurrent {
		t.Errorf("expected max concurrent %d, got %d", DefaultMaxConcurrent, client.MaxConcurrent)
	}
	if client.CacheSize != DefaultCacheSize {
		t.Errorf("expected cache size %d, got %d", DefaultCacheSize, client.CacheSize)
	}
	if !client.AutoConvert {
		t.Error("expected auto convert enabled by default")
	}
}

func TestConnectDiscoversTarget(t *testing.T) {
	conn := projectSpace(newFakeVariable("sensor1", 42))
	client := connectedClient(t, conn)

	if !client.Connected() {
		t.Fatal("expected client to report connected")
	}
}

func TestConnectTargetNested(t *testing.T) {
	project := newFakeObject("ePAC:Project")
	folder := newFakeObject("DeviceSet").add(project)
	root := newFakeObject("Objects").add(folder)
	conn := newFakeConn(root)

	client := connectedClient(t, conn)
	if !client.Connected() {
		t.Fatal("expected target discovery to descend into folders")
	}
}

func TestConnectTargetNotFound(t *testing.T) {
	root := newFakeObject("Objects").add(newFakeObject("OtherProject"))
	conn := newFakeConn(root)

	client, err := NewClient("opc.tcp://test:4840", WithDialer(fakeDialer(conn)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = client.Connect(context.Background())
	if err == nil {
		t.Fatal("expected error when target object is absent")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !conn.isClosed() {
		t.Error("expected connection to be closed after failed discovery")
	}
	if client.Connected() {
		t.Error("expected client to remain disconnected")
	}
}

func TestConnectDialerTimeout(t *testing.T) {
	dialer := func(ctx context.Context, endpoint string, timeout time.Duration) (Conn, error) {
		return nil, context.DeadlineExceeded
	}

	client, err := NewClient("opc.tcp://test:4840",
		WithDialer(dialer),
		ConnectTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = client.Connect(context.Background())
	if !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("expected ErrConnectTimeout, got %v", err)
	}
}

func TestConnectDiscoveryTimeout(t *testing.T) {
	// The session opens fine but browsing stalls until the context is
	// cancelled; Connect must give up within ConnectTimeout instead of
	// hanging on discovery.
	root := newFakeObject("Objects")
	root.onChildren = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	conn := newFakeConn(root)

	client, err := NewClient("opc.tcp://test:4840",
		WithDialer(fakeDialer(conn)),
		ConnectTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	err = client.Connect(context.Background())
	if !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("expected ErrConnectTimeout from stalled discovery, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("connect took %v, expected it bounded by the connect timeout", elapsed)
	}
	if client.Connected() {
		t.Error("expected client left disconnected after failed discovery")
	}
	if !conn.isClosed() {
		t.Error("expected the session closed after failed discovery")
	}
}

func TestConnectIdempotent(t *testing.T) {
	conn := projectSpace()
	client := connectedClient(t, conn)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("second connect should be a no-op, got %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	conn := projectSpace()
	client := connectedClient(t, conn)

	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !conn.isClosed() {
		t.Error("expected underlying connection to be closed")
	}
	if client.Connected() {
		t.Error("expected client to report disconnected")
	}

	// Second disconnect is a no-op
	if err := client.Disconnect(context.Background()); err != nil {
		t.Fatalf("repeated disconnect should not fail, got %v", err)
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	client, err := NewClient("opc.tcp://test:4840")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()

	if _, err := client.ReadNode(ctx, "sensor1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ReadNode: expected ErrNotConnected, got %v", err)
	}
	if _, err := client.ReadAll(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ReadAll: expected ErrNotConnected, got %v", err)
	}
	if _, err := client.Read(ctx, "sensor1"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Read: expected ErrNotConnected, got %v", err)
	}
	if _, err := client.Write(ctx, map[string]any{"sensor1": 1}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Write: expected ErrNotConnected, got %v", err)
	}
}

func TestWithConnection(t *testing.T) {
	conn := projectSpace(newFakeVariable("sensor1", 7))
	client, err := NewClient("opc.tcp://test:4840", WithDialer(fakeDialer(conn)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawConnected bool
	err = client.WithConnection(context.Background(), func(ctx context.Context) error {
		sawConnected = client.Connected()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawConnected {
		t.Error("expected client connected inside the body")
	}
	if client.Connected() {
		t.Error("expected client disconnected after the body")
	}
	if !conn.isClosed() {
		t.Error("expected underlying connection closed after the body")
	}
}

func TestWithConnectionDisconnectsOnError(t *testing.T) {
	conn := projectSpace()
	client, err := NewClient("opc.tcp://test:4840", WithDialer(fakeDialer(conn)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantErr := errors.New("body failed")
	err = client.WithConnection(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected body error to propagate, got %v", err)
	}
	if client.Connected() {
		t.Error("expected client disconnected after failing body")
	}
	if !conn.isClosed() {
		t.Error("expected underlying connection closed after failing body")
	}
}

func TestCacheStatsLifecycle(t *testing.T) {
	typeNode := newFakeObject("MotorType").add(
		newFakeNode("speed", NodeClassVariable),
		newFakeNode("torque", NodeClassVariable),
	)
	motor := newFakeVariable("motor1", []any{10, 20}).withMeta("ns=2;i=900")
	conn := projectSpace(motor).addType("ns=2;i=900", typeNode)

	client := connectedClient(t, conn)

	stats := client.CacheStats()
	if stats.Total != 0 {
		t.Fatalf("expected fresh cache after connect, got %+v", stats)
	}

	ctx := context.Background()
	if _, err := client.ReadNode(ctx, "motor1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.ReadNode(ctx, "motor1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats = client.CacheStats()
	if stats.Total == 0 {
		t.Fatal("expected cache traffic after reads")
	}
	if stats.Hits == 0 {
		t.Errorf("expected repeated read to hit the cache, got %+v", stats)
	}

	if err := client.Disconnect(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats = client.CacheStats()
	if stats.Total != 0 || stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("expected zeroed stats after disconnect, got %+v", stats)
	}
}
