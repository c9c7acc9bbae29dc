// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeNode is an in-memory Node for tests.
type fakeNode struct {
	id          string
	displayName string
	browseName  string
	class       NodeClass
	meta        *NodeMetadata
	children    []*fakeNode

	// onRead, when set, runs at the start of ReadValue
	onRead func()

	// onChildren, when set, runs at the start of Children and may
	// abort the browse
	onChildren func(ctx context.Context) error

	mu       sync.Mutex
	value    any
	readErr  error
	writeErr error
	writes   []Variant
}

var fakeNodeSeq int

func newFakeNode(name string, class NodeClass) *fakeNode {
	fakeNodeSeq++
	return &fakeNode{
		id:          fmt.Sprintf("ns=2;i=%d", fakeNodeSeq),
		displayName: name,
		browseName:  name,
		class:       class,
	}
}

func newFakeObject(name string) *fakeNode {
	return newFakeNode(name, NodeClassObject)
}

func newFakeVariable(name string, value any) *fakeNode {
	n := newFakeNode(name, NodeClassVariable)
	n.value = value
	return n
}

// withMeta attaches declared type metadata and returns the node.
func (n *fakeNode) withMeta(dataTypeID string) *fakeNode {
	n.meta = &NodeMetadata{DataTypeID: dataTypeID}
	return n
}

// add appends children and returns the node for chaining.
func (n *fakeNode) add(children ...*fakeNode) *fakeNode {
	n.children = append(n.children, children...)
	return n
}

func (n *fakeNode) ID() string { return n.id }

func (n *fakeNode) DisplayName(ctx context.Context) (string, error) {
	return n.displayName, nil
}

func (n *fakeNode) BrowseName(ctx context.Context) (string, error) {
	return n.browseName, nil
}

func (n *fakeNode) Class(ctx context.Context) (NodeClass, error) {
	return n.class, nil
}

func (n *fakeNode) Children(ctx context.Context) ([]Node, error) {
	if n.onChildren != nil {
		if err := n.onChildren(ctx); err != nil {
			return nil, err
		}
	}
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out, nil
}

func (n *fakeNode) ReadValue(ctx context.Context) (any, error) {
	if n.onRead != nil {
		n.onRead()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.readErr != nil {
		return nil, n.readErr
	}
	return n.value, nil
}

func (n *fakeNode) WriteValue(ctx context.Context, v Variant) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.writeErr != nil {
		return n.writeErr
	}
	n.writes = append(n.writes, v)
	n.value = v.Value
	return nil
}

func (n *fakeNode) Metadata(ctx context.Context) (NodeMetadata, bool, error) {
	if n.meta == nil {
		return NodeMetadata{}, false, nil
	}
	return *n.meta, true, nil
}

// writeCount returns how many writes the node received.
func (n *fakeNode) writeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.writes)
}

// lastWrite returns the most recent variant written to the node.
func (n *fakeNode) lastWrite(t *testing.T) Variant {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.writes) == 0 {
		t.Fatalf("node %s received no writes", n.displayName)
	}
	return n.writes[len(n.writes)-1]
}

// fakeConn is an in-memory Conn over a fakeNode tree.
type fakeConn struct {
	root  *fakeNode
	types map[string]*fakeNode

	mu       sync.Mutex
	closed   bool
	closeErr error
}

func newFakeConn(root *fakeNode) *fakeConn {
	return &fakeConn{root: root, types: map[string]*fakeNode{}}
}

// addType registers a data-type definition node under its id.
func (c *fakeConn) addType(typeID string, node *fakeNode) *fakeConn {
	c.types[typeID] = node
	return c
}

func (c *fakeConn) ObjectsRoot() Node { return c.root }

func (c *fakeConn) TypeNode(ctx context.Context, typeID string) (Node, bool) {
	node, ok := c.types[typeID]
	if !ok {
		return nil, false
	}
	return node, true
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeDialer returns a Dialer that always hands out conn.
func fakeDialer(conn *fakeConn) Dialer {
	return func(ctx context.Context, endpoint string, timeout time.Duration) (Conn, error) {
		return conn, nil
	}
}

// projectSpace builds an objects root holding one target object with
// the given children.
func projectSpace(targetChildren ...*fakeNode) *fakeConn {
	project := newFakeObject("ePAC:Project").add(targetChildren...)
	root := newFakeObject("Objects").add(project)
	return newFakeConn(root)
}

// connectedClient creates a client backed by conn and connects it.
func connectedClient(t *testing.T, conn *fakeConn, opts ...func(*Client)) *Client {
	t.Helper()
	opts = append([]func(*Client){WithDialer(fakeDialer(conn))}, opts...)
	client, err := NewClient("opc.tcp://test:4840", opts...)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error connecting: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})
	return client
}
