// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ReadNode reads one direct child of the target object by name.
//
// If the child is a variable, the result holds its decoded value under
// the requested name. If it is an object, the result holds a record of
// the values of all its variable children. A name that matches nothing
// produces an unsuccessful result with an ErrorModel entry, not an
// error return; the error return reports transport-level failures only.
//
// Example:
//
//	res, err := client.ReadNode(ctx, "Pump_1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.GetValue("Pump_1.speed"))
func (c *Client) ReadNode(ctx context.Context, name string) (ReadRes, error) {
	conn, target, cache, err := c.session("read")
	if err != nil {
		return ReadRes{OK: false}, err
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	c.logger.Debug("read node", "name", name)

	children, childErr := target.Children(ctx)
	if childErr != nil {
		return ReadRes{OK: false}, &ClientError{
			Operation: "read",
			Path:      name,
			Message:   childErr.Error(),
			Err:       childErr,
		}
	}

	for _, child := range children {
		childName, err := child.DisplayName(ctx)
		if err != nil || childName != name {
			continue
		}

		class, err := child.Class(ctx)
		if err != nil {
			return ReadRes{OK: false}, &ClientError{
				Operation: "read",
				Path:      name,
				Message:   err.Error(),
				Err:       err,
			}
		}

		switch class {
		case NodeClassVariable:
			raw, err := child.ReadValue(ctx)
			if err != nil {
				return ReadRes{
					OK:     false,
					Errors: []ErrorModel{{Path: name, Message: err.Error()}},
				}, nil
			}
			return ReadRes{
				Values: map[string]*Value{name: c.decodeValue(ctx, conn, cache, child, raw)},
				OK:     true,
			}, nil

		case NodeClassObject:
			record := c.readObjectChildren(ctx, conn, cache, child)
			if record == nil {
				record = newMapping(KindRecord)
			}
			return ReadRes{
				Values: map[string]*Value{name: record},
				OK:     true,
			}, nil
		}
	}

	return ReadRes{
		OK:     false,
		Errors: []ErrorModel{{Path: name, Message: "node " + quote(name) + " not found"}},
	}, nil
}

// ReadAll reads every variable reachable from the target object.
//
// The target's own variable children are reported under the target
// object name. Each object discovered below the target, down to
// ListDepth, contributes one record under its display name. Objects
// with no readable variables are omitted. Individual read failures are
// logged and skipped; the operation itself only fails on loss of the
// session or the object tree.
func (c *Client) ReadAll(ctx context.Context) (ReadRes, error) {
	conn, target, cache, err := c.session("read")
	if err != nil {
		return ReadRes{OK: false}, err
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	c.logger.Debug("read all", "target", c.TargetObject)

	values := make(map[string]*Value)
	var mu sync.Mutex

	if record := c.readObjectChildren(ctx, conn, cache, target); record != nil {
		values[c.TargetObject] = record
	}

	objects := c.listObjects(ctx, target, c.ListDepth, c.MaxConcurrent)

	var g errgroup.Group
	g.SetLimit(c.MaxConcurrent)
	for _, obj := range objects {
		g.Go(func() error {
			record := c.readObjectChildren(ctx, conn, cache, obj.node)
			if record == nil {
				return nil
			}
			mu.Lock()
			values[obj.name] = record
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Debug("read all complete", "objects", len(values))

	return ReadRes{Values: values, OK: true}, nil
}

// readObjectChildren reads and decodes all variable children of node
// into one record, preserving the server's child order. Children that
// fail to read are skipped. Returns nil when the node has no readable
// variables.
func (c *Client) readObjectChildren(ctx context.Context, conn Conn, cache *TypeCache, node Node) *Value {
	children, err := node.Children(ctx)
	if err != nil {
		c.logger.Debug("children read failed", "node", node.ID(), "error", err.Error())
		return nil
	}

	type childValue struct {
		name  string
		value *Value
	}
	results := make([]*childValue, len(children))

	var g errgroup.Group
	g.SetLimit(c.MaxConcurrent)
	for i, child := range children {
		g.Go(func() error {
			class, err := child.Class(ctx)
			if err != nil || class != NodeClassVariable {
				return nil
			}
			name, err := child.DisplayName(ctx)
			if err != nil {
				c.logger.Debug("child name read failed", "node", child.ID(), "error", err.Error())
				return nil
			}
			raw, err := child.ReadValue(ctx)
			if err != nil {
				c.logger.Debug("child value read failed", "node", child.ID(), "error", err.Error())
				return nil
			}
			results[i] = &childValue{name: name, value: c.decodeValue(ctx, conn, cache, child, raw)}
			return nil
		})
	}
	_ = g.Wait()

	record := newMapping(KindRecord)
	for _, r := range results {
		if r != nil {
			record.setField(r.name, r.value)
		}
	}
	if len(record.FieldOrder) == 0 {
		return nil
	}
	return record
}

// Read resolves a dotted path below the target object and decodes the
// value of the variable it names.
//
// Example:
//
//	res, err := client.Read(ctx, "Station_2.Pump_1.speed")
func (c *Client) Read(ctx context.Context, path string) (ReadRes, error) {
	conn, _, cache, err := c.session("read")
	if err != nil {
		return ReadRes{OK: false}, err
	}

	ctx, cancel := c.operationContext(ctx)
	defer cancel()

	node, err := c.resolvePath(ctx, conn, path, c.TargetObject)
	if err != nil {
		return ReadRes{
			OK:     false,
			Errors: []ErrorModel{{Path: path, Message: err.Error()}},
		}, nil
	}

	raw, err := node.ReadValue(ctx)
	if err != nil {
		return ReadRes{
			OK:     false,
			Errors: []ErrorModel{{Path: path, Message: err.Error()}},
		}, nil
	}

	return ReadRes{
		Values: map[string]*Value{path: c.decodeValue(ctx, conn, cache, node, raw)},
		OK:     true,
	}, nil
}
