// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Navigation defaults
const (
	// DefaultMaxDepth bounds findObject's recursive search
	DefaultMaxDepth = 10

	// DefaultListDepth bounds listObjects' recursive enumeration
	DefaultListDepth = 5

	// DefaultMaxConcurrent caps simultaneous in-flight child
	// explorations during enumeration
	DefaultMaxConcurrent = 20
)

// visitSet tracks visited node ids for one top-level search call. It is
// shared through the whole recursive call tree, including concurrent
// level scans, and is never shared across separate invocations.
type visitSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newVisitSet() *visitSet {
	return &visitSet{seen: map[string]struct{}{}}
}

// visit marks id as visited and reports whether this was the first visit.
func (s *visitSet) visit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// visited reports whether id has been visited without marking it.
func (s *visitSet) visited(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// objectEntry pairs a discovered object node with its display name.
type objectEntry struct {
	node Node
	name string
}

// splitPath splits a dotted path into its non-empty segments.
func splitPath(path string) []string {
	parts := strings.Split(path, ".")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// findObject returns the first object node reachable from root whose
// display name equals targetName, searching at most maxDepth levels.
//
// At each node the direct children are name-checked concurrently first
// (the cheap, common case resolves in one hop); recursion into children
// happens only when the level scan misses. A per-call visited set
// prevents infinite recursion on cyclic reference graphs. Depth
// truncation is silent: deep or cyclic address spaces must not hang the
// caller.
func (c *Client) findObject(ctx context.Context, root Node, targetName string, maxDepth int) (Node, bool) {
	return c.findObjectFrom(ctx, root, targetName, 0, maxDepth, newVisitSet())
}

func (c *Client) findObjectFrom(ctx context.Context, node Node, targetName string, level, maxLevel int, visited *visitSet) (Node, bool) {
	if level > maxLevel {
		return nil, false
	}
	if !visited.visit(node.ID()) {
		return nil, false
	}

	displayName, err := node.DisplayName(ctx)
	if err != nil {
		c.logger.Debug("node name read failed", "node", node.ID(), "error", err.Error())
		return nil, false
	}
	class, err := node.Class(ctx)
	if err != nil {
		c.logger.Debug("node class read failed", "node", node.ID(), "error", err.Error())
		return nil, false
	}
	if class == NodeClassObject && displayName == targetName {
		return node, true
	}

	children, err := node.Children(ctx)
	if err != nil {
		c.logger.Debug("children read failed", "node", node.ID(), "error", err.Error())
		return nil, false
	}

	// Level scan: name-check all direct children concurrently before
	// descending. Errors on one child must not prevent finding the
	// target under a sibling.
	var (
		matchMu sync.Mutex
		match   Node
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range children {
		g.Go(func() error {
			if visited.visited(child.ID()) {
				return nil
			}
			childName, err := child.DisplayName(gctx)
			if err != nil {
				c.logger.Debug("child name read failed", "node", child.ID(), "error", err.Error())
				return nil
			}
			childClass, err := child.Class(gctx)
			if err != nil {
				c.logger.Debug("child class read failed", "node", child.ID(), "error", err.Error())
				return nil
			}
			if childClass == NodeClassObject && childName == targetName {
				matchMu.Lock()
				if match == nil {
					match = child
				}
				matchMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-child errors are swallowed above
	if match != nil {
		return match, true
	}

	// Not on this level: descend one child at a time
	for _, child := range children {
		if found, ok := c.findObjectFrom(ctx, child, targetName, level+1, maxLevel, visited); ok {
			return found, true
		}
	}

	return nil, false
}

// listObjects enumerates every descendant object node of root together
// with its display name, at most maxDepth levels deep.
//
// Child explorations run concurrently but a counting limiter caps
// in-flight property reads at maxConcurrent to bound load against the
// server. Depth bounding is the only cycle guard here, so callers must
// choose maxDepth conservatively for graphs that may cycle.
func (c *Client) listObjects(ctx context.Context, root Node, maxDepth, maxConcurrent int) []objectEntry {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	sem := semaphore.NewWeighted(int64(maxConcurrent))
	return c.listObjectsFrom(ctx, root, 0, maxDepth, sem)
}

func (c *Client) listObjectsFrom(ctx context.Context, node Node, level, maxLevel int, sem *semaphore.Weighted) []objectEntry {
	if level > maxLevel {
		return nil
	}

	children, err := node.Children(ctx)
	if err != nil {
		c.logger.Debug("children read failed", "node", node.ID(), "error", err.Error())
		return nil
	}

	results := make([][]objectEntry, len(children))
	var wg sync.WaitGroup
	for i, child := range children {
		wg.Add(1)
		go func(i int, child Node) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			childName, nameErr := child.DisplayName(ctx)
			childClass, classErr := child.Class(ctx)
			sem.Release(1)
			if nameErr != nil || classErr != nil || childClass != NodeClassObject {
				return
			}
			entries := []objectEntry{{node: child, name: childName}}
			entries = append(entries, c.listObjectsFrom(ctx, child, level+1, maxLevel, sem)...)
			results[i] = entries
		}(i, child)
	}
	wg.Wait()

	var objects []objectEntry
	for _, entries := range results {
		objects = append(objects, entries...)
	}
	return objects
}

// resolvePath walks a dotted path from the named root object down to a
// node handle.
//
// Segment matching at each step is by exact equality against either the
// child's browse name or its display name; the first child satisfying
// either wins. Any unmatched segment fails the whole resolution.
//
// conn is the session snapshot taken when the operation started; the
// resolution keeps using it even if the client disconnects mid-walk.
func (c *Client) resolvePath(ctx context.Context, conn Conn, path, rootObjectName string) (Node, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, &ClientError{Operation: "resolve", Path: path, Message: "no segments", Err: ErrEmptyPath}
	}

	current, ok := c.findObjectByName(ctx, conn, rootObjectName)
	if !ok {
		return nil, &ClientError{
			Operation: "resolve",
			Path:      path,
			Message:   "root object " + quote(rootObjectName) + " not found",
			Err:       ErrNotFound,
		}
	}

	for _, segment := range segments {
		children, err := current.Children(ctx)
		if err != nil {
			return nil, &ClientError{Operation: "resolve", Path: path, Message: "children read failed at " + quote(segment), Err: err}
		}

		found := false
		for _, child := range children {
			browseName, err := child.BrowseName(ctx)
			if err != nil {
				c.logger.Debug("browse name read failed", "node", child.ID(), "error", err.Error())
				continue
			}
			displayName, err := child.DisplayName(ctx)
			if err != nil {
				c.logger.Debug("display name read failed", "node", child.ID(), "error", err.Error())
				continue
			}
			if browseName == segment || displayName == segment {
				current = child
				found = true
				break
			}
		}
		if !found {
			return nil, &ClientError{
				Operation: "resolve",
				Path:      path,
				Message:   "segment " + quote(segment) + " not found",
				Err:       ErrNotFound,
			}
		}
	}

	return current, nil
}

// findObjectByName scans only the direct children of the top-level
// objects container for a display-name match. Not recursive.
func (c *Client) findObjectByName(ctx context.Context, conn Conn, name string) (Node, bool) {
	children, err := conn.ObjectsRoot().Children(ctx)
	if err != nil {
		c.logger.Debug("objects root read failed", "error", err.Error())
		return nil, false
	}

	for _, child := range children {
		displayName, err := child.DisplayName(ctx)
		if err != nil {
			c.logger.Debug("display name read failed", "node", child.ID(), "error", err.Error())
			continue
		}
		if displayName == name {
			return child, true
		}
	}
	return nil, false
}

// quote quotes a name for error messages.
func quote(s string) string {
	return "'" + s + "'"
}
