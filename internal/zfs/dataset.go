// Package zfs drives zfs(8) subcommands through an internal/command
// Runner and internal/endpoint Endpoint, and parses their output into
// the types the rest of the engine works with.
package zfs

import (
	"fmt"
	"strings"
)

// DatasetPath identifies a ZFS filesystem or volume by pool/path, as
// seen from a particular Endpoint. It never carries the endpoint
// itself; callers pair a DatasetPath with an *endpoint.Endpoint.
type DatasetPath struct {
	comps []string
}

// NewDatasetPath parses "pool/a/b" into components. path must be
// non-empty.
func NewDatasetPath(path string) (DatasetPath, error) {
	if path == "" {
		return DatasetPath{}, fmt.Errorf("zfs: empty dataset path")
	}
	return DatasetPath{comps: strings.Split(path, "/")}, nil
}

func (p DatasetPath) String() string { return strings.Join(p.comps, "/") }

// Pool returns the first path component.
func (p DatasetPath) Pool() string {
	if len(p.comps) == 0 {
		return ""
	}
	return p.comps[0]
}

func (p DatasetPath) Length() int { return len(p.comps) }

// Child returns the dataset path for appending name as a child
// component.
func (p DatasetPath) Child(name string) DatasetPath {
	comps := make([]string, len(p.comps)+1)
	copy(comps, p.comps)
	comps[len(p.comps)] = name
	return DatasetPath{comps: comps}
}

// RelativeTo returns the path components of p below root, or (nil,
// false) if p is not equal to or a descendant of root.
func (p DatasetPath) RelativeTo(root DatasetPath) ([]string, bool) {
	if len(p.comps) < len(root.comps) {
		return nil, false
	}
	for i, c := range root.comps {
		if p.comps[i] != c {
			return nil, false
		}
	}
	return p.comps[len(root.comps):], true
}

// Remap replaces the root-dataset prefix of p (oldRoot) with newRoot,
// preserving the remainder of the path. Used when copying a
// source-side dataset path onto the destination tree.
func Remap(p, oldRoot, newRoot DatasetPath) (DatasetPath, error) {
	suffix, ok := p.RelativeTo(oldRoot)
	if !ok {
		return DatasetPath{}, fmt.Errorf("zfs: %s is not under %s", p, oldRoot)
	}
	out := newRoot
	for _, c := range suffix {
		out = out.Child(c)
	}
	return out, nil
}
