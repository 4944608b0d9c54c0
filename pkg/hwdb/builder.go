/*
Copyright 2026 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package hwdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ToolVersion is stored in the header of databases written by Builder.
const ToolVersion = 1

var ErrTooManyChildren = errors.New("hwdb: node has more than 255 children")

type buildNode struct {
	prefix   string
	children []buildChild
	values   []buildValue
}

type buildChild struct {
	c    byte
	node *buildNode
}

type buildValue struct {
	key   string
	value string
}

func (n *buildNode) child(c byte) *buildNode {
	i := sort.Search(len(n.children), func(i int) bool { return n.children[i].c >= c })
	if i < len(n.children) && n.children[i].c == c {
		return n.children[i].node
	}
	return nil
}

func (n *buildNode) addChild(c byte, child *buildNode) {
	i := sort.Search(len(n.children), func(i int) bool { return n.children[i].c >= c })
	n.children = append(n.children, buildChild{})
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = buildChild{c: c, node: child}
}

func (n *buildNode) setValue(key, value string) {
	for i := range n.values {
		if n.values[i].key == key {
			n.values[i].value = value
			return
		}
	}
	n.values = append(n.values, buildValue{key: key, value: value})
}

// Builder compiles match patterns and their properties into the on-disk
// trie format read by Open.
type Builder struct {
	root *buildNode
}

func NewBuilder() *Builder {
	return &Builder{root: &buildNode{}}
}

// Add registers property key=value for every modalias matching pattern.
// Adding the same key under the same pattern again replaces the value.
func (b *Builder) Add(pattern, key, value string) {
	b.insert(pattern, string(propertyMarker)+key, value)
}

func (b *Builder) insert(search, key, value string) {
	n := b.root
	i := 0
	for {
		p := 0
		for p < len(n.prefix) && i+p < len(search) && n.prefix[p] == search[i+p] {
			p++
		}

		if p < len(n.prefix) {
			split := &buildNode{
				prefix:   n.prefix[p+1:],
				children: n.children,
				values:   n.values,
			}
			c := n.prefix[p]
			n.prefix = n.prefix[:p]
			n.children = []buildChild{{c: c, node: split}}
			n.values = nil
		}
		i += p

		if i == len(search) {
			n.setValue(key, value)
			return
		}

		c := search[i]
		child := n.child(c)
		if child == nil {
			child = &buildNode{prefix: search[i+1:]}
			child.setValue(key, value)
			n.addChild(c, child)
			return
		}
		n = child
		i++
	}
}

type stringTable struct {
	base    uint64
	offsets map[string]uint64
	data    []byte
}

func (t *stringTable) add(s string) uint64 {
	if off, ok := t.offsets[s]; ok {
		return off
	}
	off := t.base + uint64(len(t.data))
	t.offsets[s] = off
	t.data = append(t.data, s...)
	t.data = append(t.data, 0)
	return off
}

// Bytes renders the database. Nodes are laid out children first, so the
// root node comes last in the node region.
func (b *Builder) Bytes() ([]byte, error) {
	offsets := make(map[*buildNode]uint64)
	var order []*buildNode

	off := uint64(headerSize)
	var layout func(n *buildNode) error
	layout = func(n *buildNode) error {
		if len(n.children) > 255 {
			return fmt.Errorf("%w: prefix %q", ErrTooManyChildren, n.prefix)
		}
		for _, c := range n.children {
			if err := layout(c.node); err != nil {
				return err
			}
		}
		offsets[n] = off
		off += nodeSize + uint64(len(n.children))*childEntrySize + uint64(len(n.values))*valueEntrySize
		order = append(order, n)
		return nil
	}
	if err := layout(b.root); err != nil {
		return nil, err
	}

	nodesEnd := off
	strs := &stringTable{base: nodesEnd, offsets: make(map[string]uint64)}
	strs.add("")

	buf := make([]byte, nodesEnd)
	le := binary.LittleEndian
	for _, n := range order {
		rec := buf[offsets[n]:]
		le.PutUint64(rec[nodeOffPrefix:], strs.add(n.prefix))
		rec[nodeOffChildren] = byte(len(n.children))
		le.PutUint64(rec[nodeOffValues:], uint64(len(n.values)))

		rec = rec[nodeSize:]
		for _, c := range n.children {
			rec[childOffChar] = c.c
			le.PutUint64(rec[childOffNode:], offsets[c.node])
			rec = rec[childEntrySize:]
		}
		for _, v := range n.values {
			le.PutUint64(rec[valueOffKey:], strs.add(v.key))
			le.PutUint64(rec[valueOffValue:], strs.add(v.value))
			rec = rec[valueEntrySize:]
		}
	}

	buf = append(buf, strs.data...)
	encodeHeader(buf, Header{
		ToolVersion:    ToolVersion,
		FileSize:       uint64(len(buf)),
		HeaderSize:     headerSize,
		NodeSize:       nodeSize,
		ChildEntrySize: childEntrySize,
		ValueEntrySize: valueEntrySize,
		NodesRootOff:   offsets[b.root],
		NodesLen:       nodesEnd - headerSize,
		StringsLen:     uint64(len(strs.data)),
	})
	return buf, nil
}

// WriteTo implements io.WriterTo.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	data, err := b.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// WriteFile writes the database next to path and renames it into place,
// so readers never observe a partial file.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
