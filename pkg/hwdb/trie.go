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
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// trieNode is a decoded node record. All offsets are relative to the
// start of the mapping.
type trieNode struct {
	off           uint64
	prefixOff     uint64
	childrenCount int
	valuesCount   uint64
}

func (db *Database) inRange(off, length uint64) bool {
	size := uint64(len(db.data))
	return off <= size && length <= size-off
}

func (db *Database) node(off uint64) (trieNode, error) {
	if !db.inRange(off, db.hdr.NodeSize) {
		return trieNode{}, fmt.Errorf("%w: node at %d", ErrCorrupted, off)
	}

	le := binary.LittleEndian
	rec := db.data[off:]
	n := trieNode{
		off:           off,
		prefixOff:     le.Uint64(rec[nodeOffPrefix:]),
		childrenCount: int(rec[nodeOffChildren]),
		valuesCount:   le.Uint64(rec[nodeOffValues:]),
	}

	tail := uint64(n.childrenCount)*db.hdr.ChildEntrySize + n.valuesCount*db.hdr.ValueEntrySize
	if n.valuesCount > uint64(len(db.data)) || !db.inRange(off+db.hdr.NodeSize, tail) {
		return trieNode{}, fmt.Errorf("%w: node at %d overruns the file", ErrCorrupted, off)
	}
	return n, nil
}

func (db *Database) str(off uint64) (string, error) {
	if off >= uint64(len(db.data)) {
		return "", fmt.Errorf("%w: string at %d", ErrCorrupted, off)
	}
	s := db.data[off:]
	end := bytes.IndexByte(s, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at %d", ErrCorrupted, off)
	}
	return string(s[:end]), nil
}

func (db *Database) prefix(n trieNode) (string, error) {
	if n.prefixOff == 0 {
		return "", nil
	}
	return db.str(n.prefixOff)
}

func (db *Database) childAt(n trieNode, i int) (byte, uint64) {
	base := n.off + db.hdr.NodeSize + uint64(i)*db.hdr.ChildEntrySize
	return db.data[base+childOffChar], binary.LittleEndian.Uint64(db.data[base+childOffNode:])
}

// lookupChild binary searches the sorted child array of n for c.
func (db *Database) lookupChild(n trieNode, c byte) (trieNode, bool, error) {
	i := sort.Search(n.childrenCount, func(i int) bool {
		ch, _ := db.childAt(n, i)
		return ch >= c
	})
	if i == n.childrenCount {
		return trieNode{}, false, nil
	}
	ch, off := db.childAt(n, i)
	if ch != c {
		return trieNode{}, false, nil
	}
	child, err := db.node(off)
	if err != nil {
		return trieNode{}, false, err
	}
	return child, true, nil
}

func (db *Database) valueAt(n trieNode, i uint64) (string, string, error) {
	base := n.off + db.hdr.NodeSize + uint64(n.childrenCount)*db.hdr.ChildEntrySize + i*db.hdr.ValueEntrySize
	le := binary.LittleEndian
	key, err := db.str(le.Uint64(db.data[base+valueOffKey:]))
	if err != nil {
		return "", "", err
	}
	value, err := db.str(le.Uint64(db.data[base+valueOffValue:]))
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}
