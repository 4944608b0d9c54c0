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
)

// Signature is the magic at the start of every database file.
var Signature = [8]byte{'K', 'S', 'L', 'P', 'H', 'H', 'R', 'H'}

// Header field offsets. All integers are little-endian uint64.
const (
	offSignature      = 0
	offToolVersion    = 8
	offFileSize       = 16
	offHeaderSize     = 24
	offNodeSize       = 32
	offChildEntrySize = 40
	offValueEntrySize = 48
	offNodesRootOff   = 56
	offNodesLen       = 64
	offStringsLen     = 72

	// MinSize is the smallest file that still carries a complete header.
	MinSize = offStringsLen + 8
)

// Record sizes written by this package. Readers use the sizes declared
// in the header instead.
const (
	headerSize     = MinSize
	nodeSize       = 24
	childEntrySize = 16
	valueEntrySize = 16
)

// Node record: prefix_off u64, children_count u8, pad[7], values_count u64.
const (
	nodeOffPrefix   = 0
	nodeOffChildren = 8
	nodeOffValues   = 16
)

// Child entry: c u8, pad[7], child_off u64.
const (
	childOffChar = 0
	childOffNode = 8
)

// Value entry: key_off u64, value_off u64.
const (
	valueOffKey   = 0
	valueOffValue = 8
)

// Header is the decoded file header.
type Header struct {
	ToolVersion    uint64
	FileSize       uint64
	HeaderSize     uint64
	NodeSize       uint64
	ChildEntrySize uint64
	ValueEntrySize uint64
	NodesRootOff   uint64
	NodesLen       uint64
	StringsLen     uint64
}

func hasSignature(data []byte) bool {
	return len(data) >= len(Signature) && bytes.Equal(data[:len(Signature)], Signature[:])
}

func decodeHeader(data []byte) Header {
	le := binary.LittleEndian
	return Header{
		ToolVersion:    le.Uint64(data[offToolVersion:]),
		FileSize:       le.Uint64(data[offFileSize:]),
		HeaderSize:     le.Uint64(data[offHeaderSize:]),
		NodeSize:       le.Uint64(data[offNodeSize:]),
		ChildEntrySize: le.Uint64(data[offChildEntrySize:]),
		ValueEntrySize: le.Uint64(data[offValueEntrySize:]),
		NodesRootOff:   le.Uint64(data[offNodesRootOff:]),
		NodesLen:       le.Uint64(data[offNodesLen:]),
		StringsLen:     le.Uint64(data[offStringsLen:]),
	}
}

func encodeHeader(buf []byte, h Header) {
	le := binary.LittleEndian
	copy(buf[offSignature:], Signature[:])
	le.PutUint64(buf[offToolVersion:], h.ToolVersion)
	le.PutUint64(buf[offFileSize:], h.FileSize)
	le.PutUint64(buf[offHeaderSize:], h.HeaderSize)
	le.PutUint64(buf[offNodeSize:], h.NodeSize)
	le.PutUint64(buf[offChildEntrySize:], h.ChildEntrySize)
	le.PutUint64(buf[offValueEntrySize:], h.ValueEntrySize)
	le.PutUint64(buf[offNodesRootOff:], h.NodesRootOff)
	le.PutUint64(buf[offNodesLen:], h.NodesLen)
	le.PutUint64(buf[offStringsLen:], h.StringsLen)
}
