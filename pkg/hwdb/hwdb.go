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
	"errors"
	"fmt"
	"os"
)

// DefaultPath is where the compiled hardware database is installed.
const DefaultPath = "/etc/udev/hwdb.bin"

var (
	ErrTooSmall     = errors.New("hwdb: file is smaller than the header")
	ErrBadSignature = errors.New("hwdb: bad signature")
	ErrSizeMismatch = errors.New("hwdb: declared file size does not match")
	ErrCorrupted    = errors.New("hwdb: offset out of range")
	ErrClosed       = errors.New("hwdb: database is closed")
)

// EmitFunc receives every matching property. Returning an error stops the lookup.
type EmitFunc func(key, value string) error

// Database is a read-only memory-mapped hardware database.
// Lookups never modify it, so they may run concurrently; Close must not.
type Database struct {
	f    *os.File
	data []byte
	hdr  Header
}

// Open maps the database at path. Nothing is left open when it fails.
func Open(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	db := &Database{f: f}

	fi, err := f.Stat()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	size := fi.Size()
	if size < MinSize {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooSmall, path, size)
	}

	db.data, err = mmapFile(f, int(size))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("hwdb: mmap %s: %w", path, err)
	}

	if !hasSignature(db.data) {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s", ErrBadSignature, path)
	}

	db.hdr = decodeHeader(db.data)
	if db.hdr.FileSize != uint64(size) {
		_ = db.Close()
		return nil, fmt.Errorf("%w: header says %d, file is %d", ErrSizeMismatch, db.hdr.FileSize, size)
	}

	return db, nil
}

// Close unmaps the file and closes it. It is safe to call on nil and more than once.
func (db *Database) Close() error {
	if db == nil {
		return nil
	}

	var err error
	if db.data != nil {
		err = munmapFile(db.data)
		db.data = nil
	}
	if db.f != nil {
		if closeErr := db.f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		db.f = nil
	}
	return err
}

// Header returns the decoded file header.
func (db *Database) Header() Header {
	return db.hdr
}

// Lookup emits the properties of every entry whose pattern matches modalias.
func (db *Database) Lookup(modalias string, emit EmitFunc) error {
	if db == nil || db.data == nil {
		return ErrClosed
	}
	if !db.validRecordSizes() {
		return fmt.Errorf("%w: record sizes %d/%d/%d", ErrCorrupted,
			db.hdr.NodeSize, db.hdr.ChildEntrySize, db.hdr.ValueEntrySize)
	}

	s := &searcher{db: db, emit: emit}
	return s.search(modalias)
}

func (db *Database) validRecordSizes() bool {
	size := uint64(len(db.data))
	h := db.hdr
	return h.NodeSize >= nodeSize && h.NodeSize <= size &&
		h.ChildEntrySize >= childEntrySize && h.ChildEntrySize <= size &&
		h.ValueEntrySize >= valueEntrySize && h.ValueEntrySize <= size
}
