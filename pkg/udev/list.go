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

package udev

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/btree"
)

// ErrFormat is returned by Insertf when the value could not be rendered.
var ErrFormat = errors.New("failed to render list entry value")

const listDegree = 8

// List is an ordered set of name/value entries. Names are unique and
// entries are kept sorted by byte-wise name comparison. A zero List is
// ready to use. List is not safe for concurrent use.
type List struct {
	tree *btree.BTreeG[*ListEntry]
}

// ListEntry is a single entry of a List. An entry stays valid until it is
// replaced, removed or the owning list is cleared.
type ListEntry struct {
	list     *List
	name     string
	value    string
	hasValue bool
}

func lessEntry(a, b *ListEntry) bool {
	return strings.Compare(a.name, b.name) < 0
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

func (l *List) init() {
	if l.tree == nil {
		l.tree = btree.NewG[*ListEntry](listDegree, lessEntry)
	}
}

// Insert adds an entry or replaces the existing entry with the same name.
// A nil value records the name without a value.
func (l *List) Insert(name string, value *string) {
	l.init()

	e := &ListEntry{list: l, name: name}
	if value != nil {
		e.value = *value
		e.hasValue = true
	}

	if old, replaced := l.tree.ReplaceOrInsert(e); replaced {
		old.list = nil
	}
}

// InsertValue is Insert with a present value.
func (l *List) InsertValue(name, value string) {
	l.Insert(name, &value)
}

// Insertf renders the value with fmt.Sprintf and inserts it.
// The list is left untouched if rendering fails.
func (l *List) Insertf(name, format string, args ...any) error {
	value := fmt.Sprintf(format, args...)
	if badVerbs(value, format, args) {
		return fmt.Errorf("%w: %q", ErrFormat, value)
	}
	l.InsertValue(name, value)
	return nil
}

// badVerbs reports whether fmt marked an error in value. Markers carried
// over from the format or the arguments do not count.
func badVerbs(value, format string, args []any) bool {
	const marker = "%!"
	n := strings.Count(value, marker)
	if n == 0 {
		return false
	}
	known := strings.Count(format, marker)
	for _, arg := range args {
		known += strings.Count(fmt.Sprint(arg), marker)
	}
	return n > known
}

// Get returns the entry named name or nil.
func (l *List) Get(name string) *ListEntry {
	if l == nil || l.tree == nil {
		return nil
	}
	e, ok := l.tree.Get(&ListEntry{name: name})
	if !ok {
		return nil
	}
	return e
}

// Remove deletes the entry named name and reports whether it existed.
func (l *List) Remove(name string) bool {
	if l.tree == nil {
		return false
	}
	e, ok := l.tree.Delete(&ListEntry{name: name})
	if ok {
		e.list = nil
	}
	return ok
}

// First returns the entry with the smallest name or nil for an empty list.
func (l *List) First() *ListEntry {
	if l == nil || l.tree == nil {
		return nil
	}
	e, ok := l.tree.Min()
	if !ok {
		return nil
	}
	return e
}

// All iterates over the entries in name order.
func (l *List) All() iter.Seq[*ListEntry] {
	return func(yield func(*ListEntry) bool) {
		if l == nil || l.tree == nil {
			return
		}
		l.tree.Ascend(func(e *ListEntry) bool {
			return yield(e)
		})
	}
}

// Map returns a copy of the list contents. Entries without a value map to "".
func (l *List) Map() map[string]string {
	m := make(map[string]string, l.Len())
	for e := range l.All() {
		m[e.name] = e.value
	}
	return m
}

// Len returns the number of entries.
func (l *List) Len() int {
	if l == nil || l.tree == nil {
		return 0
	}
	return l.tree.Len()
}

// Clear removes all entries. Entries obtained before Clear are detached.
func (l *List) Clear() {
	if l.tree == nil {
		return
	}
	l.tree.Ascend(func(e *ListEntry) bool {
		e.list = nil
		return true
	})
	l.tree.Clear(false)
}

// Name returns the entry name.
func (e *ListEntry) Name() string {
	if e == nil {
		return ""
	}
	return e.name
}

// Value returns the entry value and whether one was set.
func (e *ListEntry) Value() (string, bool) {
	if e == nil {
		return "", false
	}
	return e.value, e.hasValue
}

// Next returns the entry following e in name order.
func (e *ListEntry) Next() *ListEntry {
	if e == nil || e.list == nil {
		return nil
	}

	var next *ListEntry
	e.list.tree.AscendGreaterOrEqual(e, func(item *ListEntry) bool {
		if item == e {
			return true
		}
		next = item
		return false
	})
	return next
}

// FindByName looks name up in the list e belongs to.
func (e *ListEntry) FindByName(name string) *ListEntry {
	if e == nil {
		return nil
	}
	return e.list.Get(name)
}
