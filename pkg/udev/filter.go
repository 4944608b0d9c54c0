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

	"github.com/deckhouse/udev-devd/internal/glob"
)

// FilterType selects what a filter criterion is matched against.
type FilterType int

const (
	FilterSubsystem FilterType = iota
	FilterSysname
	FilterProperty
	FilterTag
	FilterSysattr

	filterTypeCount
)

func (t FilterType) String() string {
	switch t {
	case FilterSubsystem:
		return "subsystem"
	case FilterSysname:
		return "sysname"
	case FilterProperty:
		return "property"
	case FilterTag:
		return "tag"
	case FilterSysattr:
		return "sysattr"
	default:
		return fmt.Sprintf("FilterType(%d)", int(t))
	}
}

var ErrInvalidFilterType = errors.New("invalid filter type")

// DeviceAccessor resolves syspaths for the filter engine.
type DeviceAccessor interface {
	// SubsystemBySyspath returns UnknownSubsystem when the syspath is not handled.
	SubsystemBySyspath(syspath string) string
	SysnameBySyspath(syspath string) string
	// NewDevice materializes a device. The filter releases it when done.
	NewDevice(syspath string) (*Device, error)
}

type filterEntry struct {
	typ     FilterType
	negated bool
	expr    string
	value   *string
}

// Filter is an ordered set of match and nomatch criteria.
// A zero Filter matches everything.
type Filter struct {
	entries []filterEntry
}

// Add appends a criterion. value is only used by property and sysattr
// criteria, nil there matches the name regardless of the value.
func (f *Filter) Add(typ FilterType, negated bool, expr string, value *string) error {
	if typ < 0 || typ >= filterTypeCount {
		return fmt.Errorf("%w: %d", ErrInvalidFilterType, typ)
	}

	e := filterEntry{typ: typ, negated: negated, expr: expr}
	if value != nil {
		v := *value
		e.value = &v
	}
	f.entries = append(f.entries, e)
	return nil
}

// Len returns the number of criteria.
func (f *Filter) Len() int {
	return len(f.entries)
}

// Reset drops all criteria.
func (f *Filter) Reset() {
	f.entries = nil
}

func (f *Filter) hasPositive(typ FilterType) bool {
	for _, e := range f.entries {
		if e.typ == typ && !e.negated {
			return true
		}
	}
	return false
}

// MatchSubsystem is a fast check that needs no device. With no criteria
// at all every subsystem passes, otherwise a positive subsystem criterion
// has to match and no negative one may.
func (f *Filter) MatchSubsystem(subsystem string) bool {
	if len(f.entries) == 0 {
		return true
	}

	for _, e := range f.entries {
		if e.typ == FilterSubsystem && e.negated && match(e.expr, subsystem) {
			return false
		}
	}

	for _, e := range f.entries {
		if e.typ == FilterSubsystem && !e.negated && match(e.expr, subsystem) {
			return true
		}
	}

	// Filter is not empty, matched nothing.
	return false
}

type score struct {
	seen    bool
	matched bool
}

// Match evaluates all criteria against the device at syspath.
// Criteria of one type are ORed, types are ANDed. Negated criteria are
// checked only after the positive ones passed.
func (f *Filter) Match(accessor DeviceAccessor, syspath string) bool {
	subsystem := accessor.SubsystemBySyspath(syspath)
	if subsystem == UnknownSubsystem {
		return false
	}
	sysname := accessor.SysnameBySyspath(syspath)

	var (
		scores  [filterTypeCount]score
		dev     *Device
		devErr  error
		devOnce bool
	)

	device := func() *Device {
		if !devOnce {
			devOnce = true
			dev, devErr = accessor.NewDevice(syspath)
			if devErr != nil {
				dev = nil
			}
		}
		return dev
	}
	defer func() {
		if dev != nil {
			dev.Release()
		}
	}()

	for _, e := range f.entries {
		if e.negated {
			continue
		}
		s := &scores[e.typ]
		s.seen = true

		switch e.typ {
		case FilterSubsystem:
			if match(e.expr, subsystem) {
				s.matched = true
			}
		case FilterSysname:
			if match(e.expr, sysname) {
				s.matched = true
			}
		case FilterProperty:
			if d := device(); d != nil && matchList(d.Properties(), e) {
				s.matched = true
			}
		case FilterTag:
			if d := device(); d != nil && matchList(d.Tags(), e) {
				s.matched = true
			}
		case FilterSysattr:
			if d := device(); d != nil && matchList(d.Sysattrs(), e) {
				s.matched = true
			}
		}
	}

	for _, s := range scores {
		if s.seen != s.matched {
			return false
		}
	}

	for _, e := range f.entries {
		if !e.negated {
			continue
		}

		switch e.typ {
		case FilterSubsystem:
			if match(e.expr, subsystem) {
				return false
			}
		case FilterSysname:
			if match(e.expr, sysname) {
				return false
			}
		case FilterSysattr:
			if d := device(); d != nil && matchList(d.Sysattrs(), e) {
				return false
			}
		}
	}

	return true
}

func matchList(l *List, e filterEntry) bool {
	for entry := range l.All() {
		if !match(e.expr, entry.name) {
			continue
		}
		if e.value == nil {
			return true
		}
		if entry.hasValue && match(*e.value, entry.value) {
			return true
		}
	}
	return false
}

func match(pattern, s string) bool {
	return glob.Match(pattern, s)
}
