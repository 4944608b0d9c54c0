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
	"path"
)

var ErrSysattrExists = errors.New("sysattr is already set")

// Device is a snapshot of one device node or network interface.
type Device struct {
	syspath   string
	subsystem string
	devtype   string
	devnode   string
	action    Action

	properties List
	sysattrs   List
	tags       List
	devlinks   List

	parent *Device
	// parentRef is set once the parent was handed out, Release keeps it then.
	parentRef bool
}

// NewDevice builds a bare device. Devices created through Udev carry
// the properties of their subsystem on top of that.
func NewDevice(syspath, subsystem, devtype string, action Action) *Device {
	if action == "" {
		action = ActionNone
	}
	return &Device{
		syspath:   syspath,
		subsystem: subsystem,
		devtype:   devtype,
		action:    action,
	}
}

func (d *Device) Syspath() string {
	return d.syspath
}

// Sysname is the last component of the syspath.
func (d *Device) Sysname() string {
	return sysnameOf(d.syspath)
}

// Sysnum is the run of digits the syspath ends with, possibly empty.
func (d *Device) Sysnum() string {
	return sysnumOf(d.syspath)
}

func (d *Device) Subsystem() string {
	return d.subsystem
}

func (d *Device) Devtype() string {
	return d.devtype
}

// Devnode is the device node path, empty for devices without one.
func (d *Device) Devnode() string {
	return d.devnode
}

func (d *Device) Action() Action {
	return d.action
}

func (d *Device) Properties() *List {
	return &d.properties
}

// PropertyValue returns the value of property name and whether it is set.
func (d *Device) PropertyValue(name string) (string, bool) {
	return d.properties.Get(name).Value()
}

func (d *Device) Sysattrs() *List {
	return &d.sysattrs
}

func (d *Device) SysattrValue(name string) (string, bool) {
	return d.sysattrs.Get(name).Value()
}

// SetSysattrValue records a sysattr. Existing sysattrs are never overwritten.
func (d *Device) SetSysattrValue(name, value string) error {
	if d.sysattrs.Get(name) != nil {
		return ErrSysattrExists
	}
	d.sysattrs.InsertValue(name, value)
	return nil
}

func (d *Device) Tags() *List {
	return &d.tags
}

func (d *Device) HasTag(tag string) bool {
	return d.tags.Get(tag) != nil
}

func (d *Device) Devlinks() *List {
	return &d.devlinks
}

// Parent returns the parent device or nil. The parent stays valid after
// Release of d.
func (d *Device) Parent() *Device {
	if d.parent != nil {
		d.parentRef = true
	}
	return d.parent
}

// SetParent attaches parent. d owns it until Parent hands it out.
func (d *Device) SetParent(parent *Device) {
	d.parent = parent
	d.parentRef = false
}

// ParentWithSubsystemDevtype returns the closest ancestor with the given
// subsystem and, if devtype is not empty, the given devtype.
func (d *Device) ParentWithSubsystemDevtype(subsystem, devtype string) *Device {
	for child, parent := d, d.parent; parent != nil; child, parent = parent, parent.parent {
		if parent.subsystem != subsystem {
			continue
		}
		if devtype == "" || parent.devtype == devtype {
			child.parentRef = true
			return parent
		}
	}
	return nil
}

// Release drops the lists of d and of every parent that was not handed
// out. d must not be used afterwards.
func (d *Device) Release() {
	for dev := d; dev != nil; {
		dev.properties.Clear()
		dev.sysattrs.Clear()
		dev.tags.Clear()
		dev.devlinks.Clear()

		next := dev.parent
		keep := dev.parentRef
		dev.parent = nil
		if keep {
			return
		}
		dev = next
	}
}

func sysnameOf(syspath string) string {
	if syspath == "" {
		return ""
	}
	return path.Base(syspath)
}

func sysnumOf(syspath string) string {
	i := len(syspath)
	for i > 0 && syspath[i-1] >= '0' && syspath[i-1] <= '9' {
		i--
	}
	return syspath[i:]
}
