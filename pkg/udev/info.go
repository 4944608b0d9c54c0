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
	"maps"
	"slices"
)

// DeviceInfo is a plain copy of a Device that outlives it.
type DeviceInfo struct {
	Syspath    string            `json:"syspath"`
	Subsystem  string            `json:"subsystem"`
	Devtype    string            `json:"devtype,omitempty"`
	Devnode    string            `json:"devnode,omitempty"`
	Action     Action            `json:"action,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
	Sysattrs   map[string]string `json:"sysattrs,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Devlinks   []string          `json:"devlinks,omitempty"`
	Parent     *DeviceInfo       `json:"parent,omitempty"`
}

func (d *Device) Info() *DeviceInfo {
	info := &DeviceInfo{
		Syspath:    d.syspath,
		Subsystem:  d.subsystem,
		Devtype:    d.devtype,
		Devnode:    d.devnode,
		Action:     d.action,
		Properties: d.properties.Map(),
		Sysattrs:   d.sysattrs.Map(),
		Tags:       names(&d.tags),
		Devlinks:   names(&d.devlinks),
	}
	if d.parent != nil {
		info.Parent = d.parent.Info()
	}
	return info
}

// Equal compares everything but the action.
func (i *DeviceInfo) Equal(o *DeviceInfo) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Syspath == o.Syspath &&
		i.Subsystem == o.Subsystem &&
		i.Devtype == o.Devtype &&
		i.Devnode == o.Devnode &&
		maps.Equal(i.Properties, o.Properties) &&
		maps.Equal(i.Sysattrs, o.Sysattrs) &&
		slices.Equal(i.Tags, o.Tags) &&
		slices.Equal(i.Devlinks, o.Devlinks) &&
		i.Parent.Equal(o.Parent)
}

func names(l *List) []string {
	var out []string
	for e := range l.All() {
		out = append(out, e.Name())
	}
	return out
}
