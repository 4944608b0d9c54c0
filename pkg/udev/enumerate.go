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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"k8s.io/utils/ptr"
)

// Enumerator collects the syspaths of devices matching its filter.
type Enumerator struct {
	udev    *Udev
	filter  Filter
	devices List
}

func NewEnumerator(u *Udev) *Enumerator {
	return &Enumerator{udev: u}
}

func (e *Enumerator) AddMatchSubsystem(subsystem string) error {
	return e.filter.Add(FilterSubsystem, false, subsystem, nil)
}

func (e *Enumerator) AddNomatchSubsystem(subsystem string) error {
	return e.filter.Add(FilterSubsystem, true, subsystem, nil)
}

func (e *Enumerator) AddMatchSysname(sysname string) error {
	return e.filter.Add(FilterSysname, false, sysname, nil)
}

// AddMatchSysattr matches devices with sysattr set. value may be nil to
// accept any value.
func (e *Enumerator) AddMatchSysattr(sysattr string, value *string) error {
	return e.filter.Add(FilterSysattr, false, sysattr, value)
}

func (e *Enumerator) AddNomatchSysattr(sysattr string, value *string) error {
	return e.filter.Add(FilterSysattr, true, sysattr, value)
}

func (e *Enumerator) AddMatchProperty(property, value string) error {
	return e.filter.Add(FilterProperty, false, property, ptr.To(value))
}

func (e *Enumerator) AddMatchTag(tag string) error {
	return e.filter.Add(FilterTag, false, tag, nil)
}

// AddSyspath adds syspath to the result regardless of the filter.
func (e *Enumerator) AddSyspath(syspath string) {
	e.devices.Insert(syspath, nil)
}

// Filter exposes the criteria, e.g. to share them with a monitor.
func (e *Enumerator) Filter() *Filter {
	return &e.filter
}

// ScanDevices replaces the result with every matching device node under
// the device root and every matching network interface. The result is
// empty if the scan fails.
func (e *Enumerator) ScanDevices(ctx context.Context) error {
	e.devices.Clear()

	if err := e.scanDevRoot(ctx); err != nil {
		e.devices.Clear()
		return err
	}
	if err := e.scanLinks(ctx); err != nil {
		e.devices.Clear()
		return err
	}
	return nil
}

func (e *Enumerator) scanDevRoot(ctx context.Context) error {
	root := e.udev.DevRoot()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != root && errors.Is(err, fs.ErrPermission) {
				e.udev.log.Debug("skipping unreadable directory", slog.String("path", path))
				return fs.SkipDir
			}
			return fmt.Errorf("failed to scan %s: %w", path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		typ := d.Type()
		if typ&fs.ModeSymlink == 0 && typ&fs.ModeCharDevice == 0 {
			return nil
		}
		if e.filter.Match(e.udev, path) {
			e.devices.Insert(path, nil)
		}
		return nil
	})
}

func (e *Enumerator) scanLinks(ctx context.Context) error {
	links, err := e.udev.Links().LinkList()
	if err != nil {
		return fmt.Errorf("failed to list network links: %w", err)
	}

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		syspath := NetRoot + "/" + link.Attrs().Name
		if e.filter.Match(e.udev, syspath) {
			e.devices.Insert(syspath, nil)
		}
	}
	return nil
}

// First returns the first syspath of the result in sorted order.
func (e *Enumerator) First() *ListEntry {
	return e.devices.First()
}

func (e *Enumerator) Devices() *List {
	return &e.devices
}
