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
	"log/slog"
	"path"
	"path/filepath"
)

const (
	tagSeat    = "seat"
	tagUaccess = "uaccess"
)

func createInput(d *Device, kinds ...string) {
	d.properties.InsertValue("ID_INPUT", "1")
	for _, kind := range kinds {
		d.properties.InsertValue(kind, "1")
	}
	d.tags.Insert(tagSeat, nil)
	d.tags.Insert(tagUaccess, nil)
}

// createEvdev attaches the input device eventN belongs to as its parent.
func createEvdev(_ *Udev, _ *subsystemConfig, d *Device) {
	createInput(d)

	parent := NewDevice(path.Join(path.Dir(d.syspath), "input"+d.Sysnum()), "input", "", d.action)
	parent.properties.InsertValue("SUBSYSTEM", "input")
	d.SetParent(parent)
}

func createKeyboard(_ *Udev, _ *subsystemConfig, d *Device) {
	createInput(d, "ID_INPUT_KEY", "ID_INPUT_KEYBOARD")
}

func createMouse(_ *Udev, _ *subsystemConfig, d *Device) {
	createInput(d, "ID_INPUT_MOUSE")
}

func createJoystick(_ *Udev, _ *subsystemConfig, d *Device) {
	createInput(d, "ID_INPUT_JOYSTICK")
}

func createTouchpad(_ *Udev, _ *subsystemConfig, d *Device) {
	createInput(d, "ID_INPUT_TOUCHPAD")
}

func createTouchscreen(_ *Udev, _ *subsystemConfig, d *Device) {
	createInput(d, "ID_INPUT_TOUCHSCREEN")
}

// createDRM records every symlink matching the subsystem link pattern that
// resolves to the card as a devlink.
func createDRM(u *Udev, sc *subsystemConfig, d *Device) {
	d.tags.Insert(tagSeat, nil)
	d.tags.Insert(tagUaccess, nil)

	if sc.symlink == "" {
		return
	}
	target, err := filepath.EvalSymlinks(d.syspath)
	if err != nil {
		return
	}
	links, err := filepath.Glob(sc.symlink)
	if err != nil {
		u.log.Debug("bad symlink pattern", slog.String("pattern", sc.symlink), slog.String("error", err.Error()))
		return
	}
	for _, link := range links {
		resolved, err := filepath.EvalSymlinks(link)
		if err == nil && resolved == target && link != d.syspath {
			d.devlinks.Insert(link, nil)
		}
	}
}

func createNet(u *Udev, _ *subsystemConfig, d *Device) {
	ifname := d.Sysname()
	if ifname == "" {
		return
	}
	d.properties.InsertValue("INTERFACE", ifname)

	link, err := u.links.LinkByName(ifname)
	if err != nil {
		u.log.Debug("failed to get link", slog.String("interface", ifname), slog.String("error", err.Error()))
		return
	}

	attrs := link.Attrs()
	if attrs.Index != 0 {
		_ = d.properties.Insertf("IFINDEX", "%d", attrs.Index)
		_ = d.sysattrs.Insertf("ifindex", "%d", attrs.Index)
	}
	_ = d.sysattrs.Insertf("addr_len", "%d", len(attrs.HardwareAddr))
	if len(attrs.HardwareAddr) > 0 {
		d.sysattrs.InsertValue("address", attrs.HardwareAddr.String())
	}
	_ = d.sysattrs.Insertf("mtu", "%d", attrs.MTU)
	d.sysattrs.InsertValue("operstate", attrs.OperState.String())
	d.sysattrs.InsertValue("type", link.Type())
}
