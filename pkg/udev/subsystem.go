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
	"strings"

	"github.com/deckhouse/udev-devd/internal/glob"
)

// UnknownSubsystem is reported for syspaths no subsystem claims.
const UnknownSubsystem = "unknown"

// DefaultDevRoot is the directory device nodes live in.
const DefaultDevRoot = "/dev"

// NetRoot prefixes the syspaths of network interfaces.
const NetRoot = "/net"

type subsystemFlags uint8

const (
	// skipIfEvdev marks legacy input devices that are also exposed through evdev.
	skipIfEvdev subsystemFlags = 1 << iota
)

// createHandler fills the lists of a freshly created device.
type createHandler func(u *Udev, sc *subsystemConfig, d *Device)

type subsystemConfig struct {
	subsystem string
	devtype   string
	// syspath and symlink are glob patterns. Relative ones are resolved
	// against the device root.
	syspath string
	symlink string
	flags   subsystemFlags
	create  createHandler
}

// The first matching entry wins.
var subsystemTable = []subsystemConfig{
	{subsystem: "input", syspath: "input/event[0-9]*", create: createEvdev},
	{subsystem: "input", syspath: "ukbd[0-9]*", flags: skipIfEvdev, create: createKeyboard},
	{subsystem: "input", syspath: "atkbd[0-9]*", flags: skipIfEvdev, create: createKeyboard},
	{subsystem: "input", syspath: "kbdmux[0-9]*", flags: skipIfEvdev, create: createKeyboard},
	{subsystem: "input", syspath: "ums[0-9]*", flags: skipIfEvdev, create: createMouse},
	{subsystem: "input", syspath: "psm[0-9]*", flags: skipIfEvdev, create: createMouse},
	{subsystem: "input", syspath: "joy[0-9]*", create: createJoystick},
	{subsystem: "input", syspath: "atp[0-9]*", create: createTouchpad},
	{subsystem: "input", syspath: "wsp[0-9]*", create: createTouchpad},
	{subsystem: "input", syspath: "uep[0-9]*", create: createTouchscreen},
	{subsystem: "input", syspath: "sysmouse", flags: skipIfEvdev, create: createMouse},
	{subsystem: "input", syspath: "vboxguest", create: createMouse},
	{subsystem: "drm", devtype: "drm_minor", syspath: "dri/card[0-9]*", symlink: "drm/[0-9]*", create: createDRM},
	{subsystem: "net", syspath: NetRoot + "/*", create: createNet},
	{subsystem: "hidraw", syspath: "hidraw[0-9]*"},
}

// subsystemTableFor resolves the relative patterns of the table against devRoot.
func subsystemTableFor(devRoot string) []subsystemConfig {
	table := make([]subsystemConfig, len(subsystemTable))
	for i, sc := range subsystemTable {
		sc.syspath = resolvePattern(devRoot, sc.syspath)
		if sc.symlink != "" {
			sc.symlink = resolvePattern(devRoot, sc.symlink)
		}
		table[i] = sc
	}
	return table
}

func resolvePattern(devRoot, pattern string) string {
	if strings.HasPrefix(pattern, "/") {
		return pattern
	}
	return strings.TrimSuffix(devRoot, "/") + "/" + pattern
}

func (u *Udev) subsystemConfig(syspath string) *subsystemConfig {
	for i := range u.subsystems {
		if glob.Match(u.subsystems[i].syspath, syspath) {
			return &u.subsystems[i]
		}
	}
	return nil
}

// lookupSubsystem returns the table entry for syspath, or nil when no
// entry matches or the entry is hidden by evdev.
func (u *Udev) lookupSubsystem(syspath string) *subsystemConfig {
	sc := u.subsystemConfig(syspath)
	if sc == nil {
		return nil
	}
	if sc.flags&skipIfEvdev != 0 && u.evdevEnabled() {
		return nil
	}
	return sc
}

// devnodeOf returns syspath for paths under the device root and the last
// path component otherwise.
func (u *Udev) devnodeOf(syspath string) string {
	if strings.HasPrefix(syspath, strings.TrimSuffix(u.devRoot, "/")+"/") {
		return syspath
	}
	return sysnameOf(syspath)
}
