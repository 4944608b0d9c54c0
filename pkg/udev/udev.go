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
	"log/slog"
	"path"
	"strings"
	"sync"

	"k8s.io/utils/ptr"

	"github.com/deckhouse/udev-devd/pkg/hwdb"
)

// SysRoot prefixes the syspaths of devices only known from uevents.
const SysRoot = "/sys"

var ErrInvalidSyspath = errors.New("invalid syspath")

// Udev resolves syspaths to devices. It is safe for concurrent use, the
// devices it returns are not.
type Udev struct {
	devRoot    string
	subsystems []subsystemConfig
	links      LinkSource
	log        *slog.Logger

	evdev     *bool
	evdevOnce sync.Once

	hwdbPath string
	hwdbOnce sync.Once
	hwdb     *Hwdb
	ownsHwdb bool
}

type Option func(*Udev)

// WithDevRoot sets the directory device nodes are looked up in.
func WithDevRoot(root string) Option {
	return func(u *Udev) {
		u.devRoot = root
	}
}

// WithHwdbPath sets the compiled database used to enrich devices with a
// MODALIAS property. An empty path disables the lookup.
func WithHwdbPath(path string) Option {
	return func(u *Udev) {
		u.hwdbPath = path
	}
}

// WithHwdb uses an already opened database. The caller keeps ownership.
func WithHwdb(h *Hwdb) Option {
	return func(u *Udev) {
		u.hwdb = h
	}
}

func WithLinkSource(src LinkSource) Option {
	return func(u *Udev) {
		u.links = src
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(u *Udev) {
		u.log = log
	}
}

// WithEvdev overrides the kernel probe for evdev support.
func WithEvdev(enabled bool) Option {
	return func(u *Udev) {
		u.evdev = ptr.To(enabled)
	}
}

func New(opts ...Option) *Udev {
	u := &Udev{
		devRoot:  DefaultDevRoot,
		hwdbPath: hwdb.DefaultPath,
		links:    netlinkSource{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	u.subsystems = subsystemTableFor(u.devRoot)
	return u
}

func (u *Udev) DevRoot() string {
	return u.devRoot
}

func (u *Udev) Links() LinkSource {
	return u.links
}

func (u *Udev) evdevEnabled() bool {
	u.evdevOnce.Do(func() {
		if u.evdev == nil {
			u.evdev = ptr.To(kernelHasEvdev())
			u.log.Debug("probed evdev support", slog.Bool("enabled", *u.evdev))
		}
	})
	return *u.evdev
}

// SubsystemBySyspath implements DeviceAccessor.
func (u *Udev) SubsystemBySyspath(syspath string) string {
	sc := u.lookupSubsystem(syspath)
	if sc == nil {
		return UnknownSubsystem
	}
	return sc.subsystem
}

// SysnameBySyspath implements DeviceAccessor.
func (u *Udev) SysnameBySyspath(syspath string) string {
	return sysnameOf(syspath)
}

// NewDevice implements DeviceAccessor.
func (u *Udev) NewDevice(syspath string) (*Device, error) {
	return u.NewDeviceWithAction(syspath, ActionNone)
}

// NewDeviceWithAction creates the device at syspath. Unless action is
// remove, its subsystem fills in the properties, sysattrs, tags and
// devlinks.
func (u *Udev) NewDeviceWithAction(syspath string, action Action) (*Device, error) {
	if syspath == "" || !strings.HasPrefix(syspath, "/") {
		return nil, ErrInvalidSyspath
	}

	sc := u.lookupSubsystem(syspath)
	d := NewDevice(syspath, UnknownSubsystem, "", action)
	d.devnode = u.devnodeOf(syspath)
	if sc == nil {
		return d, nil
	}
	d.subsystem = sc.subsystem
	d.devtype = sc.devtype

	if action == ActionRemove {
		return d, nil
	}

	d.properties.InsertValue("SUBSYSTEM", d.subsystem)
	if d.devtype != "" {
		d.properties.InsertValue("DEVTYPE", d.devtype)
	}
	if d.devnode == syspath {
		d.properties.InsertValue("DEVNAME", d.devnode)
	}
	if sc.create != nil {
		sc.create(u, sc, d)
	}
	return d, nil
}

// SyspathFromUEvent maps an event to the syspath Udev knows the device
// by: its node under the device root, its interface for network devices,
// the kernel object under SysRoot otherwise.
func (u *Udev) SyspathFromUEvent(event *UEvent) string {
	if name := event.DevName(); name != "" {
		if strings.HasPrefix(name, "/") {
			return name
		}
		return path.Join(u.devRoot, name)
	}
	if event.Subsystem() == "net" && event.Interface() != "" {
		return NetRoot + "/" + event.Interface()
	}

	devpath := event.DevPath()
	if devpath == "" {
		devpath = event.KObj
	}
	return SysRoot + devpath
}

// DeviceFromUEvent creates the device an event describes. The event
// environment is merged into the properties, TAGS and DEVLINKS of events
// rebroadcast by udevd are split into their lists.
func (u *Udev) DeviceFromUEvent(event *UEvent) (*Device, error) {
	if event == nil {
		return nil, ErrInvalidUEvent
	}

	syspath := u.SyspathFromUEvent(event)
	d, err := u.NewDeviceWithAction(syspath, event.Action)
	if err != nil {
		return nil, err
	}
	if u.subsystemConfig(syspath) == nil && event.Subsystem() != "" {
		d.subsystem = event.Subsystem()
		d.devtype = event.DevType()
	}
	if strings.HasPrefix(syspath, SysRoot+"/") {
		d.devnode = ""
	}

	for key, value := range event.Env {
		d.properties.InsertValue(key, value)
	}
	for _, tag := range strings.Split(event.Env["TAGS"], ":") {
		if tag != "" {
			d.tags.Insert(tag, nil)
		}
	}
	for _, link := range strings.Fields(event.Env["DEVLINKS"]) {
		d.devlinks.Insert(link, nil)
	}

	if event.Action != ActionRemove {
		u.importHwdb(d)
	}
	return d, nil
}

// importHwdb adds the hardware database properties for the MODALIAS of d.
// Properties d already has are kept.
func (u *Udev) importHwdb(d *Device) {
	modalias, ok := d.PropertyValue("MODALIAS")
	if !ok || modalias == "" {
		return
	}
	h := u.Hwdb()
	if h == nil {
		return
	}

	props, err := h.Properties(modalias)
	if err != nil {
		u.log.Debug("hwdb lookup failed", slog.String("modalias", modalias), slog.String("error", err.Error()))
		return
	}
	for e := range props.All() {
		if d.properties.Get(e.Name()) != nil {
			continue
		}
		value, _ := e.Value()
		d.properties.InsertValue(e.Name(), value)
	}
}

// Hwdb returns the hardware database, opening it on first use. It returns
// nil when no database is available.
func (u *Udev) Hwdb() *Hwdb {
	u.hwdbOnce.Do(func() {
		if u.hwdb != nil || u.hwdbPath == "" {
			return
		}
		h, err := NewHwdb(u.hwdbPath, HwdbWithLogger(u.log))
		if err != nil {
			u.log.Debug("hwdb is not available", slog.String("path", u.hwdbPath), slog.String("error", err.Error()))
			return
		}
		u.hwdb = h
		u.ownsHwdb = true
	})
	return u.hwdb
}

// Close releases the database Udev opened itself.
func (u *Udev) Close() error {
	if u.ownsHwdb && u.hwdb != nil {
		return u.hwdb.Close()
	}
	return nil
}
