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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Action is the reason a device was reported.
type Action string

const (
	// ActionNone is the action of devices created by lookup or enumeration.
	ActionNone    Action = "none"
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionChange  Action = "change"
	ActionMove    Action = "move"
	ActionOnline  Action = "online"
	ActionOffline Action = "offline"
	ActionBind    Action = "bind"
	ActionUnbind  Action = "unbind"
)

func (a Action) String() string {
	return string(a)
}

// ParseAction parses a kernel action name. "none" is not a kernel action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	switch a {
	case ActionAdd, ActionRemove, ActionChange, ActionMove, ActionOnline, ActionOffline, ActionBind, ActionUnbind:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidUEvent, s)
	}
}

// UEvent is a parsed netlink uevent.
type UEvent struct {
	Action Action
	// KObj is the kernel object path, e.g. /devices/pci0000:00/.../3-2.
	KObj string
	Env  map[string]string
}

func (e *UEvent) Subsystem() string {
	return e.Env["SUBSYSTEM"]
}

func (e *UEvent) DevType() string {
	return e.Env["DEVTYPE"]
}

func (e *UEvent) DevPath() string {
	return e.Env["DEVPATH"]
}

// DevName is the node name relative to the device root, e.g. input/event3.
func (e *UEvent) DevName() string {
	return e.Env["DEVNAME"]
}

func (e *UEvent) Modalias() string {
	return e.Env["MODALIAS"]
}

// Interface is the network interface name of net events.
func (e *UEvent) Interface() string {
	return e.Env["INTERFACE"]
}

var ErrInvalidUEvent = errors.New("invalid uevent format")

// udevd prefixes the messages it rebroadcasts with this header.
var udevMessagePrefix = []byte("libudev\x00")

const (
	udevMessageMagic      = 0xfeedcafe
	udevHeaderMagicOff    = 8
	udevHeaderSizeOff     = 12
	udevHeaderPropsOff    = 16
	udevHeaderPropsLenOff = 20
	udevHeaderMinSize     = 24
)

// ParseUEvent parses a raw message received from the uevent socket.
// Both kernel messages and messages rebroadcast by udevd are accepted.
func ParseUEvent(raw []byte) (*UEvent, error) {
	if bytes.HasPrefix(raw, udevMessagePrefix) {
		return parseUdevMessage(raw)
	}

	fields := bytes.Split(raw, []byte{0x00})
	if len(fields) < 2 {
		return nil, ErrInvalidUEvent
	}

	// "add@/devices/pci0000:00/..."
	headers := bytes.Split(fields[0], []byte("@"))
	if len(headers) != 2 {
		return nil, ErrInvalidUEvent
	}

	action, err := ParseAction(string(headers[0]))
	if err != nil {
		return nil, err
	}

	e := &UEvent{
		Action: action,
		KObj:   string(headers[1]),
		Env:    make(map[string]string),
	}
	parseEnv(e.Env, fields[1:len(fields)-1])

	return e, nil
}

func parseUdevMessage(raw []byte) (*UEvent, error) {
	if len(raw) < udevHeaderMinSize {
		return nil, ErrInvalidUEvent
	}
	if binary.BigEndian.Uint32(raw[udevHeaderMagicOff:]) != udevMessageMagic {
		return nil, fmt.Errorf("%w: bad udev message magic", ErrInvalidUEvent)
	}

	headerSize := binary.NativeEndian.Uint32(raw[udevHeaderSizeOff:])
	propsOff := binary.NativeEndian.Uint32(raw[udevHeaderPropsOff:])
	propsLen := binary.NativeEndian.Uint32(raw[udevHeaderPropsLenOff:])
	if headerSize < udevHeaderMinSize || uint64(propsOff) < uint64(headerSize) ||
		uint64(propsOff)+uint64(propsLen) > uint64(len(raw)) {
		return nil, fmt.Errorf("%w: udev message properties out of range", ErrInvalidUEvent)
	}

	env := make(map[string]string)
	parseEnv(env, bytes.Split(raw[propsOff:propsOff+propsLen], []byte{0x00}))

	action, err := ParseAction(env["ACTION"])
	if err != nil {
		return nil, err
	}
	if env["DEVPATH"] == "" {
		return nil, fmt.Errorf("%w: udev message without DEVPATH", ErrInvalidUEvent)
	}

	return &UEvent{
		Action: action,
		KObj:   env["DEVPATH"],
		Env:    env,
	}, nil
}

func parseEnv(env map[string]string, fields [][]byte) {
	for _, field := range fields {
		if len(field) == 0 {
			continue
		}
		key, value, found := strings.Cut(string(field), "=")
		if found {
			env[key] = value
		}
	}
}
