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

import "fmt"

// Mode selects the multicast group of the uevent socket.
type Mode int

const (
	// KernelEvent receives raw kernel events.
	KernelEvent Mode = 1
	// UdevEvent receives events after udevd processed them, with hwdb and
	// rule properties attached.
	UdevEvent Mode = 2
)

func (m Mode) String() string {
	switch m {
	case KernelEvent:
		return "kernel"
	case UdevEvent:
		return "udev"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// HostNetNS is the network namespace of the host. Uevents are only
// delivered to sockets in it.
const HostNetNS = "/proc/1/ns/net"
