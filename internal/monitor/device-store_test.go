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

package monitor

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/deckhouse/udev-devd/pkg/logger"
	"github.com/deckhouse/udev-devd/pkg/udev"
)

func testDevice(syspath, subsystem string, props map[string]string) *udev.DeviceInfo {
	return &udev.DeviceInfo{
		Syspath:    syspath,
		Subsystem:  subsystem,
		Properties: props,
	}
}

var _ = Describe("Device store", func() {
	var store *DeviceStore

	drain := func() bool {
		select {
		case <-store.Changes():
			return true
		default:
			return false
		}
	}

	BeforeEach(func() {
		store = NewDeviceStore(nil, logger.NewDiscardLogger())
	})

	It("should add devices and signal changes", func() {
		Expect(store.AddDevice(testDevice("/dev/input/event0", "input", nil))).To(BeTrue())
		Expect(drain()).To(BeTrue())
		Expect(store.Exists("/dev/input/event0")).To(BeTrue())

		Expect(store.AddDevice(testDevice("/dev/input/event0", "input", nil))).To(BeFalse())
		Expect(drain()).To(BeFalse())

		Expect(store.AddDevice(testDevice("/dev/input/event0", "input", map[string]string{"ID_INPUT": "1"}))).To(BeTrue())
		device, ok := store.GetDevice("/dev/input/event0")
		Expect(ok).To(BeTrue())
		Expect(device.Properties).To(HaveKeyWithValue("ID_INPUT", "1"))
	})

	It("should coalesce change signals", func() {
		store.AddDevice(testDevice("/dev/input/event0", "input", nil))
		store.AddDevice(testDevice("/dev/input/event1", "input", nil))
		Expect(drain()).To(BeTrue())
		Expect(drain()).To(BeFalse())
	})

	It("should remove devices", func() {
		store.AddDevice(testDevice("/net/eth0", "net", nil))
		drain()

		Expect(store.RemoveDevice("/net/eth0")).To(BeTrue())
		Expect(drain()).To(BeTrue())
		Expect(store.RemoveDevice("/net/eth0")).To(BeFalse())
		Expect(drain()).To(BeFalse())

		_, ok := store.GetDevice("/net/eth0")
		Expect(ok).To(BeFalse())
	})

	It("should list devices sorted and by subsystem", func() {
		store.AddDevice(testDevice("/net/lo", "net", nil))
		store.AddDevice(testDevice("/dev/input/event1", "input", nil))
		store.AddDevice(testDevice("/net/eth0", "net", nil))

		var syspaths []string
		for _, device := range store.GetDevices() {
			syspaths = append(syspaths, device.Syspath)
		}
		Expect(syspaths).To(Equal([]string{"/dev/input/event1", "/net/eth0", "/net/lo"}))

		net := store.GetDevicesBySubsystem("net")
		Expect(net).To(HaveLen(2))
		Expect(net[0].Syspath).To(Equal("/net/eth0"))
		Expect(store.GetDevicesBySubsystem("drm")).To(BeEmpty())
	})

	It("should resync to the given devices", func() {
		store.AddDevice(testDevice("/net/lo", "net", nil))
		store.AddDevice(testDevice("/net/eth0", "net", nil))
		drain()

		changed := store.Resync(map[string]*udev.DeviceInfo{
			"/net/eth0":         testDevice("/net/eth0", "net", map[string]string{"IFINDEX": "2"}),
			"/dev/input/event0": testDevice("/dev/input/event0", "input", nil),
		})
		Expect(changed).To(BeTrue())
		Expect(drain()).To(BeTrue())
		Expect(store.Exists("/net/lo")).To(BeFalse())
		Expect(store.Exists("/dev/input/event0")).To(BeTrue())
		device, _ := store.GetDevice("/net/eth0")
		Expect(device.Properties).To(HaveKeyWithValue("IFINDEX", "2"))

		Expect(store.Resync(map[string]*udev.DeviceInfo{
			"/net/eth0":         testDevice("/net/eth0", "net", map[string]string{"IFINDEX": "2"}),
			"/dev/input/event0": testDevice("/dev/input/event0", "input", nil),
		})).To(BeFalse())
		Expect(drain()).To(BeFalse())
	})

	It("should close the change channel once", func() {
		changes := store.Changes()
		store.Close()
		store.Close()
		Expect(changes).To(BeClosed())
		Expect(store.Changes()).To(BeClosed())
		Expect(store.AddDevice(testDevice("/net/eth0", "net", nil))).To(BeTrue())
	})
})
