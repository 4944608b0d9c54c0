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
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/deckhouse/udev-devd/pkg/logger"
	"github.com/deckhouse/udev-devd/pkg/udev"
)

var _ = Describe("Device monitor", func() {
	var (
		devRoot       string
		u             *udev.Udev
		source        *fakeEventSource
		deviceMonitor *DeviceMonitor
		cfg           *MonitorConfig
	)

	inputEvent := func(action udev.Action, name string) *udev.UEvent {
		return &udev.UEvent{
			Action: action,
			KObj:   "/devices/virtual/input/input3/" + name,
			Env: map[string]string{
				"ACTION":    action.String(),
				"SUBSYSTEM": "input",
				"DEVNAME":   "input/" + name,
				"ID_BUS":    "usb",
			},
		}
	}

	newMonitor := func(e *udev.Enumerator) *DeviceMonitor {
		return newDeviceMonitor(u, e, source, cfg, logger.NewDiscardLogger())
	}

	start := func(m *DeviceMonitor) {
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)
		go m.run(ctx)
	}

	syspathsOf := func(devices []*udev.DeviceInfo) []string {
		var out []string
		for _, device := range devices {
			out = append(out, device.Syspath)
		}
		return out
	}

	BeforeEach(func() {
		devRoot = GinkgoT().TempDir()
		u = udev.New(
			udev.WithDevRoot(devRoot),
			udev.WithHwdbPath(""),
			udev.WithEvdev(true),
			udev.WithLinkSource(noLinks{}),
			udev.WithLogger(logger.NewDiscardLogger()),
		)
		source = newFakeEventSource()
		cfg = NewDefaultMonitorConfig()
		cfg.DebounceDuration = 50 * time.Millisecond
		deviceMonitor = newMonitor(udev.NewEnumerator(u))
	})

	It("should follow add and remove events", func() {
		start(deviceMonitor)
		Expect(deviceMonitor.GetDevices()).To(BeEmpty())

		source.pushEvent(inputEvent(udev.ActionAdd, "event3"))

		syspath := filepath.Join(devRoot, "input/event3")
		Eventually(func(g Gomega) {
			device, ok := deviceMonitor.GetDevice(syspath)
			g.Expect(ok).To(BeTrue())
			g.Expect(device.Subsystem).To(Equal("input"))
			g.Expect(device.Properties).To(HaveKeyWithValue("ID_BUS", "usb"))
			g.Expect(device.Properties).To(HaveKeyWithValue("ID_INPUT", "1"))
		}).WithPolling(50 * time.Millisecond).WithTimeout(5 * time.Second).Should(Succeed())
		Eventually(deviceMonitor.DeviceChanges()).Should(Receive())

		source.pushEvent(inputEvent(udev.ActionRemove, "event3"))

		Eventually(func(g Gomega) {
			_, ok := deviceMonitor.GetDevice(syspath)
			g.Expect(ok).To(BeFalse())
		}).WithPolling(50 * time.Millisecond).WithTimeout(5 * time.Second).Should(Succeed())
	})

	It("should ignore devices no subsystem handles", func() {
		start(deviceMonitor)

		source.pushEvent(&udev.UEvent{
			Action: udev.ActionAdd,
			KObj:   "/devices/pci0000:00/usb1",
			Env: map[string]string{
				"SUBSYSTEM": "usb",
				"DEVPATH":   "/devices/pci0000:00/usb1",
			},
		})
		source.pushEvent(inputEvent(udev.ActionAdd, "event4"))

		Eventually(func() []string {
			return syspathsOf(deviceMonitor.GetDevices())
		}).WithTimeout(5 * time.Second).Should(Equal([]string{filepath.Join(devRoot, "input/event4")}))
	})

	It("should debounce events of one device", func() {
		start(deviceMonitor)

		source.pushEvent(inputEvent(udev.ActionAdd, "event3"))
		source.pushEvent(inputEvent(udev.ActionRemove, "event3"))

		Consistently(deviceMonitor.GetDevices).WithTimeout(300 * time.Millisecond).Should(BeEmpty())
	})

	It("should not let a change supersede a pending remove", func() {
		start(deviceMonitor)
		syspath := filepath.Join(devRoot, "input/event3")

		source.pushEvent(inputEvent(udev.ActionAdd, "event3"))
		Eventually(func() bool {
			_, ok := deviceMonitor.GetDevice(syspath)
			return ok
		}).WithTimeout(5 * time.Second).Should(BeTrue())

		source.pushEvent(inputEvent(udev.ActionRemove, "event3"))
		source.pushEvent(inputEvent(udev.ActionChange, "event3"))

		Eventually(deviceMonitor.GetDevices).WithTimeout(5 * time.Second).Should(BeEmpty())
		Consistently(deviceMonitor.GetDevices).WithTimeout(300 * time.Millisecond).Should(BeEmpty())
	})

	It("should let an add supersede a pending remove", func() {
		start(deviceMonitor)
		syspath := filepath.Join(devRoot, "input/event3")

		source.pushEvent(inputEvent(udev.ActionAdd, "event3"))
		Eventually(func() bool {
			_, ok := deviceMonitor.GetDevice(syspath)
			return ok
		}).WithTimeout(5 * time.Second).Should(BeTrue())

		source.pushEvent(inputEvent(udev.ActionRemove, "event3"))
		source.pushEvent(inputEvent(udev.ActionAdd, "event3"))

		Consistently(func() bool {
			_, ok := deviceMonitor.GetDevice(syspath)
			return ok
		}).WithTimeout(300 * time.Millisecond).Should(BeTrue())
	})

	It("should only track devices matching the enumerator", func() {
		makeNode(devRoot, "input/event0")
		makeNode(devRoot, "hidraw0")

		e := udev.NewEnumerator(u)
		Expect(e.AddMatchSubsystem("input")).To(Succeed())
		deviceMonitor = newMonitor(e)

		devices, err := deviceMonitor.scan(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(devices).To(HaveLen(1))
		Expect(devices).To(HaveKey(filepath.Join(devRoot, "input/event0")))
	})

	It("should pick up device nodes on resync", func() {
		cfg.ResyncPeriod = 100 * time.Millisecond
		deviceMonitor = newMonitor(udev.NewEnumerator(u))
		start(deviceMonitor)

		node := makeNode(devRoot, "input/event7")
		Eventually(func() []string {
			return syspathsOf(deviceMonitor.GetDevices())
		}).WithTimeout(5 * time.Second).Should(Equal([]string{node}))

		Expect(os.Remove(node)).To(Succeed())
		Eventually(deviceMonitor.GetDevices).WithTimeout(5 * time.Second).Should(BeEmpty())
	})

	It("should keep event snapshots on resync", func() {
		node := makeNode(devRoot, "input/event3")
		cfg.ResyncPeriod = 100 * time.Millisecond
		deviceMonitor = newMonitor(udev.NewEnumerator(u))
		start(deviceMonitor)

		source.pushEvent(inputEvent(udev.ActionAdd, "event3"))
		Eventually(func(g Gomega) {
			device, ok := deviceMonitor.GetDevice(node)
			g.Expect(ok).To(BeTrue())
			g.Expect(device.Properties).To(HaveKey("ID_BUS"))
		}).WithTimeout(5 * time.Second).Should(Succeed())

		Consistently(func(g Gomega) {
			device, ok := deviceMonitor.GetDevice(node)
			g.Expect(ok).To(BeTrue())
			g.Expect(device.Properties).To(HaveKey("ID_BUS"))
		}).WithTimeout(500 * time.Millisecond).Should(Succeed())
	})

	It("should stop and close the changes channel on source errors", func() {
		changes := deviceMonitor.DeviceChanges()
		start(deviceMonitor)

		source.errorCh <- errors.New("socket closed")
		Eventually(changes).WithTimeout(5 * time.Second).Should(BeClosed())
	})

	It("should reject invalid configurations", func() {
		cfg.ResyncPeriod = 0
		_, err := NewDeviceMonitor(context.Background(), u, udev.NewEnumerator(u), cfg)
		Expect(err).To(HaveOccurred())

		cfg.ResyncPeriod = time.Minute
		cfg.DebounceDuration = -time.Second
		Expect(cfg.Validate()).NotTo(Succeed())
	})
})
