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
	"os"
	"path/filepath"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/vishvananda/netlink"
	"k8s.io/utils/ptr"
)

var _ = Describe("Enumerator", func() {
	var (
		devRoot string
		links   *fakeLinks
		u       *Udev
		e       *Enumerator
	)

	syspaths := func() []string {
		var out []string
		for entry := range e.Devices().All() {
			out = append(out, entry.Name())
		}
		return out
	}

	BeforeEach(func() {
		devRoot = GinkgoT().TempDir()
		makeNode(devRoot, "input/event1")
		makeNode(devRoot, "input/event0")
		makeNode(devRoot, "ukbd0")
		makeNode(devRoot, "dri/card0")
		makeNode(devRoot, "null")
		Expect(os.WriteFile(filepath.Join(devRoot, "hidraw0"), nil, 0o644)).To(Succeed())

		links = &fakeLinks{
			links: []netlink.Link{
				&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "eth0", Index: 2}},
				&netlink.GenericLink{LinkAttrs: netlink.LinkAttrs{Name: "lo", Index: 1}, LinkType: "loopback"},
			},
		}
		u = newTestUdev(devRoot, WithEvdev(false), WithLinkSource(links))
		e = NewEnumerator(u)
	})

	It("should find every known device without criteria", func() {
		expected := []string{
			filepath.Join(devRoot, "dri/card0"),
			filepath.Join(devRoot, "input/event0"),
			filepath.Join(devRoot, "input/event1"),
			filepath.Join(devRoot, "ukbd0"),
			"/net/eth0",
			"/net/lo",
		}
		slices.Sort(expected)

		Expect(e.ScanDevices(context.Background())).To(Succeed())
		Expect(syspaths()).To(Equal(expected))
		Expect(e.First().Name()).To(Equal(expected[0]))
	})

	It("should filter by subsystem and sysname", func() {
		Expect(e.AddMatchSubsystem("input")).To(Succeed())
		Expect(e.AddMatchSysname("event*")).To(Succeed())
		Expect(e.ScanDevices(context.Background())).To(Succeed())
		Expect(syspaths()).To(Equal([]string{
			filepath.Join(devRoot, "input/event0"),
			filepath.Join(devRoot, "input/event1"),
		}))
	})

	It("should filter by property", func() {
		Expect(e.AddMatchProperty("ID_INPUT_KEYBOARD", "1")).To(Succeed())
		Expect(e.ScanDevices(context.Background())).To(Succeed())
		Expect(syspaths()).To(Equal([]string{filepath.Join(devRoot, "ukbd0")}))
	})

	It("should filter by tag and excluded subsystem", func() {
		Expect(e.AddMatchTag("uaccess")).To(Succeed())
		Expect(e.AddNomatchSubsystem("drm")).To(Succeed())
		Expect(e.ScanDevices(context.Background())).To(Succeed())
		Expect(syspaths()).To(HaveLen(3))
		Expect(syspaths()).NotTo(ContainElement(filepath.Join(devRoot, "dri/card0")))
	})

	It("should filter network interfaces by sysattr", func() {
		Expect(e.AddMatchSubsystem("net")).To(Succeed())
		Expect(e.AddNomatchSysattr("type", ptr.To("loopback"))).To(Succeed())
		Expect(e.ScanDevices(context.Background())).To(Succeed())
		Expect(syspaths()).To(Equal([]string{"/net/eth0"}))

		e = NewEnumerator(u)
		Expect(e.AddMatchSysattr("ifindex", nil)).To(Succeed())
		Expect(e.ScanDevices(context.Background())).To(Succeed())
		Expect(syspaths()).To(Equal([]string{"/net/eth0", "/net/lo"}))
	})

	It("should replace the previous result on rescan", func() {
		e.AddSyspath("/custom")
		Expect(e.AddMatchSubsystem("net")).To(Succeed())
		Expect(e.ScanDevices(context.Background())).To(Succeed())
		Expect(syspaths()).To(Equal([]string{"/net/eth0", "/net/lo"}))

		e.AddSyspath("/custom")
		Expect(syspaths()).To(Equal([]string{"/custom", "/net/eth0", "/net/lo"}))
	})

	It("should leave an empty result when scanning fails", func() {
		e.AddSyspath("/custom")
		links.err = errors.New("netlink is down")
		Expect(e.ScanDevices(context.Background())).To(MatchError(ContainSubstring("netlink is down")))
		Expect(e.Devices().Len()).To(Equal(0))
		Expect(e.First()).To(BeNil())
	})

	It("should fail for a missing device root", func() {
		e = NewEnumerator(newTestUdev(filepath.Join(devRoot, "missing")))
		Expect(e.ScanDevices(context.Background())).NotTo(Succeed())
		Expect(e.Devices().Len()).To(Equal(0))
	})

	It("should stop when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(e.ScanDevices(ctx)).To(MatchError(context.Canceled))
		Expect(e.Devices().Len()).To(Equal(0))
	})
})
