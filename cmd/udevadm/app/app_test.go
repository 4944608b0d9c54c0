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

package app

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"sigs.k8s.io/yaml"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

const usbSource = `# USB vendors
usb:v1D6B*
 ID_VENDOR_FROM_DATABASE=Linux Foundation

usb:v1D6Bp0002*
 ID_MODEL_FROM_DATABASE=2.0 root hub
`

var _ = Describe("udevadm", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	Describe("hwdb", func() {
		var dbPath string

		BeforeEach(func() {
			dbPath = filepath.Join(dir, "hwdb.bin")
		})

		It("should build a database from files and query it", func() {
			source := filepath.Join(dir, "20-usb.hwdb")
			Expect(os.WriteFile(source, []byte(usbSource), 0o644)).To(Succeed())

			_, err := run("--hwdb", dbPath, "hwdb", "build", source)
			Expect(err).NotTo(HaveOccurred())
			Expect(dbPath).To(BeARegularFile())

			out, err := run("--hwdb", dbPath, "hwdb", "query", "usb:v1D6Bp0002d0515")
			Expect(err).NotTo(HaveOccurred())

			var props map[string]string
			Expect(json.Unmarshal([]byte(out), &props)).To(Succeed())
			Expect(props).To(Equal(map[string]string{
				"ID_VENDOR_FROM_DATABASE": "Linux Foundation",
				"ID_MODEL_FROM_DATABASE":  "2.0 root hub",
			}))
		})

		It("should build a database from a directory into --out", func() {
			sources := filepath.Join(dir, "hwdb.d")
			Expect(os.MkdirAll(sources, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(sources, "20-usb.hwdb"), []byte(usbSource), 0o644)).To(Succeed())

			out := filepath.Join(dir, "custom.bin")
			_, err := run("hwdb", "build", "--dir", sources, "--out", out)
			Expect(err).NotTo(HaveOccurred())

			printed, err := run("--hwdb", out, "-o", "yaml", "hwdb", "query", "usb:v1D6Bp0001")
			Expect(err).NotTo(HaveOccurred())

			var props map[string]string
			Expect(yaml.Unmarshal([]byte(printed), &props)).To(Succeed())
			Expect(props).To(Equal(map[string]string{"ID_VENDOR_FROM_DATABASE": "Linux Foundation"}))
		})

		It("should require sources", func() {
			_, err := run("--hwdb", dbPath, "hwdb", "build")
			Expect(err).To(MatchError(ContainSubstring("no sources")))
		})

		It("should report syntax errors", func() {
			source := filepath.Join(dir, "broken.hwdb")
			Expect(os.WriteFile(source, []byte(" KEY=VALUE\n"), 0o644)).To(Succeed())

			_, err := run("--hwdb", dbPath, "hwdb", "build", source)
			Expect(err).To(HaveOccurred())
			Expect(dbPath).NotTo(BeAnExistingFile())
		})

		It("should fail to query a missing database", func() {
			_, err := run("--hwdb", dbPath, "hwdb", "query", "usb:v1D6B")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("info", func() {
		var devRoot string

		BeforeEach(func() {
			devRoot = filepath.Join(dir, "dev")
			Expect(os.MkdirAll(filepath.Join(devRoot, "input"), 0o755)).To(Succeed())
			Expect(os.Symlink("/dev/null", filepath.Join(devRoot, "input/event3"))).To(Succeed())
		})

		It("should print a device", func() {
			out, err := run("--dev-root", devRoot, "--hwdb", "", "info", "input/event3")
			Expect(err).NotTo(HaveOccurred())

			var info udev.DeviceInfo
			Expect(json.Unmarshal([]byte(out), &info)).To(Succeed())
			Expect(info.Syspath).To(Equal(filepath.Join(devRoot, "input/event3")))
			Expect(info.Subsystem).To(Equal("input"))
			Expect(info.Properties).To(HaveKeyWithValue("ID_INPUT", "1"))
			Expect(info.Parent).NotTo(BeNil())
		})

		It("should print only properties", func() {
			out, err := run("--dev-root", devRoot, "--hwdb", "", "info", "--query", "property", filepath.Join(devRoot, "input/event3"))
			Expect(err).NotTo(HaveOccurred())

			var props map[string]string
			Expect(json.Unmarshal([]byte(out), &props)).To(Succeed())
			Expect(props).To(HaveKeyWithValue("SUBSYSTEM", "input"))
		})

		It("should fail for unknown devices and queries", func() {
			_, err := run("--dev-root", devRoot, "--hwdb", "", "info", "null")
			Expect(err).To(MatchError(ContainSubstring("no subsystem handles")))

			_, err = run("--dev-root", devRoot, "info", "--query", "path", "input/event3")
			Expect(err).To(MatchError(ContainSubstring("unsupported query")))
		})

		It("should reject unknown output formats", func() {
			_, err := run("--dev-root", devRoot, "--hwdb", "", "-o", "xml", "info", "input/event3")
			Expect(err).To(MatchError(ContainSubstring("unsupported format")))
		})
	})

	It("should parse filter flags", func() {
		o := &filterOptions{
			properties:      []string{"ID_INPUT=1"},
			sysattrs:        []string{"type=loopback", "ifindex"},
			nomatchSysattrs: []string{"mtu=1500"},
		}
		e := udev.NewEnumerator(udev.New(udev.WithHwdbPath("")))
		Expect(o.Apply(e)).To(Succeed())
		Expect(e.Filter().Len()).To(Equal(4))

		o = &filterOptions{properties: []string{"ID_INPUT"}}
		Expect(o.Apply(udev.NewEnumerator(udev.New(udev.WithHwdbPath(""))))).To(MatchError(ContainSubstring("NAME=VALUE")))
	})
})
