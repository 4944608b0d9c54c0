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
	"encoding/binary"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func kernelMessage(header string, env ...string) []byte {
	return []byte(header + "\x00" + strings.Join(env, "\x00") + "\x00")
}

func udevMessage(env ...string) []byte {
	const headerSize = 40
	props := []byte(strings.Join(env, "\x00") + "\x00")

	msg := make([]byte, headerSize, headerSize+len(props))
	copy(msg, "libudev\x00")
	binary.BigEndian.PutUint32(msg[8:], 0xfeedcafe)
	binary.NativeEndian.PutUint32(msg[12:], headerSize)
	binary.NativeEndian.PutUint32(msg[16:], headerSize)
	binary.NativeEndian.PutUint32(msg[20:], uint32(len(props)))
	return append(msg, props...)
}

var _ = Describe("UEvent", func() {
	It("should parse kernel messages", func() {
		event, err := ParseUEvent(kernelMessage(
			"add@/devices/virtual/input/input3/event3",
			"ACTION=add",
			"DEVPATH=/devices/virtual/input/input3/event3",
			"SUBSYSTEM=input",
			"MAJOR=13",
			"DEVNAME=input/event3",
			"SEQNUM=4242",
		))
		Expect(err).NotTo(HaveOccurred())

		Expect(event.Action).To(Equal(ActionAdd))
		Expect(event.KObj).To(Equal("/devices/virtual/input/input3/event3"))
		Expect(event.Subsystem()).To(Equal("input"))
		Expect(event.DevName()).To(Equal("input/event3"))
		Expect(event.DevPath()).To(Equal("/devices/virtual/input/input3/event3"))
		Expect(event.Env).To(HaveKeyWithValue("SEQNUM", "4242"))
	})

	It("should keep values containing '='", func() {
		event, err := ParseUEvent(kernelMessage(
			"change@/devices/pci0000:00/usb1",
			"MODALIAS=usb:v1D6Bp0002",
			"PRODUCT=1d6b/2/515",
			"EXTRA=a=b",
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(event.Modalias()).To(Equal("usb:v1D6Bp0002"))
		Expect(event.Env).To(HaveKeyWithValue("EXTRA", "a=b"))
	})

	DescribeTable("should reject malformed kernel messages",
		func(raw []byte) {
			_, err := ParseUEvent(raw)
			Expect(err).To(MatchError(ErrInvalidUEvent))
		},
		Entry("without separator", []byte("add@/devices/x")),
		Entry("without action", kernelMessage("/devices/x", "A=b")),
		Entry("with unknown action", kernelMessage("explode@/devices/x", "A=b")),
		Entry("with none action", kernelMessage("none@/devices/x", "A=b")),
	)

	It("should parse messages rebroadcast by udevd", func() {
		event, err := ParseUEvent(udevMessage(
			"ACTION=remove",
			"DEVPATH=/devices/virtual/net/eth0",
			"SUBSYSTEM=net",
			"INTERFACE=eth0",
			"TAGS=:systemd:",
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(event.Action).To(Equal(ActionRemove))
		Expect(event.KObj).To(Equal("/devices/virtual/net/eth0"))
		Expect(event.Interface()).To(Equal("eth0"))
		Expect(event.Env).To(HaveKeyWithValue("TAGS", ":systemd:"))
	})

	It("should reject broken udevd messages", func() {
		msg := udevMessage("ACTION=add", "DEVPATH=/devices/x")
		binary.BigEndian.PutUint32(msg[8:], 0xdeadbeef)
		_, err := ParseUEvent(msg)
		Expect(err).To(MatchError(ErrInvalidUEvent))

		msg = udevMessage("ACTION=add", "DEVPATH=/devices/x")
		binary.NativeEndian.PutUint32(msg[20:], 4096)
		_, err = ParseUEvent(msg)
		Expect(err).To(MatchError(ErrInvalidUEvent))

		_, err = ParseUEvent(udevMessage("ACTION=add"))
		Expect(err).To(MatchError(ErrInvalidUEvent))

		_, err = ParseUEvent([]byte("libudev\x00\x00"))
		Expect(err).To(MatchError(ErrInvalidUEvent))
	})

	It("should parse every kernel action", func() {
		for _, action := range []Action{ActionAdd, ActionRemove, ActionChange, ActionMove, ActionOnline, ActionOffline, ActionBind, ActionUnbind} {
			parsed, err := ParseAction(action.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(action))
		}
	})
})
