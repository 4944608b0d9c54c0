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

package glob

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Match", func() {
	DescribeTable("should follow fnmatch(3)",
		func(pattern, s string, expected bool) {
			Expect(Match(pattern, s)).To(Equal(expected))
		},
		Entry("plain text", "event0", "event0", true),
		Entry("star", "event*", "event12", true),
		Entry("question mark", "sd?", "sda", true),
		Entry("range", "sd[a-c]", "sdb", true),
		Entry("range miss", "sd[a-c]", "sdd", false),
		Entry("negated class", "sd[!a]", "sdb", true),
		Entry("leading bracket member", "[]]", "]", true),
		Entry("leading bracket member miss", "[]]", "a", false),
		Entry("leading bracket among others", "[]a]", "a", true),
		Entry("negated leading bracket", "[!]]", "]", false),
		Entry("negated leading bracket other", "[!]]", "x", true),
		Entry("leading bracket range", "[]-a]", "_", true),
		Entry("unterminated class", "a[", "a[", true),
		Entry("unterminated class miss", "a[", "a", false),
		Entry("unterminated class with text", "x[yz", "x[yz", true),
		Entry("empty brackets", "[]", "[]", true),
		Entry("escaped bracket", `\[a]`, "[a]", true),
		Entry("escaped bracket inside class", `[\]]`, "]", true),
		Entry("star before unterminated class", "*[", "ab[", true),
	)

	It("should leave patterns without classes alone", func() {
		Expect(Normalize("usb:v*p*")).To(Equal("usb:v*p*"))
		Expect(Normalize("[a-z]*")).To(Equal("[a-z]*"))
	})

	It("should escape the forms fnmatch.Match misreads", func() {
		Expect(Normalize("[]]")).To(Equal(`[\]]`))
		Expect(Normalize("[!]a]")).To(Equal(`[!\]a]`))
		Expect(Normalize("a[")).To(Equal(`a\[`))
		Expect(Normalize("[]")).To(Equal(`\[]`))
	})
})
