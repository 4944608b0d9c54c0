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

package hwdb

// lineMax bounds the pattern text collected during a wildcard search.
const lineMax = 2048

// lineBuf accumulates pattern text. Every add must be undone with rem
// before the caller returns.
type lineBuf struct {
	bytes []byte
}

func newLineBuf() *lineBuf {
	return &lineBuf{bytes: make([]byte, 0, lineMax)}
}

func (b *lineBuf) add(s string) bool {
	if len(b.bytes)+len(s) >= lineMax {
		return false
	}
	b.bytes = append(b.bytes, s...)
	return true
}

func (b *lineBuf) addChar(c byte) bool {
	if len(b.bytes)+1 >= lineMax {
		return false
	}
	b.bytes = append(b.bytes, c)
	return true
}

func (b *lineBuf) rem(n int) {
	if n > len(b.bytes) {
		panic("hwdb: line buffer underflow")
	}
	b.bytes = b.bytes[:len(b.bytes)-n]
}

func (b *lineBuf) String() string {
	return string(b.bytes)
}
