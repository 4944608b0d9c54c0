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
	"strings"

	"github.com/danwakefield/fnmatch"
)

// Match reports whether s matches the shell pattern with fnmatch(3)
// semantics and no flags.
func Match(pattern, s string) bool {
	return fnmatch.Match(Normalize(pattern), s, 0)
}

// Normalize rewrites the bracket forms fnmatch.Match reads differently
// from POSIX. A ']' leading a class is escaped so it stays a member, and
// a '[' without a closing ']' is escaped so it matches itself.
func Normalize(pattern string) string {
	if !strings.Contains(pattern, "[") {
		return pattern
	}

	var b strings.Builder
	b.Grow(len(pattern) + 2)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '\\':
			b.WriteByte(c)
			if i+1 < len(pattern) {
				i++
				b.WriteByte(pattern[i])
			}
		case '[':
			end := classEnd(pattern, i+1)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteByte('[')
			j := i + 1
			if pattern[j] == '!' || pattern[j] == '^' {
				b.WriteByte(pattern[j])
				j++
			}
			if pattern[j] == ']' {
				b.WriteString(`\]`)
				j++
			}
			b.WriteString(pattern[j : end+1])
			i = end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// classEnd returns the index of the ']' closing the class whose body
// starts at i, or -1.
func classEnd(pattern string, i int) int {
	if i < len(pattern) && (pattern[i] == '!' || pattern[i] == '^') {
		i++
	}
	if i < len(pattern) && pattern[i] == ']' {
		i++
	}
	for ; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}
