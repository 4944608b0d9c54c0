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

import (
	"strings"

	"github.com/deckhouse/udev-devd/internal/glob"
)

// propertyMarker prefixes the keys of values that are device properties.
// Keys with any other prefix are reserved and skipped.
const propertyMarker = ' '

var wildcards = [...]byte{'*', '?', '['}

func isWildcard(c byte) bool {
	return c == '*' || c == '?' || c == '['
}

type searcher struct {
	db   *Database
	emit EmitFunc
	buf  *lineBuf
}

// search walks literal prefixes along modalias and forks into every
// wildcard child it passes on the way.
func (s *searcher) search(modalias string) error {
	s.buf = newLineBuf()

	n, err := s.db.node(s.db.hdr.NodesRootOff)
	if err != nil {
		return err
	}

	i := 0
	for {
		prefix, err := s.db.prefix(n)
		if err != nil {
			return err
		}

		p := 0
		for ; p < len(prefix); p++ {
			c := prefix[p]
			if isWildcard(c) {
				return s.fnmatch(n, p, modalias[i+p:])
			}
			if i+p >= len(modalias) || c != modalias[i+p] {
				return nil
			}
		}
		i += p

		for _, c := range wildcards {
			child, ok, err := s.db.lookupChild(n, c)
			if err != nil {
				return err
			}
			if !ok || !s.buf.addChar(c) {
				continue
			}
			if err := s.fnmatch(child, 0, modalias[i:]); err != nil {
				return err
			}
			s.buf.rem(1)
		}

		if i == len(modalias) {
			return s.emitValues(n)
		}

		child, ok, err := s.db.lookupChild(n, modalias[i])
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		n = child
		i++
	}
}

// fnmatch visits the whole subtree below n, collecting the pattern text in
// the line buffer, and emits the values of every node whose pattern matches
// search. The walk is exhaustive, so its cost grows with the subtree size.
func (s *searcher) fnmatch(n trieNode, p int, search string) error {
	prefix, err := s.db.prefix(n)
	if err != nil {
		return err
	}
	if p > len(prefix) {
		p = len(prefix)
	}
	prefix = prefix[p:]

	if !s.buf.add(prefix) {
		return nil
	}

	for i := 0; i < n.childrenCount; i++ {
		c, off := s.db.childAt(n, i)
		if !s.buf.addChar(c) {
			continue
		}
		child, err := s.db.node(off)
		if err != nil {
			return err
		}
		if err := s.fnmatch(child, 0, search); err != nil {
			return err
		}
		s.buf.rem(1)
	}

	if n.valuesCount > 0 && glob.Match(s.buf.String(), search) {
		if err := s.emitValues(n); err != nil {
			return err
		}
	}

	s.buf.rem(len(prefix))
	return nil
}

func (s *searcher) emitValues(n trieNode) error {
	for i := uint64(0); i < n.valuesCount; i++ {
		key, value, err := s.db.valueAt(n, i)
		if err != nil {
			return err
		}
		name, ok := strings.CutPrefix(key, string(propertyMarker))
		if !ok {
			continue
		}
		if err := s.emit(name, value); err != nil {
			return err
		}
	}
	return nil
}
