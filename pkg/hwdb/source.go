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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var ErrSyntax = errors.New("hwdb: syntax error")

// ParseSource reads records in the hwdb text format and adds them to b.
//
//	# comment
//	usb:v1D6Bp0001*
//	usb:v1D6Bp0002*
//	 ID_VENDOR_FROM_DATABASE=Linux Foundation
//
// A record is one or more match lines followed by indented KEY=VALUE
// lines. Records are separated by empty lines.
func ParseSource(r io.Reader, name string, b *Builder) error {
	var (
		matches  []string
		hasProps bool
		lineNo   int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.HasPrefix(line, "#") {
			continue
		}

		if strings.TrimSpace(line) == "" {
			matches = matches[:0]
			hasProps = false
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			if hasProps {
				return fmt.Errorf("%w: %s:%d: property or empty line expected, got %q", ErrSyntax, name, lineNo, line)
			}
			matches = append(matches, line)
			continue
		}

		if len(matches) == 0 {
			return fmt.Errorf("%w: %s:%d: property without a match line", ErrSyntax, name, lineNo)
		}

		key, value, found := strings.Cut(strings.TrimLeft(line, " \t"), "=")
		if !found || key == "" {
			return fmt.Errorf("%w: %s:%d: invalid property %q", ErrSyntax, name, lineNo, line)
		}
		for _, match := range matches {
			b.Add(match, key, value)
		}
		hasProps = true
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

// LoadSources parses every file in paths in order. Files ending in .zst
// are decompressed on the fly.
func LoadSources(b *Builder, paths ...string) error {
	for _, path := range paths {
		if err := loadSource(b, path); err != nil {
			return err
		}
	}
	return nil
}

// LoadDir parses all *.hwdb and *.hwdb.zst files of dir in lexical order.
func LoadDir(b *Builder, dir string) error {
	var paths []string
	for _, pattern := range []string{"*.hwdb", "*.hwdb.zst"} {
		found, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}
	slices.SortFunc(paths, func(a, b string) int {
		return strings.Compare(filepath.Base(a), filepath.Base(b))
	})
	return LoadSources(b, paths...)
}

func loadSource(b *Builder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		decoder, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd %s: %w", path, err)
		}
		defer decoder.Close()
		r = decoder
	}

	return ParseSource(r, path, b)
}
