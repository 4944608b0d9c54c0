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
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

// filterOptions are the device criteria shared by enumerate and monitor.
type filterOptions struct {
	subsystems        []string
	nomatchSubsystems []string
	sysnames          []string
	properties        []string
	tags              []string
	sysattrs          []string
	nomatchSysattrs   []string
}

func (o *filterOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&o.subsystems, "subsystem-match", "s", nil, "Include devices of the subsystem, glob")
	fs.StringArrayVarP(&o.nomatchSubsystems, "subsystem-nomatch", "S", nil, "Exclude devices of the subsystem, glob")
	fs.StringArrayVar(&o.sysnames, "sysname-match", nil, "Include devices with the sysname, glob")
	fs.StringArrayVarP(&o.properties, "property-match", "p", nil, "Include devices with property NAME=VALUE, globs")
	fs.StringArrayVarP(&o.tags, "tag-match", "g", nil, "Include devices with the tag")
	fs.StringArrayVarP(&o.sysattrs, "attr-match", "a", nil, "Include devices with sysattr NAME[=VALUE]")
	fs.StringArrayVarP(&o.nomatchSysattrs, "attr-nomatch", "A", nil, "Exclude devices with sysattr NAME[=VALUE]")
}

func (o *filterOptions) Apply(e *udev.Enumerator) error {
	for _, s := range o.subsystems {
		if err := e.AddMatchSubsystem(s); err != nil {
			return err
		}
	}
	for _, s := range o.nomatchSubsystems {
		if err := e.AddNomatchSubsystem(s); err != nil {
			return err
		}
	}
	for _, s := range o.sysnames {
		if err := e.AddMatchSysname(s); err != nil {
			return err
		}
	}
	for _, s := range o.properties {
		name, value, found := strings.Cut(s, "=")
		if !found || name == "" {
			return fmt.Errorf("invalid property match %q, expected NAME=VALUE", s)
		}
		if err := e.AddMatchProperty(name, value); err != nil {
			return err
		}
	}
	for _, s := range o.tags {
		if err := e.AddMatchTag(s); err != nil {
			return err
		}
	}
	for _, s := range o.sysattrs {
		name, value := parseSysattr(s)
		if err := e.AddMatchSysattr(name, value); err != nil {
			return err
		}
	}
	for _, s := range o.nomatchSysattrs {
		name, value := parseSysattr(s)
		if err := e.AddNomatchSysattr(name, value); err != nil {
			return err
		}
	}
	return nil
}

// parseSysattr splits NAME[=VALUE]. Without a value any value matches.
func parseSysattr(s string) (string, *string) {
	name, value, found := strings.Cut(s, "=")
	if !found {
		return name, nil
	}
	return name, ptr.To(value)
}
