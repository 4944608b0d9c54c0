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

//go:build linux

package app

import (
	"log/slog"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

func newHostLinkSource() (udev.LinkSource, func(), error) {
	h, err := udev.NewNetNSLinkSource(udev.HostNetNS)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("listing links in host netns", slog.String("netns", udev.HostNetNS))
	return h, h.Close, nil
}
