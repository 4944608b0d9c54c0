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

import "github.com/vishvananda/netlink"

// LinkSource lists network interfaces. *netlink.Handle satisfies it.
type LinkSource interface {
	LinkList() ([]netlink.Link, error)
	LinkByName(name string) (netlink.Link, error)
}

// netlinkSource queries the network namespace of the calling thread.
type netlinkSource struct{}

func (netlinkSource) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

func (netlinkSource) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}
