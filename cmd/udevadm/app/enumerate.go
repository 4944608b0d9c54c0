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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

func NewEnumerateCommand(root *rootOptions) *cobra.Command {
	o := &enumerateOptions{root: root}
	cmd := &cobra.Command{
		Use:     "enumerate",
		Short:   "List devices matching the given criteria",
		Example: o.Usage(),
		Args:    cobra.NoArgs,
		RunE:    o.Run,
	}

	o.filter.AddFlags(cmd.Flags())
	cmd.Flags().BoolVar(&o.syspathsOnly, "syspaths-only", false, "Print syspaths instead of devices")

	return cmd
}

type enumerateOptions struct {
	root         *rootOptions
	filter       filterOptions
	syspathsOnly bool
}

func (o *enumerateOptions) Usage() string {
	return `  # List all keyboards
  $ udevadm enumerate -s input -p ID_INPUT_KEYBOARD=1

  # List network interfaces except loopback
  $ udevadm enumerate -s net --attr-nomatch type=loopback --syspaths-only
`
}

func (o *enumerateOptions) Run(cmd *cobra.Command, _ []string) error {
	u, cleanup, err := o.root.NewUdev()
	if err != nil {
		return err
	}
	defer cleanup()

	e := udev.NewEnumerator(u)
	if err := o.filter.Apply(e); err != nil {
		return err
	}
	if err := e.ScanDevices(cmd.Context()); err != nil {
		return err
	}

	if o.syspathsOnly {
		syspaths := make([]string, 0, e.Devices().Len())
		for entry := range e.Devices().All() {
			syspaths = append(syspaths, entry.Name())
		}
		return o.root.printer.PrintObject(cmd, syspaths)
	}

	devices := make([]*udev.DeviceInfo, 0, e.Devices().Len())
	for entry := range e.Devices().All() {
		device, err := u.NewDevice(entry.Name())
		if err != nil {
			slog.Warn("failed to get device", slog.String("syspath", entry.Name()), slog.String("error", err.Error()))
			continue
		}
		devices = append(devices, device.Info())
		device.Release()
	}

	return o.root.printer.PrintObject(cmd, devices)
}
