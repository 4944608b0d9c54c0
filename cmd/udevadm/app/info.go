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
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

const (
	queryAll      = "all"
	queryProperty = "property"
)

func NewInfoCommand(root *rootOptions) *cobra.Command {
	o := &infoOptions{root: root}
	cmd := &cobra.Command{
		Use:     "info <syspath>",
		Short:   "Show a device",
		Example: o.Usage(),
		Args:    cobra.ExactArgs(1),
		RunE:    o.Run,
	}

	cmd.Flags().StringVarP(&o.query, "query", "q", queryAll, "What to print: all or property")

	return cmd
}

type infoOptions struct {
	root  *rootOptions
	query string
}

func (o *infoOptions) Usage() string {
	return `  # Show an input device
  $ udevadm info input/event3

  # Show the properties of a network interface
  $ udevadm info /net/eth0 --query property
`
}

func (o *infoOptions) Run(cmd *cobra.Command, args []string) error {
	if o.query != queryAll && o.query != queryProperty {
		return fmt.Errorf("unsupported query %q. Supported queries: [%s, %s]", o.query, queryAll, queryProperty)
	}

	u, cleanup, err := o.root.NewUdev()
	if err != nil {
		return err
	}
	defer cleanup()

	syspath := args[0]
	if !strings.HasPrefix(syspath, "/") {
		syspath = path.Join(u.DevRoot(), syspath)
	}

	device, err := u.NewDevice(syspath)
	if err != nil {
		return fmt.Errorf("failed to get device %s: %w", syspath, err)
	}
	defer device.Release()

	if device.Subsystem() == udev.UnknownSubsystem {
		return fmt.Errorf("no subsystem handles %s", syspath)
	}

	info := device.Info()
	if o.query == queryProperty {
		return o.root.printer.PrintObject(cmd, info.Properties)
	}
	return o.root.printer.PrintObject(cmd, info)
}
