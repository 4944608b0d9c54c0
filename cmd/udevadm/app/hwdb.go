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
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/deckhouse/udev-devd/pkg/hwdb"
	"github.com/deckhouse/udev-devd/pkg/udev"
)

func NewHwdbCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hwdb",
		Short: "Query or build the hardware database",
	}

	cmd.AddCommand(
		newHwdbQueryCommand(root),
		newHwdbBuildCommand(root),
	)

	return cmd
}

func newHwdbQueryCommand(root *rootOptions) *cobra.Command {
	o := &hwdbQueryOptions{root: root}
	return &cobra.Command{
		Use:   "query <modalias>",
		Short: "Print the properties the database holds for a modalias",
		Example: `  # Properties of a USB device
  $ udevadm hwdb query usb:v1D6Bp0002d0515dc09dsc00dp03ic09isc00ip00in00
`,
		Args: cobra.ExactArgs(1),
		RunE: o.Run,
	}
}

type hwdbQueryOptions struct {
	root *rootOptions
}

func (o *hwdbQueryOptions) Run(cmd *cobra.Command, args []string) error {
	if o.root.HwdbPath == "" {
		return errors.New("hwdb path is empty")
	}

	h, err := udev.NewHwdb(o.root.HwdbPath, udev.HwdbWithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to open hwdb: %w", err)
	}
	defer h.Close()

	entry, err := h.PropertiesListEntry(args[0])
	if err != nil {
		return fmt.Errorf("failed to query hwdb: %w", err)
	}

	props := make(map[string]string)
	for ; entry != nil; entry = entry.Next() {
		value, _ := entry.Value()
		props[entry.Name()] = value
	}
	return o.root.printer.PrintObject(cmd, props)
}

func newHwdbBuildCommand(root *rootOptions) *cobra.Command {
	o := &hwdbBuildOptions{root: root}
	cmd := &cobra.Command{
		Use:   "build [source...]",
		Short: "Compile hwdb source files",
		Example: `  # Compile all sources of a directory into the default database
  $ udevadm hwdb build --dir /etc/udev/hwdb.d

  # Compile single files
  $ udevadm hwdb build --out ./hwdb.bin 20-usb-vendor-model.hwdb 99-local.hwdb.zst
`,
		RunE: o.Run,
	}

	cmd.Flags().StringVar(&o.dir, "dir", "", "Directory with *.hwdb and *.hwdb.zst sources")
	cmd.Flags().StringVar(&o.out, "out", "", "Database to write, defaults to --hwdb")

	return cmd
}

type hwdbBuildOptions struct {
	root *rootOptions
	dir  string
	out  string
}

func (o *hwdbBuildOptions) Run(cmd *cobra.Command, args []string) error {
	if o.dir == "" && len(args) == 0 {
		return errors.New("no sources given, pass files or --dir")
	}
	out := o.out
	if out == "" {
		out = o.root.HwdbPath
	}
	if out == "" {
		return errors.New("no output given, pass --out")
	}

	b := hwdb.NewBuilder()
	if o.dir != "" {
		if err := hwdb.LoadDir(b, o.dir); err != nil {
			return err
		}
	}
	if err := hwdb.LoadSources(b, args...); err != nil {
		return err
	}

	if err := b.WriteFile(out); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	slog.Info("hwdb compiled", slog.String("path", out))
	return nil
}
