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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deckhouse/udev-devd/internal/monitor"
	"github.com/deckhouse/udev-devd/pkg/udev"
)

func NewMonitorCommand(root *rootOptions) *cobra.Command {
	o := &monitorOptions{
		root:   root,
		config: monitor.NewDefaultMonitorConfig(),
	}
	cmd := &cobra.Command{
		Use:     "monitor",
		Short:   "Print uevents of matching devices",
		Example: o.Usage(),
		Args:    cobra.NoArgs,
		RunE:    o.Run,
	}

	o.filter.AddFlags(cmd.Flags())
	o.config.AddFlags(cmd.Flags())
	cmd.Flags().BoolVar(&o.snapshot, "snapshot", false, "Print the full device list whenever it changes")
	cmd.Flags().BoolVar(&o.watchHwdb, "watch-hwdb", false, "Reload the hardware database when it is replaced")

	return cmd
}

type monitorOptions struct {
	root      *rootOptions
	config    *monitor.MonitorConfig
	filter    filterOptions
	snapshot  bool
	watchHwdb bool
}

func (o *monitorOptions) Usage() string {
	return `  # Print kernel events of input devices
  $ udevadm monitor -s input

  # Keep printing the list of network interfaces
  $ udevadm monitor -s net --snapshot --host-netns
`
}

func (o *monitorOptions) Run(cmd *cobra.Command, _ []string) error {
	u, cleanup, err := o.root.NewUdev()
	if err != nil {
		return err
	}
	defer cleanup()

	e := udev.NewEnumerator(u)
	if err := o.filter.Apply(e); err != nil {
		return err
	}
	o.config.Logger = slog.Default()

	group, ctx := errgroup.WithContext(cmd.Context())

	if o.snapshot {
		m, err := monitor.NewDeviceMonitor(ctx, u, e, o.config)
		if err != nil {
			return fmt.Errorf("failed to create device monitor: %w", err)
		}
		group.Go(func() error {
			return o.printSnapshots(ctx, cmd, m)
		})
	} else {
		source, err := o.config.NewMonitor(u, e.Filter(), o.config.Logger)
		if err != nil {
			return fmt.Errorf("failed to create uevent monitor: %w", err)
		}
		group.Go(func() error {
			return o.printEvents(ctx, cmd, u, source)
		})
	}

	if o.watchHwdb {
		if h := u.Hwdb(); h != nil {
			group.Go(func() error {
				return h.Watch(ctx)
			})
		} else {
			slog.Warn("hwdb is not available, not watching it", slog.String("path", o.root.HwdbPath))
		}
	}

	return group.Wait()
}

func (o *monitorOptions) printEvents(ctx context.Context, cmd *cobra.Command, u *udev.Udev, source monitor.EventSource) error {
	eventCh, errCh := source.Start(ctx)

	for event := range eventCh {
		device, err := u.DeviceFromUEvent(event)
		if err != nil {
			slog.Debug("failed to create device", slog.String("kobj", event.KObj), slog.String("error", err.Error()))
			continue
		}
		info := device.Info()
		device.Release()

		if err := o.root.printer.PrintObject(cmd, info); err != nil {
			return err
		}
	}

	if err, ok := <-errCh; ok {
		return err
	}
	return ctx.Err()
}

func (o *monitorOptions) printSnapshots(ctx context.Context, cmd *cobra.Command, m *monitor.DeviceMonitor) error {
	changes := m.DeviceChanges()
	for {
		if err := o.root.printer.PrintObject(cmd, m.GetDevices()); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return errors.New("device monitor stopped")
			}
		}
	}
}
