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

package monitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/pflag"
	"k8s.io/utils/ptr"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

// EventMode selects which uevents the monitor listens to.
type EventMode string

const (
	KernelEventMode EventMode = "kernel"
	UdevEventMode   EventMode = "udev"

	DefaultEventMode = KernelEventMode
)

func (m *EventMode) String() string {
	return string(*m)
}

func (m *EventMode) Set(s string) error {
	switch s {
	case ptr.To(KernelEventMode).String():
		*m = KernelEventMode
	case ptr.To(UdevEventMode).String():
		*m = UdevEventMode
	default:
		return fmt.Errorf("invalid event mode: %s", s)
	}
	return nil
}

func (m *EventMode) Type() string {
	return "event-mode"
}

// Mode returns the netlink group of m.
func (m EventMode) Mode() udev.Mode {
	if m == UdevEventMode {
		return udev.UdevEvent
	}
	return udev.KernelEvent
}

type MonitorConfig struct {
	EventMode        EventMode
	ResyncPeriod     time.Duration
	DebounceDuration time.Duration
	HostNetNS        bool
	Logger           *slog.Logger
}

func NewDefaultMonitorConfig() *MonitorConfig {
	return &MonitorConfig{
		EventMode:        DefaultEventMode,
		ResyncPeriod:     5 * time.Minute,
		DebounceDuration: 200 * time.Millisecond,
	}
}

func (c *MonitorConfig) AddFlags(fs *pflag.FlagSet) {
	fs.Var(&c.EventMode, "event-mode", fmt.Sprintf("Uevent source: %s or %s", KernelEventMode, UdevEventMode))
	fs.DurationVar(&c.ResyncPeriod, "resync-period", c.ResyncPeriod, "Period of full device rescans")
	fs.DurationVar(&c.DebounceDuration, "debounce-duration", c.DebounceDuration, "Time to wait for more events of the same device")
	fs.BoolVar(&c.HostNetNS, "host-netns", c.HostNetNS, "Open the uevent socket in the host network namespace")
}

// Validate checks the durations, time.NewTicker panics on a non-positive period.
func (c *MonitorConfig) Validate() error {
	if c.ResyncPeriod <= 0 {
		return fmt.Errorf("resync period must be positive, got %s", c.ResyncPeriod)
	}
	if c.DebounceDuration < 0 {
		return fmt.Errorf("debounce duration must not be negative, got %s", c.DebounceDuration)
	}
	return nil
}

// NewMonitor builds the netlink monitor for filter.
func (c *MonitorConfig) NewMonitor(u *udev.Udev, filter *udev.Filter, log *slog.Logger) (EventSource, error) {
	return newEventSource(u, filter, c, log)
}
