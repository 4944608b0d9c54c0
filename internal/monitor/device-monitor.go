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
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

// EventSource delivers uevents until the context passed to Start is canceled.
type EventSource interface {
	Start(context.Context) (<-chan *udev.UEvent, <-chan error)
}

// DeviceMonitor keeps a DeviceStore in sync with uevents. Events for one
// syspath are debounced, a periodic resync rescans all devices.
type DeviceMonitor struct {
	store      *DeviceStore
	log        *slog.Logger
	udev       *udev.Udev
	enumerator *udev.Enumerator
	source     EventSource

	resyncPeriod     time.Duration
	debounceDuration time.Duration

	pendingEvents map[string]*debounceEntry
	debounceMu    sync.Mutex
}

type debounceEntry struct {
	event *udev.UEvent
	timer *time.Timer
}

// NewDeviceMonitor scans the devices matching the enumerator criteria,
// then follows their uevents until ctx is canceled.
func NewDeviceMonitor(ctx context.Context, u *udev.Udev, e *udev.Enumerator, cfg *MonitorConfig) (*DeviceMonitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "device-monitor"))

	source, err := newEventSource(u, e.Filter(), cfg, log)
	if err != nil {
		return nil, err
	}

	m := newDeviceMonitor(u, e, source, cfg, log)
	devices, err := m.scan(ctx)
	if err != nil {
		return nil, err
	}
	m.store.Resync(devices)

	go m.run(ctx)

	return m, nil
}

func newDeviceMonitor(u *udev.Udev, e *udev.Enumerator, source EventSource, cfg *MonitorConfig, log *slog.Logger) *DeviceMonitor {
	return &DeviceMonitor{
		store:            NewDeviceStore(nil, log),
		log:              log,
		udev:             u,
		enumerator:       e,
		source:           source,
		resyncPeriod:     cfg.ResyncPeriod,
		debounceDuration: cfg.DebounceDuration,
		pendingEvents:    make(map[string]*debounceEntry),
	}
}

func (m *DeviceMonitor) run(ctx context.Context) {
	defer m.store.Close()

	eventCh, errCh := m.source.Start(ctx)

	resyncTicker := time.NewTicker(m.resyncPeriod)
	defer resyncTicker.Stop()

	m.log.Info("device monitor started",
		slog.Duration("resync_period", m.resyncPeriod),
		slog.Duration("debounce_duration", m.debounceDuration),
	)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("device monitor stopped")
			return

		case event, ok := <-eventCh:
			if !ok {
				m.log.Debug("event channel closed")
				return
			}
			m.handleEvent(event)

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			m.log.Error("uevent monitor error", slog.String("error", err.Error()))
			return

		case <-resyncTicker.C:
			m.resync(ctx)
		}
	}
}

func (m *DeviceMonitor) handleEvent(event *udev.UEvent) {
	syspath := m.udev.SyspathFromUEvent(event)
	m.log.Debug("received uevent",
		slog.String("action", event.Action.String()),
		slog.String("syspath", syspath),
	)

	// Only devices the enumerator can find again are tracked.
	if m.udev.SubsystemBySyspath(syspath) == udev.UnknownSubsystem {
		return
	}
	m.scheduleEvent(syspath, event)
}

func (m *DeviceMonitor) scheduleEvent(syspath string, event *udev.UEvent) {
	m.debounceMu.Lock()
	defer m.debounceMu.Unlock()

	if entry, ok := m.pendingEvents[syspath]; ok {
		entry.timer.Stop()
		// A pending remove is only superseded by a new add.
		if entry.event.Action == udev.ActionRemove && event.Action != udev.ActionAdd {
			event = entry.event
		}
		delete(m.pendingEvents, syspath)
	}

	final := event
	timer := time.AfterFunc(m.debounceDuration, func() {
		m.debounceMu.Lock()
		if entry, ok := m.pendingEvents[syspath]; ok && entry.event == final {
			delete(m.pendingEvents, syspath)
		}
		m.debounceMu.Unlock()

		m.processEvent(syspath, final)
	})

	m.pendingEvents[syspath] = &debounceEntry{
		event: final,
		timer: timer,
	}
}

func (m *DeviceMonitor) processEvent(syspath string, event *udev.UEvent) {
	switch event.Action {
	case udev.ActionAdd, udev.ActionChange, udev.ActionMove, udev.ActionBind, udev.ActionOnline:
		m.handleDeviceUpdate(syspath, event)
	case udev.ActionRemove, udev.ActionUnbind, udev.ActionOffline:
		m.log.Debug("remove device", slog.String("syspath", syspath))
		m.store.RemoveDevice(syspath)
	}
}

func (m *DeviceMonitor) handleDeviceUpdate(syspath string, event *udev.UEvent) {
	device, err := m.udev.DeviceFromUEvent(event)
	if err != nil {
		m.log.Debug("failed to create device", slog.String("syspath", syspath), slog.String("error", err.Error()))
		return
	}
	defer device.Release()

	m.store.AddDevice(device.Info())
}

func (m *DeviceMonitor) resync(ctx context.Context) {
	devices, err := m.scan(ctx)
	if err != nil {
		m.log.Error("failed to scan devices during resync", slog.String("error", err.Error()))
		return
	}
	m.store.Resync(devices)
}

// scan enumerates the matching devices. Devices already in the store keep
// their snapshot, it may carry properties only their uevent had.
func (m *DeviceMonitor) scan(ctx context.Context) (map[string]*udev.DeviceInfo, error) {
	if err := m.enumerator.ScanDevices(ctx); err != nil {
		return nil, err
	}

	devices := make(map[string]*udev.DeviceInfo)
	for entry := range m.enumerator.Devices().All() {
		syspath := entry.Name()
		if info, ok := m.store.GetDevice(syspath); ok {
			devices[syspath] = info
			continue
		}

		device, err := m.udev.NewDevice(syspath)
		if err != nil {
			m.log.Debug("failed to create device", slog.String("syspath", syspath), slog.String("error", err.Error()))
			continue
		}
		devices[syspath] = device.Info()
		device.Release()
	}
	return devices, nil
}

func (m *DeviceMonitor) GetDevices() []*udev.DeviceInfo {
	return m.store.GetDevices()
}

func (m *DeviceMonitor) GetDevice(syspath string) (*udev.DeviceInfo, bool) {
	return m.store.GetDevice(syspath)
}

// DeviceChanges returns a channel sent on when the device set changes.
func (m *DeviceMonitor) DeviceChanges() <-chan struct{} {
	return m.store.Changes()
}
