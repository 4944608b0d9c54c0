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
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/deckhouse/udev-devd/pkg/udev"
)

// DeviceStore is a thread-safe set of device snapshots keyed by syspath
// that signals every change.
type DeviceStore struct {
	mu        sync.RWMutex
	devices   map[string]*udev.DeviceInfo
	changesCh chan struct{}
	closed    bool
	log       *slog.Logger
}

func NewDeviceStore(devices map[string]*udev.DeviceInfo, log *slog.Logger) *DeviceStore {
	if devices == nil {
		devices = make(map[string]*udev.DeviceInfo)
	}
	return &DeviceStore{
		devices:   devices,
		changesCh: make(chan struct{}, 1),
		log:       log,
	}
}

// Changes returns a channel sent on when the device set changes. It is
// closed by Close.
func (s *DeviceStore) Changes() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changesCh
}

func (s *DeviceStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.changesCh)
	}
}

// GetDevices returns the devices sorted by syspath.
func (s *DeviceStore) GetDevices() []*udev.DeviceInfo {
	s.mu.RLock()
	devices := make([]*udev.DeviceInfo, 0, len(s.devices))
	for _, device := range s.devices {
		devices = append(devices, device)
	}
	s.mu.RUnlock()

	slices.SortFunc(devices, func(a, b *udev.DeviceInfo) int {
		return strings.Compare(a.Syspath, b.Syspath)
	})
	return devices
}

func (s *DeviceStore) GetDevice(syspath string) (*udev.DeviceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.devices[syspath]
	return device, ok
}

// GetDevicesBySubsystem returns the devices of subsystem sorted by syspath.
func (s *DeviceStore) GetDevicesBySubsystem(subsystem string) []*udev.DeviceInfo {
	var out []*udev.DeviceInfo
	for _, device := range s.GetDevices() {
		if device.Subsystem == subsystem {
			out = append(out, device)
		}
	}
	return out
}

func (s *DeviceStore) unlockedSendChange() {
	if s.closed {
		return
	}
	s.log.Debug("notifying device store consumers")
	select {
	case s.changesCh <- struct{}{}:
	default:
	}
}

// AddDevice adds or replaces a device and reports whether anything changed.
func (s *DeviceStore) AddDevice(device *udev.DeviceInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.devices[device.Syspath]
	if exists && device.Equal(old) {
		return false
	}

	s.devices[device.Syspath] = device
	s.log.Info("device added",
		slog.String("syspath", device.Syspath),
		slog.String("subsystem", device.Subsystem),
		slog.String("devnode", device.Devnode),
	)
	s.unlockedSendChange()
	return true
}

// RemoveDevice removes a device and reports whether it existed.
func (s *DeviceStore) RemoveDevice(syspath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.devices[syspath]; !exists {
		return false
	}
	delete(s.devices, syspath)
	s.log.Info("device removed", slog.String("syspath", syspath))
	s.unlockedSendChange()
	return true
}

// Resync replaces the store content with devices and reports whether
// anything changed.
func (s *DeviceStore) Resync(devices map[string]*udev.DeviceInfo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false

	for syspath := range s.devices {
		if _, exists := devices[syspath]; !exists {
			s.log.Info("device removed (resync)", slog.String("syspath", syspath))
			delete(s.devices, syspath)
			changed = true
		}
	}

	for syspath, device := range devices {
		old, exists := s.devices[syspath]
		switch {
		case !exists:
			s.log.Info("device added (resync)",
				slog.String("syspath", syspath),
				slog.String("subsystem", device.Subsystem),
			)
		case !device.Equal(old):
			s.log.Info("device changed (resync)", slog.String("syspath", syspath))
		default:
			continue
		}
		s.devices[syspath] = device
		changed = true
	}

	if changed {
		s.unlockedSendChange()
	}
	return changed
}

func (s *DeviceStore) Exists(syspath string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.devices[syspath]
	return exists
}
