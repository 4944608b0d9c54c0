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

package udev

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"
)

// monitorPollInterval bounds how long a read blocks before the context is
// checked again.
const monitorPollInterval = 500 * time.Millisecond

// Monitor reads uevents from netlink and delivers the matching ones.
type Monitor struct {
	mode     Mode
	matcher  Matcher
	log      *slog.Logger
	connOpts []ConnOption
}

type MonitorOption func(*Monitor)

func MonitorWithMode(mode Mode) MonitorOption {
	return func(m *Monitor) {
		m.mode = mode
	}
}

func MonitorWithLogger(log *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.log = log
	}
}

// MonitorWithConnOptions configures the underlying Conn, e.g. its network namespace.
func MonitorWithConnOptions(opts ...ConnOption) MonitorOption {
	return func(m *Monitor) {
		m.connOpts = append(m.connOpts, opts...)
	}
}

// NewMonitor creates a monitor. A nil matcher delivers every event.
func NewMonitor(matcher Matcher, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		mode:    KernelEvent,
		matcher: matcher,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run sends matching events to eventCh until ctx is canceled or reading
// fails. eventCh is not closed.
func (m *Monitor) Run(ctx context.Context, eventCh chan<- *UEvent) error {
	conn := NewConn(m.connOpts...)
	if err := conn.Connect(m.mode); err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			m.log.Error("failed to close uevent connection", slog.String("error", err.Error()))
		}
	}()

	if err := conn.SetReadTimeout(monitorPollInterval); err != nil {
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	m.log.Info("uevent monitor started", slog.String("mode", m.mode.String()))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		event, err := conn.ReadUEvent()
		switch {
		case err == nil:
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.EAGAIN):
			continue
		case errors.Is(err, ErrInvalidUEvent):
			m.log.Debug("dropping malformed uevent", slog.String("error", err.Error()))
			continue
		default:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to read uevent: %w", err)
		}

		if m.matcher != nil && !m.matcher.Match(event) {
			continue
		}
		select {
		case eventCh <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Start runs the monitor in a goroutine. Both channels are closed when it
// stops; the caller must drain them.
func (m *Monitor) Start(ctx context.Context) (<-chan *UEvent, <-chan error) {
	eventCh := make(chan *UEvent, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(eventCh)
		defer close(errCh)

		if err := m.Run(ctx, eventCh); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	return eventCh, errCh
}
