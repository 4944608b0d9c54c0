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
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sys/unix"
)

// Conn is a NETLINK_KOBJECT_UEVENT socket.
type Conn struct {
	fd    int
	netNS string
}

type ConnOption func(*Conn)

// WithNetNS creates the socket in the network namespace at path.
func WithNetNS(path string) ConnOption {
	return func(c *Conn) {
		c.netNS = path
	}
}

func NewConn(opts ...ConnOption) *Conn {
	c := &Conn{fd: -1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the socket and joins the group of mode.
func (c *Conn) Connect(mode Mode) error {
	if c.netNS != "" {
		return c.connectInNetNS(mode)
	}
	return c.connect(mode)
}

func (c *Conn) connect(mode Mode) error {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return fmt.Errorf("failed to create netlink socket: %w", err)
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: uint32(mode),
	}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("failed to bind netlink socket: %w", err)
	}

	c.fd = fd
	return nil
}

// connectInNetNS panics if the original namespace cannot be restored, the
// OS thread would be left in the wrong namespace otherwise.
func (c *Conn) connectInNetNS(mode Mode) error {
	// Namespaces are per thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	currentNS, err := unix.Open("/proc/thread-self/ns/net", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to open current netns: %w", err)
	}
	defer closeNS(currentNS, "current")

	targetNS, err := unix.Open(c.netNS, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to open target netns %s: %w", c.netNS, err)
	}
	defer closeNS(targetNS, "target")

	if err := unix.Setns(targetNS, unix.CLONE_NEWNET); err != nil {
		return fmt.Errorf("failed to switch to target netns: %w", err)
	}
	defer func() {
		if err := unix.Setns(currentNS, unix.CLONE_NEWNET); err != nil {
			panic(fmt.Sprintf("FATAL: failed to restore original netns: %v", err))
		}
	}()

	// The socket stays in the target namespace after switching back.
	return c.connect(mode)
}

func closeNS(fd int, which string) {
	if err := unix.Close(fd); err != nil {
		slog.Error("failed to close netns", slog.String("netns", which), slog.String("error", err.Error()))
	}
}

// SetReadTimeout makes ReadMsg fail with EAGAIN when nothing arrived within d.
func (c *Conn) SetReadTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(c.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

// Close is safe to call more than once.
func (c *Conn) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}

// ReadMsg reads one raw message, blocking until it arrives.
func (c *Conn) ReadMsg() ([]byte, error) {
	buf := make([]byte, os.Getpagesize())

	// MSG_TRUNC makes the peek report the real message size.
	n, _, err := unix.Recvfrom(c.fd, buf, unix.MSG_PEEK|unix.MSG_TRUNC)
	if err != nil {
		return nil, err
	}
	if n > len(buf) {
		buf = make([]byte, n)
	}

	n, _, err = unix.Recvfrom(c.fd, buf, 0)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// ReadUEvent reads and parses one uevent.
func (c *Conn) ReadUEvent() (*UEvent, error) {
	msg, err := c.ReadMsg()
	if err != nil {
		return nil, err
	}
	return ParseUEvent(msg)
}

func (c *Conn) Fd() int {
	return c.fd
}
