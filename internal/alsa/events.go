//go:build linux

package alsa

import (
	"context"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/seqlink/seqlinkd/internal/seq"
)

// pollTimeoutMs bounds each poll so context cancellation is noticed even
// when the sequencer stays silent.
const pollTimeoutMs = 500

// Next returns the next port lifecycle event, blocking until one arrives or
// ctx is cancelled. Announce traffic that is not a port change is dropped
// here so callers only ever see appearances and removals.
func (c *Client) Next(ctx context.Context) (seq.Event, error) {
	for {
		if len(c.queue) > 0 {
			ev := c.queue[0]
			c.queue = c.queue[1:]
			return ev, nil
		}
		if err := ctx.Err(); err != nil {
			return seq.Event{}, err
		}

		fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return seq.Event{}, fmt.Errorf("poll sequencer: %w", err)
		}
		if n == 0 {
			continue
		}
		if err := c.fill(); err != nil {
			return seq.Event{}, err
		}
	}
}

// fill drains whatever the sequencer has buffered and decodes it into the
// event queue. The device delivers whole events only.
func (c *Client) fill() error {
	n, err := unix.Read(c.fd, c.rbuf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("read sequencer events: %w", err)
	}
	for off := 0; off+eventSize <= n; off += eventSize {
		c.decode(c.rbuf[off : off+eventSize])
	}
	return nil
}

// decode turns one raw announce event into a port lifecycle fact. Port
// appearances are enriched with the port and client info the policy needs;
// if the port vanished before we could ask, there is nothing to track and
// the event is dropped.
func (c *Client) decode(b []byte) {
	ev := (*rawEvent)(unsafe.Pointer(&b[0]))
	addr := seq.Addr{Client: ev.Data[0], Port: ev.Data[1]}

	switch ev.Type {
	case evPortStart:
		p, err := c.portFacts(addr)
		if err != nil {
			c.logger.Debug("port vanished before query", "addr", addr.String(), "error", err)
			return
		}
		c.queue = append(c.queue, seq.Event{Kind: seq.PortAppeared, Port: p})

	case evPortExit:
		c.queue = append(c.queue, seq.Event{Kind: seq.PortGone, Port: seq.PortInfo{Addr: addr}})
	}
}

// portFacts asks the kernel for the port's capabilities and its owning
// client's name.
func (c *Client) portFacts(a seq.Addr) (seq.PortInfo, error) {
	var pinfo portInfo
	pinfo.Addr = rawAddr{Client: a.Client, Port: a.Port}
	if err := c.ioctl(reqGetPortInfo, unsafe.Pointer(&pinfo)); err != nil {
		return seq.PortInfo{}, fmt.Errorf("get port info: %w", err)
	}

	var cinfo clientInfo
	cinfo.Client = int32(a.Client)
	if err := c.ioctl(reqGetClientInfo, unsafe.Pointer(&cinfo)); err != nil {
		return seq.PortInfo{}, fmt.Errorf("get client info: %w", err)
	}

	return seq.PortInfo{
		Addr:       a,
		Name:       cstring(pinfo.Name[:]),
		ClientName: cstring(cinfo.Name[:]),
		Caps:       uint(pinfo.Capability),
		Type:       uint(pinfo.Type),
	}, nil
}
