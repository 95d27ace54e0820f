//go:build linux

// Package alsa speaks the kernel sequencer protocol on /dev/snd/seq
// directly: it registers the daemon as a sequencer client, subscribes to
// the system announce port, enumerates the current graph, and makes port
// subscriptions. It is the platform half of seq.EventSource and seq.Linker.
package alsa

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/seqlink/seqlinkd/internal/seq"
)

// DevicePath is the sequencer device node.
const DevicePath = "/dev/snd/seq"

// Client is an open sequencer handle.
type Client struct {
	fd       int
	clientID int
	port     uint8
	logger   *slog.Logger

	// queue holds decoded events awaiting delivery; rbuf is the raw read
	// buffer. Next owns both.
	queue []seq.Event
	rbuf  []byte
}

var (
	_ seq.EventSource = (*Client)(nil)
	_ seq.Linker      = (*Client)(nil)
)

// Open registers clientName on the sequencer and subscribes to the system
// announce port so Next sees every future port change.
func Open(clientName string, logger *slog.Logger) (*Client, error) {
	fd, err := unix.Open(DevicePath, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", DevicePath, err)
	}
	c := &Client{
		fd:     fd,
		logger: logger,
		rbuf:   make([]byte, 64*eventSize),
	}

	var ver int32
	if err := c.ioctl(reqPVersion, unsafe.Pointer(&ver)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("query sequencer protocol: %w", err)
	}

	var id int32
	if err := c.ioctl(reqClientID, unsafe.Pointer(&id)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("query client id: %w", err)
	}
	c.clientID = int(id)

	if err := c.setName(clientName); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.createReceiver(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.subscribeAnnounce(); err != nil {
		_ = c.Close()
		return nil, err
	}

	logger.Debug("sequencer client ready",
		"client", c.clientID,
		"protocol", fmt.Sprintf("%d.%d.%d", ver>>16&0xff, ver>>8&0xff, ver&0xff))
	return c, nil
}

// ClientID returns the number the sequencer assigned this client.
func (c *Client) ClientID() int {
	return c.clientID
}

func (c *Client) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}

// setName renames the client. The kernel insists the rest of the info
// matches, so read-modify-write.
func (c *Client) setName(name string) error {
	var info clientInfo
	info.Client = int32(c.clientID)
	if err := c.ioctl(reqGetClientInfo, unsafe.Pointer(&info)); err != nil {
		return fmt.Errorf("get client info: %w", err)
	}
	info.Name = [64]byte{}
	copy(info.Name[:len(info.Name)-1], name)
	if err := c.ioctl(reqSetClientInfo, unsafe.Pointer(&info)); err != nil {
		return fmt.Errorf("set client name: %w", err)
	}
	return nil
}

// createReceiver makes the write-only port announce events arrive on. The
// no-export capability keeps it out of everyone's link candidates, our own
// registry included.
func (c *Client) createReceiver() error {
	var info portInfo
	info.Addr = rawAddr{Client: uint8(c.clientID), Port: 0}
	info.Flags = flgGivenPort
	copy(info.Name[:len(info.Name)-1], "announce")
	info.Capability = uint32(seq.CapWrite | seq.CapSubsWrite | seq.CapNoExport)
	info.Type = uint32(seq.TypeApplication)
	if err := c.ioctl(reqCreatePort, unsafe.Pointer(&info)); err != nil {
		return fmt.Errorf("create receiver port: %w", err)
	}
	c.port = info.Addr.Port
	return nil
}

func (c *Client) subscribeAnnounce() error {
	sub := portSubscribe{
		Sender: rawAddr{Client: systemClient, Port: announcePort},
		Dest:   rawAddr{Client: uint8(c.clientID), Port: c.port},
	}
	if err := c.ioctl(reqSubscribePort, unsafe.Pointer(&sub)); err != nil {
		return fmt.Errorf("subscribe to announcements: %w", err)
	}
	return nil
}

// Snapshot enumerates every port on the sequencer right now. The walk uses
// the kernel's query-next iteration, which tolerates clients appearing and
// vanishing mid-scan.
func (c *Client) Snapshot() ([]seq.PortInfo, error) {
	var out []seq.PortInfo

	var cinfo clientInfo
	cinfo.Client = -1
	for {
		if err := c.ioctl(reqQueryNextClient, unsafe.Pointer(&cinfo)); err != nil {
			if errors.Is(err, unix.ENOENT) {
				break
			}
			return nil, fmt.Errorf("query next client: %w", err)
		}
		clientName := cstring(cinfo.Name[:])

		var pinfo portInfo
		pinfo.Addr = rawAddr{Client: uint8(cinfo.Client), Port: 255}
		for {
			// The kernel advances addr.port before searching, so 255
			// wraps to 0 on the first call.
			if err := c.ioctl(reqQueryNextPort, unsafe.Pointer(&pinfo)); err != nil {
				break
			}
			out = append(out, seq.PortInfo{
				Addr:       seq.Addr{Client: pinfo.Addr.Client, Port: pinfo.Addr.Port},
				Name:       cstring(pinfo.Name[:]),
				ClientName: clientName,
				Caps:       uint(pinfo.Capability),
				Type:       uint(pinfo.Type),
			})
			if pinfo.Addr.Port == 255 {
				break
			}
		}
	}
	return out, nil
}

// Link subscribes input to everything output emits. The kernel reports an
// existing identical subscription as EBUSY.
func (c *Client) Link(output, input seq.Addr) error {
	sub := portSubscribe{
		Sender: rawAddr{Client: output.Client, Port: output.Port},
		Dest:   rawAddr{Client: input.Client, Port: input.Port},
	}
	if err := c.ioctl(reqSubscribePort, unsafe.Pointer(&sub)); err != nil {
		if errors.Is(err, unix.EBUSY) {
			return seq.ErrAlreadyLinked
		}
		return fmt.Errorf("subscribe %s to %s: %w", output, input, err)
	}
	return nil
}

func (c *Client) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(c.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
