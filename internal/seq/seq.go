// Package seq defines the sequencer data model shared by the policy engine,
// the registry, the connector, and the ALSA transport. It has no platform
// dependencies so the core packages stay portable and testable.
package seq

import (
	"context"
	"errors"
	"fmt"
)

// Addr identifies one sequencer endpoint as a (client, port) pair.
type Addr struct {
	Client uint8
	Port   uint8
}

// String renders the address in the sequencer's client:port notation.
func (a Addr) String() string {
	return fmt.Sprintf("%d:%d", a.Client, a.Port)
}

// Direction is a bitset describing how an endpoint moves data. An endpoint
// that can be read from is an Output (a source of MIDI); one that can be
// written to is an Input (a destination). A duplex endpoint carries both.
type Direction uint8

const (
	Input Direction = 1 << iota
	Output
)

// Has reports whether d includes dir.
func (d Direction) Has(dir Direction) bool {
	return d&dir != 0
}

func (d Direction) String() string {
	switch {
	case d.Has(Input) && d.Has(Output):
		return "input|output"
	case d.Has(Input):
		return "input"
	case d.Has(Output):
		return "output"
	default:
		return "none"
	}
}

// Capability bits, mirroring the kernel sequencer's port capability flags.
const (
	CapRead      uint = 1 << 0
	CapWrite     uint = 1 << 1
	CapDuplex    uint = 1 << 4
	CapSubsRead  uint = 1 << 5
	CapSubsWrite uint = 1 << 6
	CapNoExport  uint = 1 << 7
)

// Port type bits, mirroring the kernel sequencer's port type flags.
const (
	TypeMIDIGeneric uint = 1 << 1
	TypeHardware    uint = 1 << 16
	TypeSoftware    uint = 1 << 17
	TypeApplication uint = 1 << 20
)

// PortInfo describes one endpoint at the moment it was observed.
type PortInfo struct {
	Addr       Addr
	Name       string // port name as advertised by the owning client
	ClientName string // owning client's name; policy rules match against this
	Caps       uint
	Type       uint
}

// Directions derives the endpoint's data directions from its capabilities.
func (p PortInfo) Directions() Direction {
	var d Direction
	if p.Caps&(CapRead|CapSubsRead) != 0 {
		d |= Output
	}
	if p.Caps&(CapWrite|CapSubsWrite) != 0 {
		d |= Input
	}
	return d
}

// EventKind discriminates endpoint lifecycle events.
type EventKind uint8

const (
	// PortAppeared reports a newly announced endpoint. Event.Port is fully
	// populated.
	PortAppeared EventKind = iota
	// PortGone reports a removed endpoint. Only Event.Port.Addr is valid.
	PortGone
)

func (k EventKind) String() string {
	switch k {
	case PortAppeared:
		return "port-appeared"
	case PortGone:
		return "port-gone"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Event is one endpoint lifecycle fact delivered by an EventSource.
type Event struct {
	Kind EventKind
	Port PortInfo
}

// EventSource delivers endpoint lifecycle facts from a sequencer service.
// Snapshot enumerates the endpoints present right now and is used to seed
// startup. Next blocks until the next event or context cancellation.
type EventSource interface {
	Snapshot() ([]PortInfo, error)
	Next(ctx context.Context) (Event, error)
}

// ErrAlreadyLinked reports that the requested subscription already exists,
// either from an earlier run or made by another connection manager.
var ErrAlreadyLinked = errors.New("ports already linked")

// Linker establishes one reader→writer subscription between two endpoints.
// Implementations perform the request and report the outcome; callers never
// retry.
type Linker interface {
	Link(output, input Addr) error
}
