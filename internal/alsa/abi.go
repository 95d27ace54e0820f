//go:build linux

package alsa

import "unsafe"

// Kernel sequencer ABI. Layouts and numbers mirror the uapi sound headers;
// sizes are asserted in abi_test.go because the ioctl encoding embeds them.

// rawAddr is the kernel's client:port pair.
type rawAddr struct {
	Client uint8
	Port   uint8
}

// clientInfo mirrors snd_seq_client_info.
type clientInfo struct {
	Client          int32
	Type            int32
	Name            [64]byte
	Filter          uint32
	MulticastFilter [8]byte
	EventFilter     [32]byte
	NumPorts        int32
	EventLost       int32
	Card            int32
	PID             int32
	Reserved        [56]byte
}

// portInfo mirrors snd_seq_port_info. The kernel pointer field makes the
// struct size word-dependent, exactly as it is in C.
type portInfo struct {
	Addr         rawAddr
	Name         [64]byte
	_            [2]byte
	Capability   uint32
	Type         uint32
	MidiChannels int32
	MidiVoices   int32
	SynthVoices  int32
	ReadUse      int32
	WriteUse     int32
	Kernel       uintptr
	Flags        uint32
	TimeQueue    uint8
	Reserved     [59]byte
}

// portSubscribe mirrors snd_seq_port_subscribe.
type portSubscribe struct {
	Sender   rawAddr
	Dest     rawAddr
	Voices   uint32
	Flags    uint32
	Queue    uint8
	Pad      [3]byte
	Reserved [64]byte
}

// rawEvent mirrors snd_seq_event. The data union stays raw bytes; announce
// events carry a rawAddr at its start. Packed union members keep the struct
// at 28 bytes on every word size.
type rawEvent struct {
	Type   uint8
	Flags  uint8
	Tag    int8
	Queue  uint8
	Time   [8]byte
	Source rawAddr
	Dest   rawAddr
	Data   [12]byte
}

const eventSize = int(unsafe.Sizeof(rawEvent{}))

// Announce event types delivered on the system announce port.
const (
	evClientStart    uint8 = 60
	evClientExit     uint8 = 61
	evPortStart      uint8 = 63
	evPortExit       uint8 = 64
	evPortSubscribed uint8 = 66
)

// The system client owns the timer and announce ports.
const (
	systemClient  uint8 = 0
	announcePort  uint8 = 1
	flgGivenPort        = 1 << 0
)

// ioctl direction and field widths, from the generic ioctl encoding.
const (
	iocWrite uintptr = 1
	iocRead  uintptr = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

func ior(typ, nr, size uintptr) uintptr  { return ioc(iocRead, typ, nr, size) }
func iow(typ, nr, size uintptr) uintptr  { return ioc(iocWrite, typ, nr, size) }
func iowr(typ, nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, typ, nr, size) }

// Sequencer ioctl requests, 'S' type.
const seqIoctlType uintptr = 'S'

var (
	reqPVersion        = ior(seqIoctlType, 0x00, unsafe.Sizeof(int32(0)))
	reqClientID        = ior(seqIoctlType, 0x01, unsafe.Sizeof(int32(0)))
	reqGetClientInfo   = iowr(seqIoctlType, 0x10, unsafe.Sizeof(clientInfo{}))
	reqSetClientInfo   = iow(seqIoctlType, 0x11, unsafe.Sizeof(clientInfo{}))
	reqCreatePort      = iowr(seqIoctlType, 0x20, unsafe.Sizeof(portInfo{}))
	reqGetPortInfo     = iowr(seqIoctlType, 0x22, unsafe.Sizeof(portInfo{}))
	reqSubscribePort   = iow(seqIoctlType, 0x30, unsafe.Sizeof(portSubscribe{}))
	reqQueryNextClient = iowr(seqIoctlType, 0x51, unsafe.Sizeof(clientInfo{}))
	reqQueryNextPort   = iowr(seqIoctlType, 0x52, unsafe.Sizeof(portInfo{}))
)

// cstring returns the bytes before the first NUL as a string.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
