package sensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/brutella/can"
)

// SimulatedFrameID is the arbitration id of the tyre sensor frame.
const SimulatedFrameID uint32 = 0x100

// tyreFrameLength is the payload size of a tyre frame: two big-endian float32
// values, pressure then TPMS.
const tyreFrameLength = 8

// SimulatedFrame returns the fixed tyre frame the simulator emits:
// pressure 50.0 (0x42480000) and TPMS 56.0 (0x42600000).
func SimulatedFrame() can.Frame {
	return can.Frame{
		ID:     SimulatedFrameID,
		Length: tyreFrameLength,
		Data:   [can.MaxFrameDataLength]uint8{0x42, 0x48, 0x00, 0x00, 0x42, 0x60, 0x00, 0x00},
	}
}

// FrameParser turns a raw CAN frame into a sensor reading.
type FrameParser func(frame can.Frame) (Record, error)

// FromCANFrame decodes a tyre frame. Fields the frame does not carry are left at
// their zero value.
func FromCANFrame(frame can.Frame) (Record, error) {
	if frame.Length < tyreFrameLength {
		return Record{}, fmt.Errorf("can frame 0x%X: payload is %d bytes, want %d", frame.ID, frame.Length, tyreFrameLength)
	}

	return Record{
		Pressure: math.Float32frombits(binary.BigEndian.Uint32(frame.Data[0:4])),
		TPMS:     math.Float32frombits(binary.BigEndian.Uint32(frame.Data[4:8])),
	}, nil
}

// TyreFrame builds a tyre frame carrying the given readings.
func TyreFrame(id uint32, pressure, tpms float32) can.Frame {
	f := can.Frame{ID: id, Length: tyreFrameLength}
	binary.BigEndian.PutUint32(f.Data[0:4], math.Float32bits(pressure))
	binary.BigEndian.PutUint32(f.Data[4:8], math.Float32bits(tpms))
	return f
}
