// Package sensor defines the sensor reading exchanged between the emulator and
// its client, together with the length-delimited protobuf framing used on the wire.
package sensor

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// DefaultFuelLevel is the fuel level a freshly configured record starts with.
const DefaultFuelLevel int32 = 50

// Record is a single sensor reading. It is a value type; copies are independent.
//
// FuelLevel is a percentage by convention, but no range is enforced here:
// out-of-range values are carried through the codec unchanged.
type Record struct {
	// Pressure in psi.
	Pressure float32
	TPMS     float32
	// Temperature in degrees Celsius.
	Temperature float32
	LightsOn    bool
	FuelLevel   int32
}

// DefaultRecord returns the record a configuration form starts from.
func DefaultRecord() Record {
	return Record{FuelLevel: DefaultFuelLevel}
}

func (r Record) String() string {
	return fmt.Sprintf("pressure=%g tpms=%g temperature=%g lightsOn=%t fuelLevel=%d",
		r.Pressure, r.TPMS, r.Temperature, r.LightsOn, r.FuelLevel)
}

// ToProto converts the record into a SensorData protobuf message.
func (r Record) ToProto() proto.Message {
	s := sensorSchema
	m := dynamicpb.NewMessage(s.message)
	m.Set(s.pressure, protoreflect.ValueOfFloat32(r.Pressure))
	m.Set(s.tpms, protoreflect.ValueOfFloat32(r.TPMS))
	m.Set(s.temperature, protoreflect.ValueOfFloat32(r.Temperature))
	m.Set(s.lightsOn, protoreflect.ValueOfBool(r.LightsOn))
	m.Set(s.fuelLevel, protoreflect.ValueOfInt32(r.FuelLevel))
	return m
}

// FromProto reads a record out of a SensorData message. Unset fields take
// their zero value.
func FromProto(msg proto.Message) (Record, error) {
	m := msg.ProtoReflect()
	if m.Descriptor().FullName() != sensorSchema.message.FullName() {
		return Record{}, fmt.Errorf("unexpected message type %s", m.Descriptor().FullName())
	}

	s := sensorSchema
	return Record{
		Pressure:    float32(m.Get(s.pressure).Float()),
		TPMS:        float32(m.Get(s.tpms).Float()),
		Temperature: float32(m.Get(s.temperature).Float()),
		LightsOn:    m.Get(s.lightsOn).Bool(),
		FuelLevel:   int32(m.Get(s.fuelLevel).Int()),
	}, nil
}

// NewMessage returns an empty, mutable SensorData message.
func NewMessage() proto.Message {
	return dynamicpb.NewMessage(sensorSchema.message)
}

// MarshalJSON renders the record in the protobuf JSON mapping.
func MarshalJSON(r Record) ([]byte, error) {
	return protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(r.ToProto())
}

// UnmarshalJSON parses a record from the protobuf JSON mapping. Unknown fields
// are rejected.
func UnmarshalJSON(data []byte) (Record, error) {
	m := NewMessage()
	if err := protojson.Unmarshal(data, m); err != nil {
		return Record{}, fmt.Errorf("unmarshal sensor data: %w", err)
	}
	return FromProto(m)
}
