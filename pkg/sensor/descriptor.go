package sensor

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Field numbers of the SensorData message. These are the wire contract with
// existing clients and must never be renumbered.
const (
	FieldPressure    protoreflect.FieldNumber = 1
	FieldTPMS        protoreflect.FieldNumber = 2
	FieldTemperature protoreflect.FieldNumber = 3
	FieldLightsOn    protoreflect.FieldNumber = 4
	FieldFuelLevel   protoreflect.FieldNumber = 5
)

const (
	protoFile    = "sensordata.proto"
	protoPackage = "porsche.sensor.v1"
	messageName  = "SensorData"
)

// schema holds the resolved descriptors of SensorData.
type schema struct {
	message     protoreflect.MessageDescriptor
	pressure    protoreflect.FieldDescriptor
	tpms        protoreflect.FieldDescriptor
	temperature protoreflect.FieldDescriptor
	lightsOn    protoreflect.FieldDescriptor
	fuelLevel   protoreflect.FieldDescriptor
}

var sensorSchema = mustBuildSchema()

// Descriptor returns the message descriptor of the SensorData wire message.
func Descriptor() protoreflect.MessageDescriptor {
	return sensorSchema.message
}

func field(name string, number protoreflect.FieldNumber, typ descriptorpb.FieldDescriptorProto_Type, jsonName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(jsonName),
		Number:   proto.Int32(int32(number)),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
	}
}

func buildSchema() (*schema, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(protoFile),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String(messageName),
			Field: []*descriptorpb.FieldDescriptorProto{
				field("pressure", FieldPressure, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, "pressure"),
				field("tpms", FieldTPMS, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, "tpms"),
				field("temperature", FieldTemperature, descriptorpb.FieldDescriptorProto_TYPE_FLOAT, "temperature"),
				field("lights_on", FieldLightsOn, descriptorpb.FieldDescriptorProto_TYPE_BOOL, "lightsOn"),
				field("fuel_level", FieldFuelLevel, descriptorpb.FieldDescriptorProto_TYPE_INT32, "fuelLevel"),
			},
		}},
	}

	fd, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	if err != nil {
		return nil, fmt.Errorf("build %s descriptor: %w", protoFile, err)
	}

	md := fd.Messages().ByName(messageName)
	if md == nil {
		return nil, fmt.Errorf("message %s not found in %s", messageName, protoFile)
	}

	fields := md.Fields()
	return &schema{
		message:     md,
		pressure:    fields.ByNumber(FieldPressure),
		tpms:        fields.ByNumber(FieldTPMS),
		temperature: fields.ByNumber(FieldTemperature),
		lightsOn:    fields.ByNumber(FieldLightsOn),
		fuelLevel:   fields.ByNumber(FieldFuelLevel),
	}, nil
}

func mustBuildSchema() *schema {
	s, err := buildSchema()
	if err != nil {
		panic(err)
	}
	return s
}
