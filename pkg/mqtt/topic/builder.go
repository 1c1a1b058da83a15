package topic

import (
	"fmt"
)

// Topic segments shared by the emulator and anything that consumes its mirror.
// Changing them breaks existing subscribers.
const (
	// SuffixSensors carries mirrored records (Emulator -> Broker).
	// Structure: {root}/sensors/{direction}/{emulatorID}
	SuffixSensors = "sensors"

	// SuffixInject carries records to be sent to the TCP client (Broker -> Emulator).
	// Structure: {root}/inject/{emulatorID}
	SuffixInject = "inject"
)

// Direction tells where a mirrored record came from.
type Direction string

const (
	// DirectionReceived marks records read from the TCP client.
	DirectionReceived Direction = "received"
	// DirectionSent marks records written to the TCP client by an operator.
	DirectionSent Direction = "sent"
	// DirectionSimulated marks records produced by the CAN simulator.
	DirectionSimulated Direction = "simulated"
)

// TopicBuilder constructs MQTT topic strings under one root namespace.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "emulator/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: root}
}

// Root returns the namespace the builder was created with.
func (b *TopicBuilder) Root() string {
	return b.root
}

// Sensors returns the topic a record of the given direction is mirrored to.
func (b *TopicBuilder) Sensors(dir Direction, emulatorID string) string {
	return b.build(SuffixSensors+"/"+string(dir), emulatorID)
}

// SensorsWildcard matches every mirrored record of every emulator.
// Result: {root}/sensors/#
func (b *TopicBuilder) SensorsWildcard() string {
	return fmt.Sprintf("%s/%s/%s", b.root, SuffixSensors, MultiWildcard)
}

// Inject returns the topic an emulator listens on for records to forward.
func (b *TopicBuilder) Inject(emulatorID string) string {
	return b.build(SuffixInject, emulatorID)
}

// InjectWildcard matches the inject topic of every emulator.
// Result: {root}/inject/+
func (b *TopicBuilder) InjectWildcard() string {
	return b.build(SuffixInject, Wildcard)
}

// build joins {root}/{suffix}/{identifier}.
func (b *TopicBuilder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
