package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds the emulator metrics and the process/Go collectors.
// It is served on the control API's /metrics endpoint.
var Registry = prometheus.NewRegistry()

var (
	// ServerListening is 1 while the sensor stream server accepts clients.
	ServerListening = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sensor_emulator_server_listening",
			Help: "Whether the sensor stream server is listening (1) or idle (0).",
		},
	)

	// ActiveConnections is 1 while a client is attached.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sensor_emulator_active_connections",
			Help: "Number of attached sensor stream clients.",
		},
	)

	// ConnectionsAccepted counts accepted clients, including replaced ones.
	ConnectionsAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sensor_emulator_connections_accepted_total",
			Help: "Total number of accepted sensor stream clients.",
		},
	)

	// FramesReceived counts records decoded from the client.
	FramesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sensor_emulator_frames_received_total",
			Help: "Total number of records received from the client.",
		},
	)

	// FramesSent counts send attempts by source (operator, simulator, inject) and status (success, failed).
	FramesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_emulator_frames_sent_total",
			Help: "Total number of records sent to the client.",
		},
		[]string{"source", "status"},
	)

	// DecodeErrors counts receive loops that ended on a malformed frame.
	DecodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sensor_emulator_decode_errors_total",
			Help: "Total number of malformed or truncated frames.",
		},
	)

	// SendLatency records the time spent writing one frame.
	SendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sensor_emulator_send_latency_seconds",
			Help:    "Latency of writing one record frame to the client.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CANFramesSimulated counts frames synthesized by the CAN simulator.
	CANFramesSimulated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sensor_emulator_can_frames_simulated_total",
			Help: "Total number of CAN frames produced by the simulator.",
		},
	)

	// MirrorDropped counts records the MQTT mirror could not queue or publish.
	MirrorDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sensor_emulator_mirror_dropped_total",
			Help: "Total number of records dropped by the MQTT mirror.",
		},
		[]string{"reason"},
	)
)

// Status label values for FramesSent.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ServerListening,
		ActiveConnections,
		ConnectionsAccepted,
		FramesReceived,
		FramesSent,
		DecodeErrors,
		SendLatency,
		CANFramesSimulated,
		MirrorDropped,
	)
}
