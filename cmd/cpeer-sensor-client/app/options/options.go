package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/sensor-emulator/pkg/log"
	"github.com/autopeer-io/sensor-emulator/pkg/options"
	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

type ClientOptions struct {
	Addr         string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Log          *log.Options
}

func NewClientOptions() *ClientOptions {
	l := log.NewOptions()
	l.OutputPaths = []string{"stderr"}
	return &ClientOptions{
		Addr:         "127.0.0.1:6666",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Log:          l,
	}
}

func (o *ClientOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("client")
	fs.StringVar(&o.Addr, "addr", o.Addr, "Address of the sensor emulator.")
	fs.DurationVar(&o.DialTimeout, "dial-timeout", o.DialTimeout, "Timeout for connecting to the emulator.")
	fs.DurationVar(&o.WriteTimeout, "write-timeout", o.WriteTimeout, "Deadline for writing one record.")

	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ClientOptions) Validate() error {
	errs := []error{}
	if err := options.ValidateAddress(o.Addr); err != nil {
		errs = append(errs, err)
	}
	if o.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--dial-timeout must be positive"))
	}
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// RecordOptions are the fields of the record sent by `send`.
type RecordOptions struct {
	Pressure    float32
	TPMS        float32
	Temperature float32
	LightsOn    bool
	FuelLevel   int32
	Count       int
	Interval    time.Duration
}

func NewRecordOptions() *RecordOptions {
	r := sensor.DefaultRecord()
	return &RecordOptions{
		Pressure:    r.Pressure,
		TPMS:        r.TPMS,
		Temperature: r.Temperature,
		LightsOn:    r.LightsOn,
		FuelLevel:   r.FuelLevel,
		Count:       1,
		Interval:    time.Second,
	}
}

func (o *RecordOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("record")
	fs.Float32Var(&o.Pressure, "pressure", o.Pressure, "Pressure sensor value (psi).")
	fs.Float32Var(&o.TPMS, "tpms", o.TPMS, "TPMS value.")
	fs.Float32Var(&o.Temperature, "temperature", o.Temperature, "Temperature sensor value (°C).")
	fs.BoolVar(&o.LightsOn, "lights", o.LightsOn, "Lights on.")
	fs.Int32Var(&o.FuelLevel, "fuel", o.FuelLevel, "Fuel level in percent.")
	fs.IntVar(&o.Count, "count", o.Count, "Number of records to send.")
	fs.DurationVar(&o.Interval, "interval", o.Interval, "Pause between records when --count > 1.")
	return fss
}

func (o *RecordOptions) Validate() error {
	errs := []error{}
	if o.FuelLevel < 0 || o.FuelLevel > 100 {
		errs = append(errs, fmt.Errorf("--fuel must be between 0 and 100, got %d", o.FuelLevel))
	}
	if o.Count < 1 {
		errs = append(errs, fmt.Errorf("--count must be at least 1"))
	}
	if o.Count > 1 && o.Interval <= 0 {
		errs = append(errs, fmt.Errorf("--interval must be positive"))
	}
	return utilerrors.NewAggregate(errs)
}

func (o *RecordOptions) Record() sensor.Record {
	return sensor.Record{
		Pressure:    o.Pressure,
		TPMS:        o.TPMS,
		Temperature: o.Temperature,
		LightsOn:    o.LightsOn,
		FuelLevel:   o.FuelLevel,
	}
}
