package app

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/autopeer-io/sensor-emulator/pkg/sensor"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewSensorClientCommand(context.Background())
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestSendCommand(t *testing.T) {
	ln := listen(t)

	received := make(chan []sensor.Record, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var got []sensor.Record
		dec := sensor.NewDecoder(conn)
		for {
			r, err := dec.Decode()
			if err != nil {
				break
			}
			got = append(got, r)
		}
		received <- got
	}()

	stdout, _, err := execute(t, "send", "--addr", ln.Addr().String(),
		"--pressure", "32.5", "--tpms", "31", "--lights", "--fuel", "75", "--count", "2", "--interval", "1ms")
	if err != nil {
		t.Fatal(err)
	}

	want := sensor.Record{Pressure: 32.5, TPMS: 31, LightsOn: true, FuelLevel: 75}
	if diff := cmp.Diff([]sensor.Record{want, want}, <-received); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if n := strings.Count(stdout, "75%"); n != 2 {
		t.Errorf("printed %d rows, want 2:\n%s", n, stdout)
	}
}

func TestSendCommandValidation(t *testing.T) {
	if _, _, err := execute(t, "send", "--fuel", "150"); err == nil {
		t.Error("expected an error for fuel above 100")
	}
	if _, _, err := execute(t, "send", "--addr", "not-an-address"); err == nil {
		t.Error("expected an error for a bad address")
	}
}

func TestWatchCommand(t *testing.T) {
	ln := listen(t)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = sensor.WriteTo(conn, sensor.Record{Pressure: 50, TPMS: 56})
		_ = sensor.WriteTo(conn, sensor.Record{Temperature: 21.5, FuelLevel: 40})
		conn.Close()
	}()

	stdout, stderr, err := execute(t, "watch", "--addr", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PRESSURE", "56.0", "21.5", "40%"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, "Emulator closed the connection") {
		t.Errorf("stderr = %q", stderr)
	}
}
