package sensor

import (
	"testing"

	"github.com/brutella/can"
)

func TestFromCANFrameSimulated(t *testing.T) {
	got, err := FromCANFrame(SimulatedFrame())
	if err != nil {
		t.Fatal(err)
	}

	want := Record{Pressure: 50.0, TPMS: 56.0}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFromCANFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   can.Frame
		want    Record
		wantErr bool
	}{
		{
			name:  "tyre frame",
			frame: TyreFrame(0x101, 31.5, -2),
			want:  Record{Pressure: 31.5, TPMS: -2},
		},
		{
			name:    "short payload",
			frame:   can.Frame{ID: SimulatedFrameID, Length: 4, Data: [8]uint8{0x42, 0x48, 0x00, 0x00}},
			wantErr: true,
		},
		{
			name:    "empty frame",
			frame:   can.Frame{ID: SimulatedFrameID},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromCANFrame(tt.frame)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimulatedFramePayload(t *testing.T) {
	f := SimulatedFrame()
	if f.ID != 0x100 {
		t.Errorf("ID = 0x%X, want 0x100", f.ID)
	}

	want := [8]uint8{0x42, 0x48, 0x00, 0x00, 0x42, 0x60, 0x00, 0x00}
	if f.Data != want {
		t.Errorf("payload = % X, want % X", f.Data, want)
	}
}
