package capture

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptions_Normalize_Defaults(t *testing.T) {
	// Zero-value options should get the firmware defaults applied
	opts := PortOptions{}
	got, err := opts.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", got.BaudRate)
	}
	if got.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", got.DataBits)
	}
	if got.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", got.StopBits)
	}
	if got.Parity != "N" {
		t.Errorf("Parity = %q, want %q", got.Parity, "N")
	}
}

func TestPortOptions_Normalize_ExplicitValues(t *testing.T) {
	opts := PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"}
	got, err := opts.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", got.BaudRate)
	}
	if got.DataBits != 7 {
		t.Errorf("DataBits = %d, want 7", got.DataBits)
	}
	if got.StopBits != 2 {
		t.Errorf("StopBits = %d, want 2", got.StopBits)
	}
	if got.Parity != "E" {
		t.Errorf("Parity = %q, want %q", got.Parity, "E")
	}
}

func TestPortOptions_Normalize_NegativeBaudRate(t *testing.T) {
	opts := PortOptions{BaudRate: -5}
	got, err := opts.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.BaudRate != 115200 {
		t.Errorf("negative baud rate should default to 115200, got %d", got.BaudRate)
	}
}

func TestPortOptions_Normalize_InvalidDataBits(t *testing.T) {
	tests := []struct {
		name     string
		dataBits int
	}{
		{"too low", 4},
		{"too high", 9},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := PortOptions{DataBits: tc.dataBits}
			_, err := opts.Normalize()
			if err == nil {
				t.Errorf("expected error for data bits %d, got nil", tc.dataBits)
			}
		})
	}
}

func TestPortOptions_Normalize_ValidDataBits(t *testing.T) {
	for bits := 5; bits <= 8; bits++ {
		opts := PortOptions{DataBits: bits}
		got, err := opts.Normalize()
		if err != nil {
			t.Errorf("Normalize() with data bits %d: unexpected error %v", bits, err)
		}
		if got.DataBits != bits {
			t.Errorf("Normalize() with data bits %d: got %d", bits, got.DataBits)
		}
	}
}

func TestPortOptions_Normalize_InvalidStopBits(t *testing.T) {
	opts := PortOptions{StopBits: 3}
	_, err := opts.Normalize()
	if err == nil {
		t.Error("expected error for stop bits 3, got nil")
	}
}

func TestPortOptions_Normalize_ParityVariations(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"N", "N"},
		{"n", "N"},
		{"NONE", "N"},
		{"none", "N"},
		{"E", "E"},
		{"e", "E"},
		{"EVEN", "E"},
		{"even", "E"},
		{"O", "O"},
		{"o", "O"},
		{"ODD", "O"},
		{"odd", "O"},
		{"  N  ", "N"}, // whitespace
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			opts := PortOptions{Parity: tc.input}
			got, err := opts.Normalize()
			if err != nil {
				t.Fatalf("Normalize() with parity %q: unexpected error %v", tc.input, err)
			}
			if got.Parity != tc.want {
				t.Errorf("Normalize() with parity %q: got %q, want %q", tc.input, got.Parity, tc.want)
			}
		})
	}
}

func TestPortOptions_Normalize_InvalidParity(t *testing.T) {
	opts := PortOptions{Parity: "X"}
	_, err := opts.Normalize()
	if err == nil {
		t.Error("expected error for parity X, got nil")
	}
}

func TestPortOptions_Equal(t *testing.T) {
	a := PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}
	b := PortOptions{}

	if !a.Equal(b) {
		t.Error("default options should equal explicit defaults")
	}
}

func TestPortOptions_Equal_DifferentBaudRate(t *testing.T) {
	a := PortOptions{BaudRate: 9600}
	b := PortOptions{BaudRate: 115200}

	if a.Equal(b) {
		t.Error("expected not equal")
	}
}

func TestPortOptions_Equal_Invalid(t *testing.T) {
	a := PortOptions{Parity: "X"}
	b := PortOptions{}

	if a.Equal(b) {
		t.Error("invalid options should never compare equal")
	}
}

func TestPortOptions_SerialMode_Default(t *testing.T) {
	opts := PortOptions{}
	mode, err := opts.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", mode.BaudRate)
	}
	if mode.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", mode.DataBits)
	}
	if mode.StopBits != serial.OneStopBit {
		t.Errorf("StopBits = %v, want OneStopBit", mode.StopBits)
	}
	if mode.Parity != serial.NoParity {
		t.Errorf("Parity = %v, want NoParity", mode.Parity)
	}
}

func TestPortOptions_SerialMode_TwoStopBits(t *testing.T) {
	// Two stop bits must map to the TwoStopBits enum value, not the enum
	// value that happens to equal 2 numerically.
	opts := PortOptions{StopBits: 2}
	mode, err := opts.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.StopBits != serial.TwoStopBits {
		t.Errorf("StopBits = %v, want TwoStopBits", mode.StopBits)
	}
	if mode.StopBits == serial.OnePointFiveStopBits {
		t.Error("StopBits mapped to OnePointFiveStopBits")
	}
}

func TestPortOptions_SerialMode_EvenParity(t *testing.T) {
	opts := PortOptions{Parity: "E"}
	mode, err := opts.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("Parity = %v, want EvenParity", mode.Parity)
	}
}

func TestPortOptions_SerialMode_OddParity(t *testing.T) {
	opts := PortOptions{Parity: "O"}
	mode, err := opts.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.Parity != serial.OddParity {
		t.Errorf("Parity = %v, want OddParity", mode.Parity)
	}
}

func TestPortOptions_SerialMode_InvalidOptions(t *testing.T) {
	opts := PortOptions{DataBits: 9}
	_, err := opts.SerialMode()
	if err == nil {
		t.Error("expected error for invalid options, got nil")
	}
}
