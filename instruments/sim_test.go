package instruments

import (
	"strings"
	"testing"
)

func TestSimPowerSupply_ProgramAndMeasure(t *testing.T) {
	psu := NewSimPowerSupply("psu1")

	if err := psu.SetVoltage(1, 5.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := psu.SetCurrent(1, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Output off measures zero.
	v, err := psu.Measure()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Errorf("measure with output off = %v, want 0", v)
	}

	if err := psu.SetOutput(1, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err = psu.Measure()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5.0 {
		t.Errorf("measure = %v, want 5.0", v)
	}
}

func TestSimPowerSupply_ChannelsIndependent(t *testing.T) {
	psu := NewSimPowerSupply("psu1")
	if err := psu.SetVoltage(1, 3.3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := psu.SetVoltage(2, 12.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if psu.Voltage(1) != 3.3 || psu.Voltage(2) != 12.0 {
		t.Errorf("channels = %v, %v, want 3.3, 12", psu.Voltage(1), psu.Voltage(2))
	}
}

func TestSimPowerSupply_RejectsBadChannel(t *testing.T) {
	psu := NewSimPowerSupply("psu1")
	if err := psu.SetVoltage(0, 1.0); err == nil {
		t.Error("expected error for channel 0, got none")
	}
}

func TestSimPowerSupply_Commands(t *testing.T) {
	psu := NewSimPowerSupply("psu1")

	idn, err := psu.Query("*IDN?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(idn, "SIM-PSU") || !strings.Contains(idn, "psu1") {
		t.Errorf("idn = %q", idn)
	}

	if err := psu.Write("VOLT 2.5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := psu.Query("VOLT?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2.5" {
		t.Errorf("VOLT? = %q, want 2.5", got)
	}

	if err := psu.Write("OUTP ON"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := psu.Query("OUTP?"); got != "1" {
		t.Errorf("OUTP? = %q, want 1", got)
	}

	if err := psu.Write("*RST"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if psu.Voltage(1) != 0 || psu.OutputOn(1) {
		t.Error("reset did not clear channel state")
	}

	if _, err := psu.Query("BOGUS?"); err == nil {
		t.Error("expected error for unknown command, got none")
	}
}

func TestSimDMM_Source(t *testing.T) {
	dmm := NewSimDMM("dmm1")

	v, err := dmm.Measure()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Errorf("default reading = %v, want 0", v)
	}

	readings := []float64{1.1, 2.2, 3.3}
	i := 0
	dmm.SetSource(func() float64 {
		v := readings[i%len(readings)]
		i++
		return v
	})

	for _, want := range readings {
		got, err := dmm.Measure()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("reading = %v, want %v", got, want)
		}
	}

	if got, _ := dmm.Query("READ?"); got != "1.1" {
		t.Errorf("READ? = %q, want 1.1 (source wraps)", got)
	}
}
