// Package instruments provides simulated bench instruments. They satisfy
// the runtime capability interfaces and answer a small SCPI-style command
// set, enough to run sequences without hardware attached.
package instruments

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

type channelState struct {
	voltage float64
	current float64
	output  bool
}

// SimPowerSupply models a multi-channel programmable supply. Measure
// returns the programmed voltage of channel 1 plus optional gaussian noise.
type SimPowerSupply struct {
	mu       sync.Mutex
	name     string
	channels map[int]*channelState
	Noise    float64
}

func NewSimPowerSupply(name string) *SimPowerSupply {
	return &SimPowerSupply{
		name:     name,
		channels: make(map[int]*channelState),
	}
}

func (p *SimPowerSupply) chanState(channel int) *channelState {
	st, ok := p.channels[channel]
	if !ok {
		st = &channelState{}
		p.channels[channel] = st
	}
	return st
}

func (p *SimPowerSupply) SetVoltage(channel int, volts float64) error {
	if channel < 1 {
		return fmt.Errorf("invalid channel %d", channel)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chanState(channel).voltage = volts
	return nil
}

func (p *SimPowerSupply) SetCurrent(channel int, amps float64) error {
	if channel < 1 {
		return fmt.Errorf("invalid channel %d", channel)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chanState(channel).current = amps
	return nil
}

func (p *SimPowerSupply) SetOutput(channel int, on bool) error {
	if channel < 1 {
		return fmt.Errorf("invalid channel %d", channel)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chanState(channel).output = on
	return nil
}

// Measure reads back channel 1. An output that is off measures zero.
func (p *SimPowerSupply) Measure() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.chanState(1)
	if !st.output {
		return 0, nil
	}
	v := st.voltage
	if p.Noise > 0 {
		v += rand.NormFloat64() * p.Noise
	}
	return v, nil
}

// Voltage reports the programmed setpoint for a channel.
func (p *SimPowerSupply) Voltage(channel int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chanState(channel).voltage
}

func (p *SimPowerSupply) Current(channel int) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chanState(channel).current
}

func (p *SimPowerSupply) OutputOn(channel int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chanState(channel).output
}

func (p *SimPowerSupply) Write(cmd string) error {
	_, err := p.dispatch(cmd)
	return err
}

func (p *SimPowerSupply) Query(cmd string) (string, error) {
	return p.dispatch(cmd)
}

// dispatch answers a SCPI-flavored subset: *IDN?, VOLT/CURR/OUTP with an
// optional "(@n)" channel suffix.
func (p *SimPowerSupply) dispatch(cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)
	upper := strings.ToUpper(cmd)
	switch {
	case upper == "*IDN?":
		return fmt.Sprintf("benchflow,SIM-PSU,%s,1.0", p.name), nil
	case upper == "*RST":
		p.mu.Lock()
		p.channels = make(map[int]*channelState)
		p.mu.Unlock()
		return "", nil
	case strings.HasPrefix(upper, "VOLT?"):
		return strconv.FormatFloat(p.Voltage(1), 'g', -1, 64), nil
	case strings.HasPrefix(upper, "CURR?"):
		return strconv.FormatFloat(p.Current(1), 'g', -1, 64), nil
	case strings.HasPrefix(upper, "OUTP?"):
		if p.OutputOn(1) {
			return "1", nil
		}
		return "0", nil
	case strings.HasPrefix(upper, "VOLT "):
		v, err := strconv.ParseFloat(strings.TrimSpace(cmd[5:]), 64)
		if err != nil {
			return "", fmt.Errorf("bad voltage argument in %q", cmd)
		}
		return "", p.SetVoltage(1, v)
	case strings.HasPrefix(upper, "CURR "):
		v, err := strconv.ParseFloat(strings.TrimSpace(cmd[5:]), 64)
		if err != nil {
			return "", fmt.Errorf("bad current argument in %q", cmd)
		}
		return "", p.SetCurrent(1, v)
	case strings.HasPrefix(upper, "OUTP "):
		arg := strings.TrimSpace(upper[5:])
		return "", p.SetOutput(1, arg == "ON" || arg == "1")
	}
	return "", fmt.Errorf("unrecognized command %q", cmd)
}

// SimDMM is a multimeter whose readings come from a configurable source
// function, defaulting to a steady zero.
type SimDMM struct {
	mu      sync.Mutex
	name    string
	source  func() float64
	lastVal float64
}

func NewSimDMM(name string) *SimDMM {
	return &SimDMM{name: name, source: func() float64 { return 0 }}
}

// SetSource replaces the reading function. Useful for scripted test
// waveforms.
func (d *SimDMM) SetSource(f func() float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f != nil {
		d.source = f
	}
}

func (d *SimDMM) Measure() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastVal = d.source()
	return d.lastVal, nil
}

func (d *SimDMM) Write(cmd string) error {
	upper := strings.ToUpper(strings.TrimSpace(cmd))
	if upper == "*RST" {
		d.SetSource(func() float64 { return 0 })
		return nil
	}
	return fmt.Errorf("unrecognized command %q", cmd)
}

func (d *SimDMM) Query(cmd string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(cmd))
	switch upper {
	case "*IDN?":
		return fmt.Sprintf("benchflow,SIM-DMM,%s,1.0", d.name), nil
	case "READ?", "MEAS?":
		v, err := d.Measure()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("unrecognized command %q", cmd)
}
