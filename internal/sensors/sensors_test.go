package sensors

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/heli_controller/internal/control"
	"github.com/relabs-tech/heli_controller/internal/yaw"
)

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(3, false)
	steps := []struct {
		raw   bool
		state bool
	}{
		{true, false},
		{true, false},
		{false, false}, // bounce resets the count
		{true, false},
		{true, false},
		{true, true},
		{true, true},
	}
	for i, s := range steps {
		d.Update(s.raw)
		if d.State() != s.state {
			t.Fatalf("step %d: State() = %v, want %v", i, d.State(), s.state)
		}
	}
	if !d.Pushed() {
		t.Error("Pushed() = false after debounced press")
	}
	if d.Pushed() {
		t.Error("Pushed() reported the same press twice")
	}
}

func TestDebouncerReleaseIsNotPush(t *testing.T) {
	d := NewDebouncer(1, true)
	d.Update(false)
	if d.Pushed() {
		t.Error("release reported as push")
	}
}

type fakeLevel struct{ l gpio.Level }

func (f *fakeLevel) Read() gpio.Level { return f.l }

func TestControls(t *testing.T) {
	up := &fakeLevel{gpio.High}
	down := &fakeLevel{gpio.High}
	left := &fakeLevel{gpio.High}
	right := &fakeLevel{gpio.High}
	sw := &fakeLevel{gpio.High}
	c := NewControls(up, down, left, right, sw)

	if !c.SwitchUp() {
		t.Fatal("switch read high at start should be up without polling")
	}

	up.l = gpio.Low
	sw.l = gpio.Low
	for i := 0; i < DebouncePolls; i++ {
		c.Poll()
	}
	if !c.UpPressed() {
		t.Error("UpPressed() = false after held press")
	}
	if c.UpPressed() {
		t.Error("UpPressed() repeated")
	}
	if c.DownPressed() || c.LeftPressed() || c.RightPressed() {
		t.Error("idle buttons reported pressed")
	}
	if c.SwitchUp() {
		t.Error("switch still up after going low")
	}
}

type fakePWM struct {
	duty gpio.Duty
	freq physic.Frequency
	low  int
}

func (p *fakePWM) PWM(d gpio.Duty, f physic.Frequency) error {
	p.duty, p.freq = d, f
	return nil
}

func (p *fakePWM) Out(l gpio.Level) error {
	p.duty = 0
	p.low++
	return nil
}

func TestRotors(t *testing.T) {
	m, tl := &fakePWM{}, &fakePWM{}
	r := NewRotors(m, tl, 200*physic.Hertz)

	if err := r.SetDuty(control.Main, 50); err != nil {
		t.Fatal(err)
	}
	if m.duty != 0 {
		t.Errorf("disabled rotor driven at %v", m.duty)
	}

	r.Enable()
	if m.duty != gpio.DutyHalf {
		t.Errorf("main duty after enable = %v, want %v", m.duty, gpio.DutyHalf)
	}
	if m.freq != 200*physic.Hertz {
		t.Errorf("main freq = %v", m.freq)
	}
	if err := r.SetDuty(control.Tail, 100); err != nil {
		t.Fatal(err)
	}
	if tl.duty != gpio.DutyMax {
		t.Errorf("tail duty = %v, want max", tl.duty)
	}

	r.Disable()
	if r.Enabled() || m.low == 0 || tl.low == 0 {
		t.Error("Disable did not drive both outputs low")
	}
	if r.Duty(control.Tail) != 100 {
		t.Errorf("Duty(Tail) = %d", r.Duty(control.Tail))
	}
}

type edgeLevel struct {
	mu    sync.Mutex
	l     gpio.Level
	edges chan struct{}
}

func newEdgeLevel() *edgeLevel { return &edgeLevel{edges: make(chan struct{}, 16)} }

func (e *edgeLevel) Read() gpio.Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.l
}

func (e *edgeLevel) set(l gpio.Level) {
	e.mu.Lock()
	e.l = l
	e.mu.Unlock()
	e.edges <- struct{}{}
}

func (e *edgeLevel) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-e.edges:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestEncoderFeedsEstimator(t *testing.T) {
	a, b, ref := newEdgeLevel(), newEdgeLevel(), newEdgeLevel()
	est := yaw.NewEstimator()
	enc := NewEncoder(a, b, ref, est)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var stopped atomic.Bool
	go func() {
		enc.Run(ctx)
		stopped.Store(true)
	}()
	time.Sleep(20 * time.Millisecond)

	// 00 -> 10 -> 11 -> 01 -> 00 is four positive steps.
	b.set(gpio.High)
	waitFor(t, func() bool { return est.Notches() == 1 })
	a.set(gpio.High)
	waitFor(t, func() bool { return est.Notches() == 2 })
	b.set(gpio.Low)
	waitFor(t, func() bool { return est.Notches() == 3 })
	a.set(gpio.Low)
	waitFor(t, func() bool { return est.Notches() == 4 })

	ref.set(gpio.Low)
	waitFor(t, est.ReferenceFound)
	if got := est.ReferenceAngle(); got != 4*359/448 {
		t.Errorf("ReferenceAngle() = %d", got)
	}

	cancel()
	waitFor(t, stopped.Load)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestToCounts(t *testing.T) {
	tests := []struct {
		v    physic.ElectricPotential
		want uint32
	}{
		{physic.Volt, 1200},
		{1500 * physic.MilliVolt, 1800},
		{-physic.MilliVolt, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := toCounts(tt.v, 1200); got != tt.want {
			t.Errorf("toCounts(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
	a := &ADCSampler{oneVolt: 1200}
	if got := a.Counts(analog.Sample{V: 2 * physic.Volt}); got != 2400 {
		t.Errorf("Counts(2V) = %d, want 2400", got)
	}
}
