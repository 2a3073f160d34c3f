package sim

import (
	"context"
	"testing"
	"time"

	"github.com/relabs-tech/heli_controller/internal/circbuf"
	"github.com/relabs-tech/heli_controller/internal/control"
	"github.com/relabs-tech/heli_controller/internal/yaw"
)

type countingWriter struct {
	n    int
	last uint32
}

func (w *countingWriter) Write(v uint32) { w.n++; w.last = v }

func quiet() Config {
	cfg := DefaultConfig()
	cfg.Noise = 0
	return cfg
}

func TestDisabledRigStaysLanded(t *testing.T) {
	w := &countingWriter{}
	r := NewRig(quiet(), w, yaw.NewEstimator())
	r.SetDuty(control.Main, 98)
	for i := 0; i < 100; i++ {
		r.Step(time.Millisecond)
	}
	if r.Altitude() != 0 {
		t.Errorf("Altitude() = %d with rotors disabled", r.Altitude())
	}
	if w.n != 500 {
		t.Errorf("wrote %d samples in 100ms at 5kHz, want 500", w.n)
	}
	if w.last != 2400 {
		t.Errorf("landed sample = %d, want 2400", w.last)
	}
}

func TestClimbLowersADC(t *testing.T) {
	w := &countingWriter{}
	r := NewRig(quiet(), w, yaw.NewEstimator())
	r.Enable()
	r.SetDuty(control.Main, 60)
	r.SetDuty(control.Tail, 48)
	for i := 0; i < 1000; i++ {
		r.Step(time.Millisecond)
	}
	// 0.8 * (60-35) %/s for one second.
	if got := r.Altitude(); got != 20 {
		t.Errorf("Altitude() = %d, want 20", got)
	}
	if w.last != 2400-240 {
		t.Errorf("sample at 20%% = %d, want %d", w.last, 2400-240)
	}
}

func TestYawEdgesReachEstimator(t *testing.T) {
	buf, err := circbuf.New(20)
	if err != nil {
		t.Fatal(err)
	}
	est := yaw.NewEstimator()
	r := NewRig(quiet(), buf, est)
	est.Seed(r.Pins())
	r.Enable()
	r.SetDuty(control.Main, 40)
	r.SetDuty(control.Tail, 80)

	for i := 0; i < 20000 && !est.ReferenceFound(); i++ {
		r.Step(time.Millisecond)
	}
	if !est.ReferenceFound() {
		t.Fatalf("reference never fired; heading %d", r.Heading())
	}
	if got := est.ReferenceAngle(); got < 28 || got > 30 {
		t.Errorf("ReferenceAngle() = %d, want about 30", got)
	}
	diff := int32(est.Angle()) - r.Heading()
	if diff < -2 || diff > 2 {
		t.Errorf("estimator angle %d vs plant heading %d", est.Angle(), r.Heading())
	}
}

func TestNoiseStaysBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = 3
	w := &countingWriter{}
	r := NewRig(cfg, w, yaw.NewEstimator())
	for i := 0; i < 200; i++ {
		r.Prime(1)
		if w.last < 2397 || w.last > 2403 {
			t.Fatalf("noisy sample %d outside 2400±3", w.last)
		}
	}
}

func TestPilotQueuesPresses(t *testing.T) {
	var p Pilot
	p.Press(Up)
	p.Press(Up)
	if !p.UpPressed() || !p.UpPressed() {
		t.Fatal("queued presses not delivered")
	}
	if p.UpPressed() {
		t.Error("more presses delivered than queued")
	}
	if p.LeftPressed() {
		t.Error("unpressed button reported")
	}
	p.SetSwitch(true)
	if !p.SwitchUp() {
		t.Error("switch not up")
	}
}

func TestPilotPlay(t *testing.T) {
	var p Pilot
	cues := []Cue{
		{time.Millisecond, "up", func(p *Pilot) { p.SetSwitch(true) }},
		{time.Millisecond, "press", func(p *Pilot) { p.Press(Right) }},
	}
	if err := p.Play(context.Background(), cues, 1); err != nil {
		t.Fatal(err)
	}
	if !p.SwitchUp() || !p.RightPressed() {
		t.Error("cues not applied")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Play(ctx, DemoFlight(), 1); err != context.Canceled {
		t.Errorf("Play() on cancelled ctx = %v", err)
	}
}
