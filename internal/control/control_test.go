package control

import "testing"

func newAltitude() *Controller {
	// TimeScale 100 with 100 ticks per step adds exactly the error to the
	// integral on every step.
	return New(Config{Gains: AltitudeGains, TimeScale: 100})
}

func TestStepFirstEvaluation(t *testing.T) {
	c := newAltitude()
	// integral = 50, so (400*50 + 10*50)/1000 + 5.
	if got := c.Step(50, 100); got != 25 {
		t.Errorf("Step(50) = %d, want 25", got)
	}
	if got := c.Integral(); got != 50 {
		t.Errorf("Integral() = %d, want 50", got)
	}
}

func TestSustainedPositiveErrorSaturatesHigh(t *testing.T) {
	c := newAltitude()
	var prev uint32
	for i := 0; i < 500; i++ {
		out := c.Step(20, 100)
		if out < prev {
			t.Fatalf("step %d: output fell from %d to %d under constant positive error", i, prev, out)
		}
		prev = out
	}
	if prev != MaxDuty {
		t.Errorf("output after sustained positive error = %d, want %d", prev, MaxDuty)
	}
}

func TestSustainedNegativeErrorSaturatesLow(t *testing.T) {
	c := newAltitude()
	var out uint32
	for i := 0; i < 500; i++ {
		out = c.Step(-20, 100)
	}
	if out != MinDuty {
		t.Errorf("output after sustained negative error = %d, want %d", out, MinDuty)
	}
}

func TestOutputAlwaysClamped(t *testing.T) {
	c := New(Config{Gains: Gains{P: 400, I: 10, D: 50, Bias: 5}, TimeScale: 100})
	errs := []int32{0, 1000, -1000, 2147483, -2147483, 7, -3, 180, -180}
	for round := 0; round < 50; round++ {
		for _, e := range errs {
			out := c.Step(e, uint64(round*37))
			if out < MinDuty || out > MaxDuty {
				t.Fatalf("Step(%d) = %d, outside [%d,%d]", e, out, MinDuty, MaxDuty)
			}
		}
	}
}

func TestIntegralWindsUpWhileSaturated(t *testing.T) {
	c := newAltitude()
	for i := 0; i < 100; i++ {
		c.Step(100, 100)
	}
	if got := c.Integral(); got != 100*100 {
		t.Errorf("Integral() = %d, want %d", got, 100*100)
	}
	c.ResetIntegral()
	if got := c.Integral(); got != 0 {
		t.Errorf("Integral() after reset = %d, want 0", got)
	}
}

// A step shorter than TimeScale ticks loses errors below TimeScale/dt, so
// callers step at most once per TimeScale ticks.
func TestIntegralTruncatesSmallSteps(t *testing.T) {
	c := New(Config{Gains: AltitudeGains, TimeScale: 200000})
	c.Step(10, 1000)
	if got := c.Integral(); got != 0 {
		t.Errorf("Integral() = %d, want 0 for a sub-unit step", got)
	}
}

func TestOneCentisecondStepKeepsEveryError(t *testing.T) {
	tests := []struct {
		name  string
		rate  uint64
		ticks uint64
	}{
		{"nanosecond clock", 1_000_000_000, 10_000_000},
		{"microsecond clock", 1_000_000, 10_000},
		{"millisecond clock", 1000, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, e := range []int32{1, -1, 5, -9} {
				c := New(Config{Gains: AltitudeGains, TimeScale: TimeScaleFor(tt.rate)})
				c.Step(e, tt.ticks)
				if got := c.Integral(); got != int64(e) {
					t.Errorf("Integral() after one centisecond at error %d = %d", e, got)
				}
				// The same time in ten slices drops errors below ten.
				c.ResetIntegral()
				for i := 0; i < 10; i++ {
					c.Step(e, tt.ticks/10)
				}
				if got := c.Integral(); got != 0 {
					t.Errorf("Integral() after ten slices at error %d = %d, want 0", e, got)
				}
			}
		})
	}
}

func TestDerivativeTerm(t *testing.T) {
	c := New(Config{Gains: Gains{D: 1000, Bias: 50}, TimeScale: 100})
	c.Step(0, 0)
	if got := c.Step(10, 0); got != 60 {
		t.Errorf("Step with rising error = %d, want 60", got)
	}
	if got := c.Step(10, 0); got != 50 {
		t.Errorf("Step with steady error = %d, want 50", got)
	}
}

func TestYawError(t *testing.T) {
	tests := []struct {
		actual, desired, want int32
	}{
		{350, 10, 20},
		{10, 350, -20},
		{0, 180, 180},
		{180, 0, -180},
		{0, 181, -179},
		{90, 90, 0},
		{359, 0, 1},
	}
	for _, tt := range tests {
		if got := YawError(tt.actual, tt.desired); got != tt.want {
			t.Errorf("YawError(%d, %d) = %d, want %d", tt.actual, tt.desired, got, tt.want)
		}
	}
}

func TestAltitudeError(t *testing.T) {
	if got := AltitudeError(30, 10); got != -20 {
		t.Errorf("AltitudeError(30, 10) = %d, want -20", got)
	}
}

func TestTimeScaleFor(t *testing.T) {
	if got := TimeScaleFor(20_000_000); got != 200000 {
		t.Errorf("TimeScaleFor(20MHz) = %d, want 200000", got)
	}
	if got := TimeScaleFor(10); got != 1 {
		t.Errorf("TimeScaleFor(10) = %d, want 1", got)
	}
}

func TestSetpointAdjusters(t *testing.T) {
	if got := IncreaseAltitude(95); got != AltitudeMax {
		t.Errorf("IncreaseAltitude(95) = %d", got)
	}
	if got := IncreaseAltitude(40); got != 50 {
		t.Errorf("IncreaseAltitude(40) = %d", got)
	}
	if got := DecreaseAltitude(0); got != AltitudeMin {
		t.Errorf("DecreaseAltitude(0) = %d", got)
	}
	if got := DecreaseAltitude(5); got != AltitudeMin {
		t.Errorf("DecreaseAltitude(5) = %d", got)
	}
	if got := IncreaseYaw(350); got != 5 {
		t.Errorf("IncreaseYaw(350) = %d", got)
	}
	if got := IncreaseYaw(345); got != 0 {
		t.Errorf("IncreaseYaw(345) = %d", got)
	}
	if got := DecreaseYaw(10); got != 355 {
		t.Errorf("DecreaseYaw(10) = %d", got)
	}
	if got := DecreaseYaw(15); got != 0 {
		t.Errorf("DecreaseYaw(15) = %d", got)
	}
}
