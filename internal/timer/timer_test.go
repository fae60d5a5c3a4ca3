package timer

import "testing"

// recorder collects phase changes and expiry firings for assertions.
type recorder struct {
	phases  []Phase
	expired int
}

func (r *recorder) config(think, respond int) Config {
	return Config{
		ThinkTimeSeconds:    think,
		ResponseTimeSeconds: respond,
		OnPhaseChange:       func(p Phase) { r.phases = append(r.phases, p) },
		OnTimeExpired:       func() { r.expired++ },
	}
}

func TestStart_RejectsZeroResponseWindow(t *testing.T) {
	c := New()
	if err := c.Start(Config{ThinkTimeSeconds: 5}); err != ErrNoResponseWindow {
		t.Fatalf("Start err = %v, want ErrNoResponseWindow", err)
	}
	if c.Phase() != PhaseIdle {
		t.Errorf("Phase = %v, want idle after rejected start", c.Phase())
	}
}

func TestStart_ZeroThinkTimeEntersRespondingDirectly(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(0, 10)); err != nil {
		t.Fatal(err)
	}

	if c.Phase() != PhaseResponding {
		t.Errorf("Phase = %v, want responding", c.Phase())
	}
	if c.Remaining() != 10 {
		t.Errorf("Remaining = %d, want 10", c.Remaining())
	}
	if len(r.phases) != 1 || r.phases[0] != PhaseResponding {
		t.Errorf("phases = %v, want [responding]", r.phases)
	}
}

func TestTick_ThinkWindowObservedForExactlyNTicks(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(2, 5)); err != nil {
		t.Fatal(err)
	}

	// Two full ticks in thinking; the second crosses into responding.
	c.Tick()
	if c.Phase() != PhaseThinking || c.Remaining() != 1 {
		t.Fatalf("after tick 1: phase=%v remaining=%d", c.Phase(), c.Remaining())
	}
	c.Tick()
	if c.Phase() != PhaseResponding {
		t.Fatalf("after tick 2: phase=%v, want responding", c.Phase())
	}
	if c.Remaining() != 5 {
		t.Errorf("Remaining = %d, want full response window 5", c.Remaining())
	}
}

func TestTick_ResponseWindowExpiresAfterExactlyNTicks(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(0, 3)); err != nil {
		t.Fatal(err)
	}

	c.Tick()
	c.Tick()
	if c.Phase() != PhaseResponding {
		t.Fatalf("expired one tick early at phase %v", c.Phase())
	}
	c.Tick()
	if c.Phase() != PhaseExpired {
		t.Fatalf("phase = %v after 3 ticks, want expired", c.Phase())
	}
	if r.expired != 1 {
		t.Errorf("OnTimeExpired fired %d times, want 1", r.expired)
	}

	// Further ticks are ignored.
	c.Tick()
	if r.expired != 1 {
		t.Errorf("OnTimeExpired fired %d times after extra tick, want 1", r.expired)
	}
}

func TestFullNaturalSequence(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(2, 5)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 7; i++ {
		c.Tick()
	}

	want := []Phase{PhaseThinking, PhaseResponding, PhaseExpired}
	if len(r.phases) != len(want) {
		t.Fatalf("phases = %v, want %v", r.phases, want)
	}
	for i := range want {
		if r.phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", r.phases, want)
		}
	}
	if r.expired != 1 {
		t.Errorf("expired count = %d, want 1", r.expired)
	}
}

func TestSkipThinking_GrantsFullResponseWindow(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(5, 8)); err != nil {
		t.Fatal(err)
	}

	c.Tick()
	c.Tick()
	c.SkipThinking()

	if c.Phase() != PhaseResponding {
		t.Fatalf("phase = %v, want responding", c.Phase())
	}
	if c.Remaining() != 8 {
		t.Errorf("Remaining = %d, want untruncated 8", c.Remaining())
	}
}

func TestSkipThinking_NoOpOutsideThinking(t *testing.T) {
	cases := []struct {
		name  string
		setup func(c *Controller, r *recorder)
	}{
		{"idle", func(c *Controller, r *recorder) {}},
		{"responding", func(c *Controller, r *recorder) {
			_ = c.Start(r.config(0, 5))
		}},
		{"expired", func(c *Controller, r *recorder) {
			_ = c.Start(r.config(0, 1))
			c.Tick()
		}},
		{"stopped", func(c *Controller, r *recorder) {
			_ = c.Start(r.config(3, 5))
			c.Stop()
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r recorder
			c := New()
			tc.setup(c, &r)

			before := c.Phase()
			remBefore := c.Remaining()
			c.SkipThinking()
			if c.Phase() != before || c.Remaining() != remBefore {
				t.Errorf("SkipThinking changed state in %s: phase %v→%v", tc.name, before, c.Phase())
			}
		})
	}
}

func TestStop_HaltsWithoutExpiry(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(0, 5)); err != nil {
		t.Fatal(err)
	}

	c.Tick()
	c.Stop()

	if c.Phase() != PhaseStopped {
		t.Fatalf("phase = %v, want stopped", c.Phase())
	}
	if r.expired != 0 {
		t.Errorf("expiry fired on manual stop")
	}

	// Idempotent, and ticks after stop do nothing.
	c.Stop()
	c.Tick()
	if c.Phase() != PhaseStopped || r.expired != 0 {
		t.Errorf("state changed after stop: phase=%v expired=%d", c.Phase(), r.expired)
	}
}

func TestStop_NoOpAfterExpiry(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(0, 1)); err != nil {
		t.Fatal(err)
	}
	c.Tick()

	c.Stop()
	if c.Phase() != PhaseExpired {
		t.Errorf("Stop overwrote expired with %v", c.Phase())
	}
}

func TestReentrantCallbackCannotDoubleFire(t *testing.T) {
	var expired int
	c := New()
	cfg := Config{
		ResponseTimeSeconds: 1,
		OnTimeExpired: func() {
			expired++
			// A confused host reacting to expiry by ticking or stopping
			// must not re-enter the transition.
			c.Tick()
			c.Stop()
			c.SkipThinking()
		},
	}
	if err := c.Start(cfg); err != nil {
		t.Fatal(err)
	}

	c.Tick()
	if expired != 1 {
		t.Fatalf("expired fired %d times, want 1", expired)
	}
	if c.Phase() != PhaseExpired {
		t.Errorf("phase = %v, want expired", c.Phase())
	}
}

func TestStart_ResetsPriorCountdown(t *testing.T) {
	var r recorder
	c := New()
	if err := c.Start(r.config(0, 5)); err != nil {
		t.Fatal(err)
	}
	c.Tick()

	var r2 recorder
	if err := c.Start(r2.config(3, 7)); err != nil {
		t.Fatal(err)
	}
	if c.Phase() != PhaseThinking || c.Remaining() != 3 {
		t.Errorf("restart: phase=%v remaining=%d, want thinking/3", c.Phase(), c.Remaining())
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseIdle:       "idle",
		PhaseThinking:   "thinking",
		PhaseResponding: "responding",
		PhaseExpired:    "expired",
		PhaseStopped:    "stopped",
	}
	for p, want := range cases {
		if p.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(p), p.String(), want)
		}
	}
}
