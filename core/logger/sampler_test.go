package logger

import (
	"io"
	"log/slog"
	"testing"
)

func TestRatioSamplerWindow(t *testing.T) {
	s := newRatioSampler(2, 5)
	want := []bool{true, true, false, false, false, true, true, false, false, false}
	for i, expected := range want {
		if got := s.Allow(); got != expected {
			t.Fatalf("event %d: Allow() = %v, expected %v", i+1, got, expected)
		}
	}
}

func TestRatioSamplerZeroRatioPassesEverything(t *testing.T) {
	s := newRatioSampler(0, 0)
	for i := 0; i < 10; i++ {
		if !s.Allow() {
			t.Fatalf("event %d was dropped with sampling disabled", i+1)
		}
	}
}

func TestRatioSamplerSetRestartsWindow(t *testing.T) {
	s := newRatioSampler(1, 3)
	s.Allow()
	s.Allow()
	s.Set(1, 3)
	if !s.Allow() {
		t.Fatal("first event after Set should pass")
	}
	if s.Allow() {
		t.Fatal("second event after Set should be dropped")
	}
}

func TestRatioSamplerPassClampedToWindow(t *testing.T) {
	s := newRatioSampler(10, 3)
	for i := 0; i < 6; i++ {
		if !s.Allow() {
			t.Fatalf("event %d dropped with pass >= window", i+1)
		}
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := []struct {
		spec string
		num  int
		den  int
	}{
		{"", 0, 0},
		{"1/50", 1, 50},
		{" 2 / 10 ", 2, 10},
		{"25", 1, 25},
		{"0", 0, 0},
		{"-3", 0, 0},
		{"x/y", 0, 0},
		{"garbage", 0, 0},
	}
	for _, tc := range cases {
		num, den := parseRatioSpec(tc.spec)
		if num != tc.num || den != tc.den {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, expected %d/%d", tc.spec, num, den, tc.num, tc.den)
		}
	}
}

func TestShouldSampleDebugHonorsRatio(t *testing.T) {
	savedTrace := traceOverride
	defer func() {
		traceOverride = savedTrace
		debugSampler.Set(1, 50)
	}()

	traceOverride = false
	debugSampler.Set(1, 4)
	passed := 0
	for i := 0; i < 8; i++ {
		if ShouldSampleDebug() {
			passed++
		}
	}
	if passed != 2 {
		t.Fatalf("passed %d of 8 events, expected 2", passed)
	}

	traceOverride = true
	for i := 0; i < 8; i++ {
		if !ShouldSampleDebug() {
			t.Fatal("trace override must bypass sampling")
		}
	}
}

func TestFromContextPrefersContextLogger(t *testing.T) {
	scoped := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := WithLogger(Background(), scoped)
	if got := FromContext(ctx); got != scoped {
		t.Fatal("expected the logger stored in context")
	}
	if got := FromContext(Background()); got != L {
		t.Fatal("expected the global logger without a context logger")
	}
}
