package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler passes the first pass events out of every window, then
// cycles. A zero ratio disables sampling entirely: every event passes.
type ratioSampler struct {
	// high 32 bits hold pass, low 32 bits hold window
	ratio   atomic.Uint64
	counter atomic.Uint64
}

func newRatioSampler(pass, window int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(pass, window)
	return s
}

// Set replaces the ratio and restarts the window.
func (s *ratioSampler) Set(pass, window int) {
	if pass <= 0 || window <= 0 {
		s.ratio.Store(0)
		s.counter.Store(0)
		return
	}
	if pass > window {
		pass = window
	}
	s.ratio.Store(uint64(pass)<<32 | uint64(uint32(window)))
	s.counter.Store(0)
}

// Allow reports whether the current event falls inside the pass band.
func (s *ratioSampler) Allow() bool {
	packed := s.ratio.Load()
	if packed == 0 {
		return true
	}
	pass := packed >> 32
	window := packed & 0xffffffff
	n := s.counter.Add(1)
	return (n-1)%window < pass
}

// parseRatioSpec accepts "pass/window" or a bare window meaning 1/window.
// Empty or unparsable specs return 0,0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if rawPass, rawWindow, ok := strings.Cut(spec, "/"); ok {
		pass, errPass := strconv.Atoi(strings.TrimSpace(rawPass))
		window, errWindow := strconv.Atoi(strings.TrimSpace(rawWindow))
		if errPass != nil || errWindow != nil {
			return 0, 0
		}
		return pass, window
	}
	window, err := strconv.Atoi(spec)
	if err != nil || window <= 0 {
		return 0, 0
	}
	return 1, window
}
