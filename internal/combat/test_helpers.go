package combat

import "sync"

// ScriptedSource replays queued values so tests can force hits, misses and
// damage rolls. When a queue runs dry it falls back to a fixed value.
type ScriptedSource struct {
	mu        sync.Mutex
	floats    []float64
	ints      []int
	FloatZero float64
	IntZero   int
}

// Floats queues values returned by Float64.
func (s *ScriptedSource) Floats(v ...float64) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats = append(s.floats, v...)
	return s
}

// Ints queues values returned by IntN. Each is reduced modulo n.
func (s *ScriptedSource) Ints(v ...int) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, v...)
	return s
}

func (s *ScriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return s.FloatZero
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *ScriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return s.IntZero % n
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

// Hit queues a landed attack rolling damage-min on top of the minimum.
func (s *ScriptedSource) Hit(offset int) *ScriptedSource {
	return s.Floats(0).Ints(offset)
}

// Miss queues a whiffed attack.
func (s *ScriptedSource) Miss() *ScriptedSource {
	return s.Floats(1)
}

// BotPicks queues the bot's move choice by table index.
func (s *ScriptedSource) BotPicks(index int) *ScriptedSource {
	return s.Ints(index)
}
