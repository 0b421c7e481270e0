// Package prompttest provides a scriptable prompt.Surface for tests.
package prompttest

import "sync"

// Script answers prompts from queued responses and records every notice.
type Script struct {
	mu sync.Mutex

	// Inputs are consumed front-to-back by Input; when exhausted, Input
	// reports a dismissed dialog.
	Inputs []Response
	// Confirms are consumed by Confirm; when exhausted, Confirm answers no.
	Confirms []bool

	Notices []Notice
}

type Response struct {
	Value string
	OK    bool
}

type Notice struct {
	Level string // info, success, warn, error
	Title string
	Text  string
}

func (s *Script) Input(title, text, initial string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Inputs) == 0 {
		return "", false
	}
	r := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	return r.Value, r.OK
}

func (s *Script) Confirm(title, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Confirms) == 0 {
		return false
	}
	v := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return v
}

func (s *Script) Info(title, text string)    { s.record("info", title, text) }
func (s *Script) Success(title, text string) { s.record("success", title, text) }
func (s *Script) Warn(title, text string)    { s.record("warn", title, text) }
func (s *Script) Error(title, text string)   { s.record("error", title, text) }

func (s *Script) record(level, title, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Notices = append(s.Notices, Notice{Level: level, Title: title, Text: text})
}

// Errors returns the recorded error notices.
func (s *Script) Errors() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notice
	for _, n := range s.Notices {
		if n.Level == "error" {
			out = append(out, n)
		}
	}
	return out
}
