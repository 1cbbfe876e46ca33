package testsupport

import (
	"context"
	"errors"
	"strings"
	"sync"

	"atelier/internal/llm"
)

// ScriptedCompleter answers llm requests from a caller-supplied function and
// records every request it sees. Safe for concurrent use.
type ScriptedCompleter struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(req llm.Request) (string, error)
}

// NewScriptedCompleter wraps respond.
func NewScriptedCompleter(respond func(req llm.Request) (string, error)) *ScriptedCompleter {
	return &ScriptedCompleter{respond: respond}
}

// StaticCompleter always answers with content.
func StaticCompleter(content string) *ScriptedCompleter {
	return NewScriptedCompleter(func(llm.Request) (string, error) { return content, nil })
}

// FailingCompleter always fails.
func FailingCompleter(message string) *ScriptedCompleter {
	return NewScriptedCompleter(func(llm.Request) (string, error) { return "", errors.New(message) })
}

// Complete implements llm.Completer.
func (s *ScriptedCompleter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	content, err := s.respond(req)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Content: content, Model: req.Model}, nil
}

// Requests returns a copy of every request received.
func (s *ScriptedCompleter) Requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.requests...)
}

// RequestsWithSystem returns requests whose system prompt contains fragment.
func (s *ScriptedCompleter) RequestsWithSystem(fragment string) []llm.Request {
	var out []llm.Request
	for _, req := range s.Requests() {
		if strings.Contains(req.System, fragment) {
			out = append(out, req)
		}
	}
	return out
}
