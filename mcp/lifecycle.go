// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"fmt"
	"sync"
)

// phase identifies where a session is in the MCP lifecycle state machine.
type phase int

const (
	phaseUninitialized phase = iota
	phaseInitializing
	phaseOperating
	phaseShuttingDown
	phaseShutdown
)

func (p phase) String() string {
	switch p {
	case phaseUninitialized:
		return "uninitialized"
	case phaseInitializing:
		return "initializing"
	case phaseOperating:
		return "operating"
	case phaseShuttingDown:
		return "shutting down"
	case phaseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// lifecycle tracks the phase of a single session and enforces the method
// admissibility rules of the MCP lifecycle state machine. It is embedded by
// both ServerSession and ClientSession.
type lifecycle struct {
	mu    sync.Mutex
	phase phase
}

func (l *lifecycle) current() phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// advance transitions the lifecycle to next, provided the transition is
// legal from the current phase. It is idempotent for same-phase transitions.
func (l *lifecycle) advance(next phase) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == next {
		return nil
	}
	allowed := map[phase][]phase{
		phaseUninitialized: {phaseInitializing},
		phaseInitializing:  {phaseOperating, phaseShutdown},
		phaseOperating:     {phaseShuttingDown, phaseShutdown},
		phaseShuttingDown:  {phaseShutdown},
		phaseShutdown:      {},
	}
	for _, p := range allowed[l.phase] {
		if p == next {
			l.phase = next
			return nil
		}
	}
	return fmt.Errorf("illegal lifecycle transition from %s to %s", l.phase, next)
}

// methodClass distinguishes the small set of methods admissible before the
// lifecycle reaches the operating phase.
type methodClass int

const (
	classInitialize methodClass = iota // "initialize" itself
	classPing                          // "ping", admissible in any non-terminal phase
	classOperating                     // everything else, requires the operating phase
	classShutdownOnly                  // admissible only while shutting down
)

func classify(method string) methodClass {
	switch method {
	case methodInitialize:
		return classInitialize
	case methodPing:
		return classPing
	default:
		return classOperating
	}
}

// admit reports whether method may be dispatched given the current phase. It
// does not mutate the lifecycle; callers drive transitions explicitly via
// advance, typically from the initialize/initialized handlers.
func (l *lifecycle) admit(method string) error {
	p := l.current()
	switch classify(method) {
	case classInitialize:
		if p != phaseUninitialized {
			return fmt.Errorf("%q is only valid before initialization (current phase: %s)", method, p)
		}
		return nil
	case classPing:
		if p == phaseShutdown {
			return fmt.Errorf("%q is not valid after shutdown", method)
		}
		return nil
	default:
		if p != phaseOperating {
			return fmt.Errorf("method %q is not valid in phase %s; session must be operating", method, p)
		}
		return nil
	}
}
