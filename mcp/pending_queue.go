// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

// A PendingQueue buffers outgoing SSE events for a single logical stream,
// bounding how much gets held in memory if the client never reconnects to
// drain it. It generalizes the teacher's unbounded
// `outgoingMessages map[streamID][]*streamableMsg` into a bounded queue:
// once the queue reaches HighWaterMark, new messages are still accepted
// (a slow client shouldn't lose data under ordinary jitter), but once it
// reaches HardCap the newest message is dropped rather than growing
// without limit, and RetryCount records how many messages were lost this
// way.
type PendingQueue struct {
	highWaterMark int
	hardCap       int

	items      []*streamableMsg
	retryCount int
}

// NewPendingQueue returns an empty queue. A non-positive hardCap disables
// bounding (the queue grows unbounded, matching the teacher's original
// behavior).
func NewPendingQueue(highWaterMark, hardCap int) *PendingQueue {
	return &PendingQueue{highWaterMark: highWaterMark, hardCap: hardCap}
}

// Append adds msg to the queue, dropping it instead if the queue is at
// HardCap. It reports whether msg was dropped.
func (q *PendingQueue) Append(msg *streamableMsg) (dropped bool) {
	if q.hardCap > 0 && len(q.items) >= q.hardCap {
		q.retryCount++
		return true
	}
	q.items = append(q.items, msg)
	return false
}

// Len returns the number of buffered messages.
func (q *PendingQueue) Len() int {
	return len(q.items)
}

// From returns the buffered messages starting at idx, clamped to the
// queue's bounds.
func (q *PendingQueue) From(idx int) []*streamableMsg {
	if idx < 0 {
		idx = 0
	}
	if idx > len(q.items) {
		idx = len(q.items)
	}
	return q.items[idx:]
}

// Overloaded reports whether the queue has passed its HighWaterMark,
// meaning callers may want to start shedding load (e.g. slowing delivery
// or logging a warning) before messages start being dropped outright.
func (q *PendingQueue) Overloaded() bool {
	return q.highWaterMark > 0 && len(q.items) >= q.highWaterMark
}

// RetryCount returns the number of messages dropped because the queue was
// at HardCap when they arrived.
func (q *PendingQueue) RetryCount() int {
	return q.retryCount
}
