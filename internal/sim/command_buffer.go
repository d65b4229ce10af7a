package sim

import (
	"sync"

	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
)

const (
	metricCommandOccupancy = "sim_command_buffer_occupancy"
	metricCommandOverflow  = "sim_command_buffer_overflow_total"
)

// CommandBuffer stores staged commands in a fixed-size ring. It is safe for
// concurrent producers and a single consumer.
type CommandBuffer struct {
	mu      sync.Mutex
	ring    []Command
	head    int
	count   int
	metrics telemetry.Metrics
}

// NewCommandBuffer constructs a ring buffer with the provided capacity.
func NewCommandBuffer(capacity int, metrics telemetry.Metrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &CommandBuffer{ring: make([]Command, capacity), metrics: metrics}
}

// Capacity reports the maximum number of commands the buffer can hold.
func (b *CommandBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.ring)
}

// Push stages a command, returning false if the buffer is full.
func (b *CommandBuffer) Push(cmd Command) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.ring) {
		if b.metrics != nil {
			b.metrics.Add(metricCommandOverflow, 1)
		}
		return false
	}
	b.ring[(b.head+b.count)%len(b.ring)] = cmd
	b.count++
	b.reportLocked()
	return true
}

// Drain returns all staged commands in FIFO order and clears the buffer.
func (b *CommandBuffer) Drain() []Command {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	out := make([]Command, b.count)
	for i := range out {
		slot := (b.head + i) % len(b.ring)
		out[i] = b.ring[slot]
		b.ring[slot] = Command{}
	}
	b.head = (b.head + b.count) % len(b.ring)
	b.count = 0
	b.reportLocked()
	return out
}

// Len reports the number of staged commands.
func (b *CommandBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *CommandBuffer) reportLocked() {
	if b.metrics != nil {
		b.metrics.Store(metricCommandOccupancy, uint64(b.count))
	}
}
