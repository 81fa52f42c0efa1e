/*
   Named-channel interrupt dispatch: handlers register by channel
   name; posted interrupts queue and are drained explicitly at a
   suspension point, per spec.md §5/§6.

   Adapted from the S370 simulator's emu/event ordered event list and
   the channel-tag dispatch in emu/core.processPacket: an in-process
   FIFO of tagged packets looked up against a small handler table, not
   a signal/slot framework (spec.md §9 Design Notes).

   Copyright (c) 2024, Richard Cornwell
*/

package interrupt

// Channel names the class of a posted interrupt.
type Channel string

const (
	BreakpointASM     Channel = "BREAKPOINT_ASM"
	BreakpointMicro   Channel = "BREAKPOINT_MICRO"
	ExecutionFinished Channel = "EXECUTION_FINISHED"
	ControlError      Channel = "CONTROL_ERROR"
	MemoryError       Channel = "MEMORY_ERROR"
)

// Handler receives the user data posted alongside an interrupt.
type Handler func(data any)

// posted is one queued interrupt: a channel tag plus user data,
// looked up against the handler table only when the queue drains
// (spec.md §9: "handlers are looked up at drain time, not enqueue
// time").
type posted struct {
	channel Channel
	data    any
}

// Dispatcher is the InterruptHandler: named callback dispatch with
// queued and immediate delivery.
type Dispatcher struct {
	handlers map[Channel][]Handler
	queue    []posted
}

// New returns an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{handlers: make(map[Channel][]Handler)}
}

// Register adds h to the list of handlers invoked for channel.
func (d *Dispatcher) Register(channel Channel, h Handler) {
	d.handlers[channel] = append(d.handlers[channel], h)
}

// Post enqueues an interrupt for delivery at the next Drain.
func (d *Dispatcher) Post(channel Channel, data any) {
	d.queue = append(d.queue, posted{channel: channel, data: data})
}

// PostImmediate bypasses the queue and invokes channel's handlers now.
func (d *Dispatcher) PostImmediate(channel Channel, data any) {
	for _, h := range d.handlers[channel] {
		h(data)
	}
}

// Drain invokes every queued interrupt's handlers, in post order, and
// empties the queue. Handlers registered after a Post but before the
// matching Drain still fire: lookup happens at drain time.
func (d *Dispatcher) Drain() {
	pending := d.queue
	d.queue = nil
	for _, p := range pending {
		for _, h := range d.handlers[p.channel] {
			h(p.data)
		}
	}
}

// Pending reports whether any interrupt is queued awaiting Drain.
func (d *Dispatcher) Pending() bool { return len(d.queue) > 0 }
