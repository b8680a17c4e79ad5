package bus

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Kind identifies a message type on the bus. Subscribers register for an
// exact kind; there is no wildcard or hierarchy.
type Kind string

// Message is the value delivered to subscribers. Messages are immutable
// once published.
type Message interface {
	MessageKind() Kind
}

// Handler receives published messages for a subscribed kind.
type Handler func(Message)

// Subscription is an opaque handle returned by Subscribe. The subscriber
// owns it and releases it via Unsubscribe before teardown.
type Subscription struct {
	id   uuid.UUID
	kind Kind
}

type registration struct {
	id      uuid.UUID
	handler Handler
}

// Bus is an in-process publish/subscribe router. It holds no business
// state: publish invokes the current subscribers for the message's kind
// and nothing else.
type Bus struct {
	mu     sync.Mutex
	subs   map[Kind][]registration
	logger zerolog.Logger
}

// New creates an empty bus.
func New(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[Kind][]registration),
		logger: logger.With().Str("component", "bus").Logger(),
	}
}

// Subscribe registers handler for every message of the given kind published
// after this call. Subscribers for the same kind are invoked in
// registration order.
func (b *Bus) Subscribe(kind Kind, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	reg := registration{id: uuid.New(), handler: handler}
	b.subs[kind] = append(b.subs[kind], reg)

	return &Subscription{id: reg.id, kind: kind}
}

// Unsubscribe removes the registration. It is idempotent: releasing a nil
// handle, or the same handle twice, is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.subs[sub.kind]
	for i, reg := range regs {
		if reg.id == sub.id {
			b.subs[sub.kind] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Publish delivers the message synchronously to all current subscribers for
// its kind, in registration order. With no subscribers it returns without
// effect; producers must not assume a consumer exists. A panic inside one
// handler is recovered and logged, and does not stop delivery to the
// remaining subscribers or reach the publisher.
func (b *Bus) Publish(m Message) {
	b.mu.Lock()
	regs := b.subs[m.MessageKind()]
	// Snapshot so a handler that subscribes or unsubscribes does not
	// mutate the slice being iterated.
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	b.mu.Unlock()

	for _, reg := range snapshot {
		b.deliver(reg, m)
	}
}

func (b *Bus) deliver(reg registration, m Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("kind", string(m.MessageKind())).
				Interface("panic", r).
				Msg("Subscriber panicked during delivery")
		}
	}()

	reg.handler(m)
}
