package mail

import (
	"context"
	"sync"
)

// Recorder is an in-memory Mailer. Fail, when set, decides per message
// whether delivery returns an error instead of being recorded.
type Recorder struct {
	mu   sync.Mutex
	sent []*Message
	Fail func(m *Message) error
}

func (r *Recorder) Send(_ context.Context, m *Message) error {
	if len(m.Recipients()) == 0 {
		return ErrNoRecipients
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(m); err != nil {
			return err
		}
	}
	r.sent = append(r.sent, m)
	return nil
}

// Sent returns the delivered messages in order.
func (r *Recorder) Sent() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message(nil), r.sent...)
}

// SentTo returns the messages addressed to addr.
func (r *Recorder) SentTo(addr string) []*Message {
	var out []*Message
	for _, m := range r.Sent() {
		for _, to := range m.Recipients() {
			if to == addr {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
