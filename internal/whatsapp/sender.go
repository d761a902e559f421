package whatsapp

import (
	"context"
	"sync/atomic"

	"github.com/lojasmm/wamenu/internal/menu"
)

// Sender delivers outbound messages.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendList(ctx context.Context, to string, list menu.List) error
	SendButtons(ctx context.Context, to, body string, buttons []menu.Button) error
}

// SenderRef holds the active Sender. Credential changes build a new client
// and Swap it in; callers look the sender up at send time.
type SenderRef struct {
	p atomic.Pointer[senderBox]
}

type senderBox struct{ s Sender }

func NewSenderRef(s Sender) *SenderRef {
	r := &SenderRef{}
	r.Swap(s)
	return r
}

// Sender returns the current sender, or nil if none was set.
func (r *SenderRef) Sender() Sender {
	b := r.p.Load()
	if b == nil {
		return nil
	}
	return b.s
}

// Swap installs s and returns the previous sender.
func (r *SenderRef) Swap(s Sender) Sender {
	old := r.p.Swap(&senderBox{s: s})
	if old == nil {
		return nil
	}
	return old.s
}
