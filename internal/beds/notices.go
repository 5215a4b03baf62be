package beds

import (
	"sync"
	"time"
)

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// Notices is the banner of the bed view. Success notices clear themselves
// after ttl; error notices stay until the next success.
type Notices struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	current *Notice
}

func NewNotices(ttl time.Duration) *Notices {
	return &Notices{ttl: ttl, now: time.Now}
}

func (n *Notices) Success(msg string) {
	n.set(NoticeSuccess, msg)
}

func (n *Notices) Error(msg string) {
	n.set(NoticeError, msg)
}

func (n *Notices) set(kind NoticeKind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = &Notice{Kind: kind, Message: msg, At: n.now()}
}

// Current returns the visible notice, or nil.
func (n *Notices) Current() *Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return nil
	}
	if n.current.Kind == NoticeSuccess && n.now().Sub(n.current.At) >= n.ttl {
		n.current = nil
		return nil
	}
	c := *n.current
	return &c
}

func (n *Notices) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = nil
}
