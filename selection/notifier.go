package selection

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Notification reports a transient fetch failure. The selection keeps its
// last-known-good data, so this is informational and can be dismissed.
type Notification struct {
	Source  string    `json:"source"` // "platforms" or "accounts"
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	Err     error     `json:"-"`
}

type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a zerolog logger
type LogNotifier struct {
	Logger zerolog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	l.Logger.Warn().Err(n.Err).Str("source", n.Source).Msg(n.Message)
}

// Inbox keeps the latest notification until it is dismissed and forwards
// every notification to Next when set.
type Inbox struct {
	Next Notifier

	mu   sync.Mutex
	last *Notification
}

func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	i.last = &n
	i.mu.Unlock()
	if i.Next != nil {
		i.Next.Notify(n)
	}
}

// Last returns the pending notification, if any
func (i *Inbox) Last() (Notification, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.last == nil {
		return Notification{}, false
	}
	return *i.last, true
}

func (i *Inbox) Dismiss() {
	i.mu.Lock()
	i.last = nil
	i.mu.Unlock()
}
