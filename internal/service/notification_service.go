package service

import (
	"sync"
	"time"

	"github.com/noah-isme/sched-console/internal/models"
)

// NotifierConfig sets how long each severity stays visible.
type NotifierConfig struct {
	SuccessTTL time.Duration
	ErrorTTL   time.Duration
}

func (c NotifierConfig) withDefaults() NotifierConfig {
	if c.SuccessTTL <= 0 {
		c.SuccessTTL = 3 * time.Second
	}
	if c.ErrorTTL <= 0 {
		c.ErrorTTL = 5 * time.Second
	}
	return c
}

type notificationSlot struct {
	current    *models.Notification
	generation uint64
	timer      *time.Timer
}

// Notifier owns one success slot and one error slot. Posting to a slot replaces
// its message and re-arms its expiry; each arm carries a generation so an older
// timer never clears a newer message.
type Notifier struct {
	mu     sync.Mutex
	cfg    NotifierConfig
	slots  map[models.Severity]*notificationSlot
	now    func() time.Time
	closed bool
}

// NewNotifier builds an empty notifier.
func NewNotifier(cfg NotifierConfig) *Notifier {
	return &Notifier{
		cfg: cfg.withDefaults(),
		slots: map[models.Severity]*notificationSlot{
			models.SeveritySuccess: {},
			models.SeverityError:   {},
		},
		now: time.Now,
	}
}

// Success posts a success message.
func (n *Notifier) Success(message string) {
	n.post(models.SeveritySuccess, message, n.cfg.SuccessTTL)
}

// Error posts an error message.
func (n *Notifier) Error(message string) {
	n.post(models.SeverityError, message, n.cfg.ErrorTTL)
}

// Dismiss clears a slot before its timer fires.
func (n *Notifier) Dismiss(severity models.Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	slot, ok := n.slots[severity]
	if !ok {
		return
	}
	n.clearLocked(slot)
}

// Current returns the visible notifications, success first.
func (n *Notifier) Current() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, 0, 2)
	for _, sev := range []models.Severity{models.SeveritySuccess, models.SeverityError} {
		if cur := n.slots[sev].current; cur != nil {
			out = append(out, *cur)
		}
	}
	return out
}

// Get returns the message in a slot, if any.
func (n *Notifier) Get(severity models.Severity) (models.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	slot, ok := n.slots[severity]
	if !ok || slot.current == nil {
		return models.Notification{}, false
	}
	return *slot.current, true
}

// Close stops pending timers and drops further posts.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for _, slot := range n.slots {
		n.clearLocked(slot)
	}
}

func (n *Notifier) post(severity models.Severity, message string, ttl time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	slot := n.slots[severity]
	if slot.timer != nil {
		slot.timer.Stop()
	}
	slot.generation++
	generation := slot.generation

	shown := n.now()
	slot.current = &models.Notification{
		Severity:  severity,
		Message:   message,
		ShownAt:   shown,
		ExpiresAt: shown.Add(ttl),
	}
	slot.timer = time.AfterFunc(ttl, func() { n.expire(severity, generation) })
}

func (n *Notifier) expire(severity models.Severity, generation uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	slot := n.slots[severity]
	if slot.generation != generation {
		return
	}
	slot.current = nil
	slot.timer = nil
}

func (n *Notifier) clearLocked(slot *notificationSlot) {
	if slot.timer != nil {
		slot.timer.Stop()
		slot.timer = nil
	}
	slot.generation++
	slot.current = nil
}
