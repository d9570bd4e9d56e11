package ui

import (
	"fmt"
	"time"

	"github.com/scienceol/recovery/internal/duration"
	"github.com/scienceol/recovery/internal/recovery"
)

// Subscriber is the part of events.Bus the printers need.
type Subscriber interface {
	Subscribe(topic string, fn any) error
}

// Watch prints every recovery event published on bus.
func Watch(bus Subscriber) error {
	handlers := map[string]any{
		recovery.EventScheduled:        Scheduled,
		recovery.EventAttempt:          Attempting,
		recovery.EventAttemptTimeout:   TimedOut,
		recovery.EventPermanentFailure: GaveUp,
		recovery.EventSuccess:          Reconnected,
	}
	for topic, fn := range handlers {
		if err := bus.Subscribe(topic, fn); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// Scheduled prints:  ● Reconnecting in 1.2s (attempt 2/10)
func Scheduled(a recovery.Attempt) {
	Info("Reconnecting in %s %s", a.Scheduled.Round(time.Millisecond), Dim(progress(a)))
}

// Attempting prints:  ● Attempt 2/10
func Attempting(a recovery.Attempt) {
	Info("Attempt %s %s", progress(a), Dim("(timeout "+duration.Format(a.AttemptTimeout)+")"))
}

// TimedOut prints:  ▲ Attempt 2/10 timed out after 30s
func TimedOut(err error, a recovery.Attempt) {
	Warn("Attempt %s timed out after %s", progress(a), duration.Format(a.AttemptTimeout))
}

// GaveUp prints:  ✖ unable to recover after 10 attempts (12.3s)
func GaveUp(err error, a recovery.Attempt) {
	Error("%v", err)
}

// Reconnected prints:  ✔ Reconnected after 3 attempts (1.5s)
func Reconnected(a recovery.Attempt) {
	Success("Reconnected after %d %s %s", a.Number, plural(a.Number, "attempt"), Dim("("+a.Elapsed.Round(time.Millisecond).String()+")"))
}

func progress(a recovery.Attempt) string {
	return fmt.Sprintf("%d/%d", a.Number, a.MaxRetries)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
