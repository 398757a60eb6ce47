package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/metrics"
)

const DayLayout = "2006-01-02"

// ValidationError reports a missing or malformed field. It is raised before
// any storage access.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type Option func(*base)

func WithClock(c quartz.Clock) Option { return func(b *base) { b.clock = c } }

func WithMetrics(m *metrics.Metrics) Option { return func(b *base) { b.metrics = m } }

func WithLogger(l *logging.Logger) Option { return func(b *base) { b.logger = l } }

// WithMaxClockSkew bounds how far ahead of server time a client timestamp may
// be. Zero disables the check.
func WithMaxClockSkew(d time.Duration) Option { return func(b *base) { b.maxSkew = d } }

type base struct {
	clock   quartz.Clock
	metrics *metrics.Metrics
	logger  *logging.Logger
	maxSkew time.Duration
}

func newBase(opts []Option) base {
	b := base{clock: quartz.NewReal(), logger: logging.Discard()}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// stamp validates a client updated_at, assigning server time when absent.
func (b *base) stamp(ts int64) (int64, error) {
	now := b.clock.Now()
	switch {
	case ts < 0:
		return 0, invalid("updated_at", "must not be negative")
	case ts == 0:
		return now.UnixMilli(), nil
	case b.maxSkew > 0 && ts > now.Add(b.maxSkew).UnixMilli():
		return 0, invalid("updated_at", "is more than %s ahead of server time", b.maxSkew)
	}
	return ts, nil
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return invalid("owner", "is required")
	}
	return nil
}

func parseDay(day string) (string, error) {
	day = strings.TrimSpace(day)
	if day == "" {
		return "", invalid("day", "is required")
	}
	if _, err := time.Parse(DayLayout, day); err != nil {
		return "", invalid("day", "must be formatted as YYYY-MM-DD")
	}
	return day, nil
}
