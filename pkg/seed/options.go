package seed

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "afterseed/pkg/seed"

// DefaultSubject is the subject applied-seeder events are published on.
const DefaultSubject = "afterseed.seeders.applied"

type options struct {
	log      zerolog.Logger
	now      func() time.Time
	notifier Notifier
	subject  string
	tracer   trace.Tracer
}

// Option configures an Executor or Generator.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock overrides time.Now for ledger timestamps, created_at injection
// and generated names.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithNotifier publishes an AppliedEvent for every applied seeder. An empty
// subject selects DefaultSubject.
func WithNotifier(n Notifier, subject string) Option {
	return func(o *options) {
		o.notifier = n
		if subject != "" {
			o.subject = subject
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log:     zerolog.Nop(),
		now:     time.Now,
		subject: DefaultSubject,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
