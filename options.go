package tinypg

import (
	"crypto/tls"
	"reflect"
	"time"

	"github.com/tinypg/tinypg/internal/metrics"
)

// Option configures a Connection at construction time.
type Option func(*connectOptions)

type connectOptions struct {
	timeout    time.Duration
	tlsConfig  *tls.Config
	metrics    *metrics.Collector
	escapers   map[reflect.Kind]Escaper
	autocommit bool
}

// WithTimeout bounds every blocking socket operation, surfacing a timeout
// as an OperationalError with SQLSTATE 08003.
func WithTimeout(d time.Duration) Option {
	return func(o *connectOptions) { o.timeout = d }
}

// WithTLS requests an SSLRequest upgrade using the given TLS config. A nil
// config is replaced by an empty &tls.Config{}, i.e. Go's default settings.
func WithTLS(conf *tls.Config) Option {
	return func(o *connectOptions) {
		if conf == nil {
			conf = &tls.Config{}
		}
		o.tlsConfig = conf
	}
}

// WithMetrics attaches a Collector that records query and auth duration,
// reconnects, and errors by SQLSTATE class for this connection.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *connectOptions) { o.metrics = c }
}

// WithAutocommit sets the initial autocommit mode. Default is false,
// matching micropg.py's Connection.__init__.
func WithAutocommit(v bool) Option {
	return func(o *connectOptions) { o.autocommit = v }
}

// WithEscaper overrides the parameter escaper used for values of the given
// reflect.Kind, replacing the built-in table entry (if any) for that kind.
func WithEscaper(kind reflect.Kind, fn Escaper) Option {
	return func(o *connectOptions) {
		if o.escapers == nil {
			o.escapers = make(map[reflect.Kind]Escaper)
		}
		o.escapers[kind] = fn
	}
}
