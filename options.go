package arenakit

import (
	"log/slog"

	"github.com/hupe1980/arenakit/codec"
	"github.com/hupe1980/arenakit/internal/frame"
	"github.com/hupe1980/arenakit/resource"
)

// Compression selects the algorithm applied to an encoded arena body.
type Compression = frame.Compression

const (
	// CompressionNone stores the body uncompressed.
	CompressionNone = frame.CompressionNone
	// CompressionLZ4 favors speed.
	CompressionLZ4 = frame.CompressionLZ4
	// CompressionZSTD favors ratio.
	CompressionZSTD = frame.CompressionZSTD
)

// DefaultDecodeReserveLimit is the default bound on the memory Decode
// reserves for empty slots.
const DefaultDecodeReserveLimit = 1 << 30

type options struct {
	codec              codec.Codec
	compression        Compression
	encodeConcurrency  int
	decodeReserveLimit int64
	metricsCollector   MetricsCollector
	logger             *Logger
	resources          *resource.Controller
}

// Option configures arena construction, encoding and decoding.
type Option func(*options)

// WithCodec configures the codec used for chunk values when encoding.
// Decoding selects the codec named in the encoded header and only falls
// back to this one when the names match.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures body compression for Encode and EncodeTo.
// Compression is skipped when it does not pay off.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithEncodeConcurrency bounds how many chunks are marshaled or unmarshaled
// at once. Values <= 0 mean one worker per chunk.
func WithEncodeConcurrency(n int) Option {
	return func(o *options) {
		o.encodeConcurrency = n
	}
}

// WithDecodeReserveLimit bounds the bytes Decode reserves for slots the
// encoded arena declares but has not filled, so a forged capacity cannot
// force a huge allocation. Values <= 0 restore DefaultDecodeReserveLimit.
func WithDecodeReserveLimit(bytes int64) Option {
	return func(o *options) {
		if bytes <= 0 {
			bytes = DefaultDecodeReserveLimit
		}
		o.decodeReserveLimit = bytes
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &arenakit.BasicMetricsCollector{}
//	a, _ := arenakit.New[int](4, 1000, 1<<20, arenakit.WithMetricsCollector(metrics))
//	// ... use a ...
//	stats := metrics.GetStats()
//	fmt.Printf("Allocs: %d, rejected: %d\n", stats.AllocCount, stats.AllocRejected)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := arenakit.NewJSONLogger(slog.LevelDebug)
//	a, _ := arenakit.New[int](4, 1000, 1<<20, arenakit.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController shares a memory budget, encoder slots and an IO
// limit with other arenas. Each new chunk acquires capacity × element size
// bytes from the controller.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:              codec.Default,
		compression:        CompressionNone,
		decodeReserveLimit: DefaultDecodeReserveLimit,
		metricsCollector:   NoopMetricsCollector{},
		logger:             NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
