package arenakit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/arenakit/codec"
	"github.com/hupe1980/arenakit/internal/container"
	"github.com/hupe1980/arenakit/internal/frame"
	"github.com/hupe1980/arenakit/internal/quota"
	"github.com/hupe1980/arenakit/resource"
)

// Body fields, in the order they are written.
var (
	fieldMaxItems        = frame.Field{Tag: 1, Name: "max_items"}
	fieldMaxMemoryBytes  = frame.Field{Tag: 2, Name: "max_memory_bytes"}
	fieldElementSize     = frame.Field{Tag: 3, Name: "element_size"}
	fieldGeneration      = frame.Field{Tag: 4, Name: "generation"}
	fieldChunks          = frame.Field{Tag: 5, Name: "chunks"}
	fieldSnapshotOffsets = frame.Field{Tag: 6, Name: "snapshot_offsets"}
	fieldTotalItems      = frame.Field{Tag: 7, Name: "total_items"}
	fieldTotalMemoryUsed = frame.Field{Tag: 8, Name: "total_memory_used"}

	bodySchema = []frame.Field{
		fieldMaxItems,
		fieldMaxMemoryBytes,
		fieldElementSize,
		fieldGeneration,
		fieldChunks,
		fieldSnapshotOffsets,
		fieldTotalItems,
		fieldTotalMemoryUsed,
	}
)

// Encode serializes the whole arena: quotas, chunk contents, snapshot
// marks, counters and generation. Chunk values are encoded with the
// arena's codec (see WithCodec).
func (a *Arena[T]) Encode() ([]byte, error) {
	return a.encode(context.Background())
}

// EncodeTo encodes the arena and writes it to w, subject to the IO limit
// of the arena's resource controller.
func (a *Arena[T]) EncodeTo(ctx context.Context, w io.Writer) (int64, error) {
	data, err := a.encode(ctx)
	if err != nil {
		return 0, err
	}
	if rc := a.opts.resources; rc != nil {
		w = resource.NewRateLimitedWriter(ctx, w, rc)
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (a *Arena[T]) encode(ctx context.Context) (data []byte, err error) {
	if !a.access.TryShared() {
		return nil, ErrBorrowConflict
	}
	defer a.access.ReleaseShared()

	start := time.Now()
	defer func() {
		a.opts.metricsCollector.RecordEncode(len(data), time.Since(start), err)
		a.opts.logger.LogEncode(ctx, a.store.Len(), len(data), err)
	}()

	blobs, err := a.marshalChunks(ctx)
	if err != nil {
		return nil, err
	}

	var chunks frame.Writer
	chunks.Uvarint(uint64(len(blobs)))
	for i, blob := range blobs {
		chunks.Uvarint(uint64(a.store.Capacity(i)))
		chunks.Uvarint(uint64(len(a.store.Chunk(i))))
		chunks.Blob(*blob)
	}
	releaseChunkBufs(blobs)

	var marks frame.Writer
	marks.Uvarint(uint64(len(a.marks)))
	for _, m := range a.marks {
		marks.Uvarint(uint64(m.Chunk))
		marks.Uvarint(uint64(m.Len))
	}

	usage, limits := a.quota.Usage(), a.quota.Limits()

	var body frame.Writer
	body.UvarintField(fieldMaxItems, uint64(limits.MaxItems))
	body.UvarintField(fieldMaxMemoryBytes, uint64(limits.MaxBytes))
	body.UvarintField(fieldElementSize, uint64(a.elemSize))
	body.UvarintField(fieldGeneration, a.generation)
	body.Field(fieldChunks, chunks.Bytes())
	body.Field(fieldSnapshotOffsets, marks.Bytes())
	body.UvarintField(fieldTotalItems, uint64(usage.Items))
	body.UvarintField(fieldTotalMemoryUsed, uint64(usage.Bytes))

	data, _, err = frame.Seal(body.Bytes(), a.opts.codec.Name(), a.opts.compression)
	return data, err
}

// chunkBufs recycles the buffers chunks are marshaled into.
var chunkBufs = sync.Pool{New: func() any { return new([]byte) }}

// marshalChunks encodes every chunk into a pooled buffer. The caller must
// hand the buffers back with releaseChunkBufs once it has copied them.
func (a *Arena[T]) marshalChunks(ctx context.Context) ([]*[]byte, error) {
	blobs := make([]*[]byte, a.store.NumChunks())

	g, gctx := errgroup.WithContext(ctx)
	if n := a.opts.encodeConcurrency; n > 0 {
		g.SetLimit(n)
	}
	for i := range blobs {
		values := a.store.Chunk(i)
		g.Go(func() error {
			if err := a.opts.resources.AcquireWorker(gctx); err != nil {
				return err
			}
			defer a.opts.resources.ReleaseWorker()

			buf := chunkBufs.Get().(*[]byte)
			b, err := codec.AppendMarshal(a.opts.codec, (*buf)[:0], values)
			if err != nil {
				chunkBufs.Put(buf)
				return fmt.Errorf("encode chunk %d with %s: %w", i, a.opts.codec.Name(), err)
			}
			*buf = b
			blobs[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		releaseChunkBufs(blobs)
		return nil, err
	}
	return blobs, nil
}

func releaseChunkBufs(bufs []*[]byte) {
	for _, b := range bufs {
		if b != nil {
			chunkBufs.Put(b)
		}
	}
}

// Decode rebuilds an arena from the output of Encode. The options configure
// the decoded arena; the codec is selected by the name stored in data.
//
// Malformed input yields a *DecodeError naming the offending field, and no
// arena is returned.
func Decode[T any](data []byte, opts ...Option) (*Arena[T], error) {
	return decode[T](context.Background(), data, applyOptions(opts))
}

// DecodeFrom reads an encoded arena from r, subject to the IO limit of the
// configured resource controller, and decodes it.
func DecodeFrom[T any](ctx context.Context, r io.Reader, opts ...Option) (*Arena[T], error) {
	o := applyOptions(opts)
	if o.resources != nil {
		r = resource.NewRateLimitedReader(ctx, r, o.resources)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decode[T](ctx, data, o)
}

type chunkHeader struct {
	capacity int
	length   int
	blob     []byte
}

func decode[T any](ctx context.Context, data []byte, o options) (a *Arena[T], err error) {
	start := time.Now()
	defer func() {
		items := 0
		if a != nil {
			items = a.store.Len()
		}
		o.metricsCollector.RecordDecode(len(data), time.Since(start), err)
		o.logger.LogDecode(ctx, len(data), items, err)
	}()

	h, body, err := frame.Open(data)
	if err != nil {
		return nil, asDecodeError(err)
	}

	c, err := codecFor(h.Codec, o.codec)
	if err != nil {
		return nil, err
	}

	fields, err := frame.Parse(body, bodySchema)
	if err != nil {
		return nil, asDecodeError(err)
	}

	maxItems, err := fields.Int(fieldMaxItems)
	if err != nil {
		return nil, asDecodeError(err)
	}
	maxBytes, err := fields.Int(fieldMaxMemoryBytes)
	if err != nil {
		return nil, asDecodeError(err)
	}

	elemSize, err := fields.Int(fieldElementSize)
	if err != nil {
		return nil, asDecodeError(err)
	}
	if want := elementSize[T](); int64(elemSize) != want {
		return nil, &DecodeError{Field: fieldElementSize.Name, Reason: fmt.Sprintf("encoded %d, type has %d", elemSize, want)}
	}

	generation, err := fields.Uvarint(fieldGeneration)
	if err != nil {
		return nil, asDecodeError(err)
	}

	headers, err := readChunkHeaders(fields, int64(elemSize), o.decodeReserveLimit)
	if err != nil {
		return nil, err
	}

	marks, err := readMarks(fields, headers)
	if err != nil {
		return nil, err
	}

	totalItems, err := fields.Int(fieldTotalItems)
	if err != nil {
		return nil, asDecodeError(err)
	}
	totalBytes, err := fields.Int(fieldTotalMemoryUsed)
	if err != nil {
		return nil, asDecodeError(err)
	}

	stored, reserved := 0, int64(0)
	for _, ch := range headers {
		stored += ch.length
		reserved += int64(ch.capacity) * int64(elemSize)
	}
	if totalItems != stored {
		return nil, &DecodeError{Field: fieldTotalItems.Name, Reason: fmt.Sprintf("%d does not match %d stored values", totalItems, stored)}
	}
	if int64(totalBytes) != int64(stored)*int64(elemSize) {
		return nil, &DecodeError{Field: fieldTotalMemoryUsed.Name, Reason: fmt.Sprintf("%d does not match %d values of %d bytes", totalBytes, stored, elemSize)}
	}

	q := quota.New(quota.Limits{MaxItems: int64(maxItems), MaxBytes: int64(maxBytes)})
	if !q.TryReserve(int64(totalItems), int64(totalBytes)) {
		return nil, &DecodeError{
			Field:  fieldTotalItems.Name,
			Reason: fmt.Sprintf("%d items of %d bytes exceed quota %d/%d", totalItems, totalBytes, maxItems, maxBytes),
			cause:  ErrQuotaExceeded,
		}
	}

	if !o.resources.TryAcquireMemory(reserved) {
		return nil, &DecodeError{Field: fieldChunks.Name, Reason: "chunk memory refused by resource controller", cause: ErrMemoryLimitExceeded}
	}

	chunks, err := unmarshalChunks[T](ctx, c, headers, o)
	if err != nil {
		o.resources.ReleaseMemory(reserved)
		return nil, asDecodeError(err)
	}

	o.codec = c
	return &Arena[T]{
		store:      container.FromChunks(chunks),
		quota:      q,
		marks:      marks,
		elemSize:   int64(elemSize),
		generation: generation,
		chunkBytes: reserved,
		opts:       o,
	}, nil
}

func codecFor(name string, configured codec.Codec) (codec.Codec, error) {
	if configured != nil && configured.Name() == name {
		return configured, nil
	}
	if c, ok := codec.ByName(name); ok {
		return c, nil
	}
	return nil, &DecodeError{Field: "codec", Reason: fmt.Sprintf("unknown codec %q", name)}
}

func readChunkHeaders(fields frame.Fields, elemSize int64, reserveLimit int64) ([]chunkHeader, error) {
	r := fields.Reader(fieldChunks)
	n, err := r.Int()
	if err != nil {
		return nil, asDecodeError(err)
	}
	if n == 0 {
		return nil, &DecodeError{Field: fieldChunks.Name, Reason: "no chunks"}
	}
	// Every chunk takes at least three bytes.
	if n > len(fields[fieldChunks.Tag])/3 {
		return nil, &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("%d chunks do not fit the payload", n)}
	}

	// The sum of all capacities times elemSize must fit an int64.
	maxSlots := math.MaxInt
	if elemSize > 0 && math.MaxInt64/elemSize < int64(maxSlots) {
		maxSlots = int(math.MaxInt64 / elemSize)
	}

	headers := make([]chunkHeader, n)
	slots, unused := 0, 0
	for i := range headers {
		ch := &headers[i]
		if ch.capacity, err = r.Int(); err != nil {
			return nil, asDecodeError(err)
		}
		if ch.length, err = r.Int(); err != nil {
			return nil, asDecodeError(err)
		}
		if ch.blob, err = r.Blob(); err != nil {
			return nil, asDecodeError(err)
		}

		switch {
		case ch.capacity == 0:
			return nil, &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("chunk %d has zero capacity", i)}
		case i > 0 && ch.capacity != headers[i-1].capacity*2:
			return nil, &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("chunk %d capacity %d is not double the previous %d", i, ch.capacity, headers[i-1].capacity)}
		case ch.capacity > maxSlots-slots:
			return nil, &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("chunk %d capacity %d overflows", i, ch.capacity)}
		case ch.length > ch.capacity:
			return nil, &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("chunk %d holds %d values, capacity %d", i, ch.length, ch.capacity)}
		case i < n-1 && ch.length != ch.capacity:
			return nil, &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("chunk %d is not full but is not the last chunk", i)}
		}
		slots += ch.capacity
		unused += ch.capacity - ch.length
	}
	if err := r.Done(); err != nil {
		return nil, asDecodeError(err)
	}

	// Filled slots are only allocated once their values have been decoded;
	// empty ones are backed by nothing in the payload.
	if reserve := int64(unused) * elemSize; reserve > reserveLimit {
		return nil, &DecodeError{
			Field:  fieldChunks.Name,
			Reason: fmt.Sprintf("%d empty slots reserve %s, limit %s", unused, humanize.IBytes(uint64(reserve)), humanize.IBytes(uint64(reserveLimit))),
			cause:  ErrMemoryLimitExceeded,
		}
	}
	return headers, nil
}

func readMarks(fields frame.Fields, headers []chunkHeader) ([]container.Mark, error) {
	r := fields.Reader(fieldSnapshotOffsets)
	n, err := r.Int()
	if err != nil {
		return nil, asDecodeError(err)
	}
	if n > len(fields[fieldSnapshotOffsets.Tag])/2 {
		return nil, &DecodeError{Field: fieldSnapshotOffsets.Name, Reason: fmt.Sprintf("%d marks do not fit the payload", n)}
	}

	var marks []container.Mark
	if n > 0 {
		marks = make([]container.Mark, n)
	}
	prev := 0
	for i := range marks {
		m := &marks[i]
		if m.Chunk, err = r.Int(); err != nil {
			return nil, asDecodeError(err)
		}
		if m.Len, err = r.Int(); err != nil {
			return nil, asDecodeError(err)
		}
		if m.Chunk >= len(headers) || m.Len > headers[m.Chunk].length {
			return nil, &DecodeError{Field: fieldSnapshotOffsets.Name, Reason: fmt.Sprintf("snapshot %d points past the stored chunks", i)}
		}

		covered := m.Len
		for _, ch := range headers[:m.Chunk] {
			covered += ch.length
		}
		if covered < prev {
			return nil, &DecodeError{Field: fieldSnapshotOffsets.Name, Reason: fmt.Sprintf("snapshot %d covers less than snapshot %d", i, i-1)}
		}
		prev = covered
	}
	if err := r.Done(); err != nil {
		return nil, asDecodeError(err)
	}
	return marks, nil
}

func unmarshalChunks[T any](ctx context.Context, c codec.Codec, headers []chunkHeader, o options) ([][]T, error) {
	chunks := make([][]T, len(headers))

	g, gctx := errgroup.WithContext(ctx)
	if o.encodeConcurrency > 0 {
		g.SetLimit(o.encodeConcurrency)
	}
	for i, ch := range headers {
		g.Go(func() error {
			if err := o.resources.AcquireWorker(gctx); err != nil {
				return err
			}
			defer o.resources.ReleaseWorker()

			var values []T
			if err := c.Unmarshal(ch.blob, &values); err != nil {
				return &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("chunk %d: %v", i, err), cause: err}
			}
			if len(values) != ch.length {
				return &DecodeError{Field: fieldChunks.Name, Reason: fmt.Sprintf("chunk %d decoded %d values, expected %d", i, len(values), ch.length)}
			}

			chunk := make([]T, ch.length, ch.capacity)
			copy(chunk, values)
			chunks[i] = chunk
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// asDecodeError converts envelope and field errors into a *DecodeError.
func asDecodeError(err error) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	var fe *frame.FieldError
	if errors.As(err, &fe) {
		return &DecodeError{Field: fe.Field, Reason: fe.Reason, cause: err}
	}
	return &DecodeError{Reason: err.Error(), cause: err}
}
