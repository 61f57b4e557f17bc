package server

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/protocol/hash"
)

// packChunk is one piece of encoded pack output, queued by the traversal
// worker for the sideband emitter to drain.
type packChunk struct {
	data []byte
	err  error
}

// PackfileSender drives reachability traversal and streams the resulting
// objects as a packfile over a SidebandWriter, interleaving throttled
// progress messages, per the bounded-queue producer/consumer shape
// described for the packfile section of the protocol.
type PackfileSender struct {
	Repo Repository

	// QueueDepth bounds the channel between the traversal worker and the
	// sideband emitter; the wire contract requires at least 2.
	QueueDepth int

	// ProgressInterval is the minimum time between progress messages;
	// zero disables time-based throttling (size-based throttling still
	// applies).
	ProgressInterval time.Duration
	// ProgressBytesInterval is the minimum number of sent bytes between
	// progress messages.
	ProgressBytesInterval int64
}

// NewPackfileSender returns a PackfileSender with the defaults from the
// wire contract: a queue depth of 2, progress no more than once per
// 250ms or once per MiB sent, whichever is later.
func NewPackfileSender(repo Repository) *PackfileSender {
	return &PackfileSender{
		Repo:                  repo,
		QueueDepth:            2,
		ProgressInterval:      250 * time.Millisecond,
		ProgressBytesInterval: 1 << 20,
	}
}

// Send traverses the objects reachable from wants (excluding those
// reachable from haves, and honoring shallows as traversal leaves),
// packs them, and streams the pack through sb on channel 1, with
// progress on channel 2. A traversal or encoding failure sends a single
// channel-3 frame and returns the error; the caller is responsible for
// then closing the underlying stream without returning it to any
// connection pool.
func (s *PackfileSender) Send(ctx context.Context, sb *protocol.SidebandWriter, wants, haves, shallows []hash.Hash) error {
	objects, err := Traverse(ctx, s.Repo, wants, haves, shallows)
	if err != nil {
		_ = sb.WriteFatal(err.Error())
		return fmt.Errorf("server: traverse for pack send: %w", err)
	}

	queue := make(chan packChunk, s.QueueDepth)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(queue)
		return encodePackfile(gctx, objects, queue)
	})

	var sent int64
	var lastProgressBytes int64
	lastProgress := time.Time{}
	emitErr := func() error {
		for chunk := range queue {
			if chunk.err != nil {
				return chunk.err
			}
			if err := sb.WriteData(chunk.data); err != nil {
				return fmt.Errorf("server: write pack data frame: %w", err)
			}
			sent += int64(len(chunk.data))

			// "1 per 250ms or 1 per MiB sent, whichever is later": a
			// message fires only once BOTH thresholds have elapsed since
			// the last one, so whichever gate is rarer governs the rate.
			timeDue := lastProgress.IsZero() || time.Since(lastProgress) >= s.ProgressInterval
			bytesDue := sent-lastProgressBytes >= s.ProgressBytesInterval
			if timeDue && bytesDue {
				lastProgress = time.Now()
				lastProgressBytes = sent
				_ = sb.WriteProgress(fmt.Sprintf("sent %d bytes, %d objects", sent, len(objects)))
			}
		}
		return nil
	}()

	if err := g.Wait(); err != nil {
		_ = sb.WriteFatal(err.Error())
		return fmt.Errorf("server: encode pack: %w", err)
	}
	if emitErr != nil {
		_ = sb.WriteFatal(emitErr.Error())
		return emitErr
	}

	return nil
}

// encodePackfile writes objects as a single packfile (header, entries,
// trailing SHA-1 checksum) into fixed-size chunks pushed onto queue, so a
// large pack never needs to be buffered whole before streaming starts.
func encodePackfile(ctx context.Context, objects []*protocol.PackfileObject, queue chan<- packChunk) error {
	cw := &chunkingWriter{queue: queue, chunkSize: 32 * 1024}
	h := sha1.New()

	header := make([]byte, 12)
	copy(header[:4], "PACK")
	binary.BigEndian.PutUint32(header[4:8], 2)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(objects)))
	if err := cw.writeTee(h, header); err != nil {
		return err
	}

	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writePackfileEntry(cw, h, obj); err != nil {
			return fmt.Errorf("encode object %s: %w", obj.Hash.String(), err)
		}
	}

	if err := cw.writeTee(nil, h.Sum(nil)); err != nil {
		return err
	}
	return cw.flush()
}

// writePackfileEntry writes one undeltified pack entry: type+size header
// then zlib-compressed content, both tee'd into the running checksum.
func writePackfileEntry(cw *chunkingWriter, h interface{ Write([]byte) (int, error) }, obj *protocol.PackfileObject) error {
	headerBytes := encodeObjectHeader(obj.Type, uint64(len(obj.Data)))
	if err := cw.writeTee(h, headerBytes); err != nil {
		return err
	}

	compressed, err := zlibCompress(obj.Data)
	if err != nil {
		return err
	}
	return cw.writeTee(h, compressed)
}

// encodeObjectHeader mirrors the teacher's writePackObjectHeader: a 3-bit
// type followed by a variable-length size, little-endian 7-bit-per-byte
// after the first byte's 4 low bits.
func encodeObjectHeader(t protocol.ObjectType, size uint64) []byte {
	var out []byte

	first := byte(t&0x7) << 4
	first |= byte(size & 0xf)
	size >>= 4

	if size == 0 {
		return append(out, first)
	}

	first |= 0x80
	out = append(out, first)

	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// zlibCompress compresses data with klauspost/compress/zlib, chosen over
// the standard library's compress/zlib (already used by the client-side
// packfile writer) so the server encode path exercises the pack's faster
// implementation for what is typically the larger workload.
func zlibCompress(data []byte) ([]byte, error) {
	var buf chunkBuffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.data, nil
}

// chunkBuffer is a minimal io.Writer that appends to an in-memory slice,
// used to collect a single object's compressed bytes before it's split
// into wire-sized chunks by chunkingWriter.
type chunkBuffer struct {
	data []byte
}

func (b *chunkBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// chunkingWriter accumulates written bytes and flushes fixed-size chunks
// onto queue as soon as enough have built up, so the sideband emitter can
// start draining before the whole pack is encoded.
type chunkingWriter struct {
	queue     chan<- packChunk
	chunkSize int
	pending   []byte
}

// writeTee appends p to the pending buffer (flushing full chunks as it
// goes) and, if tee is non-nil, also writes p into tee (the running
// checksum hash).
func (w *chunkingWriter) writeTee(tee interface{ Write([]byte) (int, error) }, p []byte) error {
	if tee != nil {
		if _, err := tee.Write(p); err != nil {
			return fmt.Errorf("update pack checksum: %w", err)
		}
	}
	w.pending = append(w.pending, p...)
	for len(w.pending) >= w.chunkSize {
		chunk := w.pending[:w.chunkSize]
		w.queue <- packChunk{data: append([]byte(nil), chunk...)}
		w.pending = w.pending[w.chunkSize:]
	}
	return nil
}

// flush pushes any remaining partial chunk.
func (w *chunkingWriter) flush() error {
	if len(w.pending) > 0 {
		w.queue <- packChunk{data: w.pending}
		w.pending = nil
	}
	return nil
}
