// Package cas stores and retrieves opaque binary payloads on behalf of a
// Git repository, addressed by Git-OID, while internally deduplicating by
// content hash and splitting large payloads into content-defined chunks
// uploaded to a remote Backend.
package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/tordoze/nanogit/log"
	"github.com/tordoze/nanogit/retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config parameterizes a Store, mirroring the store.* configuration
// keys.
type Config struct {
	UseDedup              bool
	HashAlgo              HashAlgo
	UseChunking           bool
	ChunkingThresholdBytes int64
	Chunker               ChunkerConfig
	BackgroundUploads     bool
	MaxCacheBytes         int64

	// BatchConcurrency bounds store_batch/get_batch fan-out width.
	BatchConcurrency int64
	// UploadConcurrency is defaulted to 4 by New but is not consulted:
	// storeChunks uploads an object's chunks one at a time, with no
	// semaphore bounding them.
	UploadConcurrency int64

	// MappingCatalogPath and ChunkCatalogPath, when non-empty, enable
	// atomic on-disk persistence of the two catalogs.
	MappingCatalogPath string
	ChunkCatalogPath   string
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		UseDedup:               true,
		HashAlgo:               HashAlgoSHA256,
		UseChunking:            true,
		ChunkingThresholdBytes: 1 << 20, // 1 MiB
		Chunker:                DefaultChunkerConfig(),
		BackgroundUploads:      false,
		BatchConcurrency:       4,
		UploadConcurrency:      4,
	}
}

// Stats are the store's cumulative cache/dedup/chunking counters, per
// the "cache stats" record: every field only ever increases over the
// Store's lifetime. Fields are updated with atomic operations only,
// never under a lock, matching the pool package's "stats counters:
// atomic updates, no lock" convention.
type Stats struct {
	Hits           int64
	Misses         int64
	Stored         int64
	BytesStored    int64
	DedupSavings   int64
	ChunkedObjects int64
	UniqueChunks   int64
	TotalChunks    int64
}

// Store implements the Chunker + CAS Store component: store/get/has over
// a remote Backend, with content-hash dedup, FastCDC chunking above a
// size threshold, and optional background uploads for large blobs.
type Store struct {
	backend Backend
	cfg     Config

	mappings *mappingCatalog
	chunks   *chunkCatalog
	uploads  *uploadTracker

	cacheMu sync.RWMutex
	cache   map[string][]byte // oid -> content, local read-through cache

	stats Stats
}

// New constructs a Store backed by backend. Catalogs are loaded from
// cfg's configured paths, if any, so a restarted process rediscovers its
// prior mappings.
func New(backend Backend, cfg Config) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("cas: backend cannot be nil")
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 4
	}

	s := &Store{
		backend:  backend,
		cfg:      cfg,
		mappings: newMappingCatalog(cfg.MappingCatalogPath),
		chunks:   newChunkCatalog(cfg.ChunkCatalogPath),
		uploads:  newUploadTracker(),
		cache:    make(map[string][]byte),
	}
	if err := s.mappings.load(); err != nil {
		return nil, fmt.Errorf("cas: load mapping catalog: %w", err)
	}
	if err := s.chunks.load(); err != nil {
		return nil, fmt.Errorf("cas: load chunk catalog: %w", err)
	}
	return s, nil
}

// DedupSavings returns the cumulative bytes not re-uploaded because
// their content hash matched an existing mapping.
func (s *Store) DedupSavings() int64 {
	return atomic.LoadInt64(&s.stats.DedupSavings)
}

// Stats returns a copy of the store's cumulative cache/dedup/chunking
// counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:           atomic.LoadInt64(&s.stats.Hits),
		Misses:         atomic.LoadInt64(&s.stats.Misses),
		Stored:         atomic.LoadInt64(&s.stats.Stored),
		BytesStored:    atomic.LoadInt64(&s.stats.BytesStored),
		DedupSavings:   atomic.LoadInt64(&s.stats.DedupSavings),
		ChunkedObjects: atomic.LoadInt64(&s.stats.ChunkedObjects),
		UniqueChunks:   atomic.LoadInt64(&s.stats.UniqueChunks),
		TotalChunks:    atomic.LoadInt64(&s.stats.TotalChunks),
	}
}

// Store computes content's Git-OID and uploads it (chunked or whole,
// per cfg), returning the OID immediately. When BackgroundUploads is
// enabled and content is above the chunking threshold, the upload
// continues asynchronously and the OID is usable for Get right away via
// the local cache, per the "returned OID is valid for get by the same
// caller immediately" ordering guarantee.
func (s *Store) Store(ctx context.Context, kind string, content []byte) (string, error) {
	oid := gitOID(kind, content)

	s.cacheMu.Lock()
	s.cache[oid] = content
	s.cacheMu.Unlock()

	if s.cfg.BackgroundUploads && int64(len(content)) >= s.cfg.ChunkingThresholdBytes {
		if taskID, started := s.uploads.begin(oid); started {
			log.FromContextOrNoop(ctx).Debug("cas: starting background upload", "oid", oid, "task", taskID.String())
			go s.runBackgroundUpload(context.WithoutCancel(ctx), oid, kind, content)
		}
		return oid, nil
	}

	if err := s.uploadAndRecord(ctx, oid, kind, content); err != nil {
		return "", err
	}
	return oid, nil
}

func (s *Store) runBackgroundUpload(ctx context.Context, oid, kind string, content []byte) {
	s.uploads.setState(oid, UploadInProgress, nil)

	err := retry.DoVoid(ctx, func() error {
		return s.uploadAndRecord(ctx, oid, kind, content)
	})
	if err != nil {
		s.uploads.setState(oid, UploadFailed, &UploadFailedError{OID: oid, Cause: err})
		return
	}
	s.uploads.setState(oid, UploadCompleted, nil)
}

// uploadAndRecord does the actual dedup/chunk/upload work and persists
// the resulting mapping. Mappings are only written once this completes,
// matching the durability rule that a Pending/InProgress upload's
// mapping isn't persisted until Completed.
func (s *Store) uploadAndRecord(ctx context.Context, oid, kind string, content []byte) error {
	ch, err := contentHash(s.cfg.HashAlgo, content)
	if err != nil {
		return err
	}

	if s.cfg.UseDedup {
		if existingOID, ok := s.mappings.findByContentHash(ch); ok {
			if existing, ok := s.mappings.get(existingOID); ok {
				atomic.AddInt64(&s.stats.DedupSavings, int64(len(content)))
				if err := s.mappings.put(&Mapping{
					OID: oid, Kind: kind, Size: int64(len(content)),
					RemoteCID: existing.RemoteCID, Chunked: existing.Chunked,
					ContentHash: ch, ChunkCIDs: existing.ChunkCIDs,
				}); err != nil {
					return err
				}
				atomic.AddInt64(&s.stats.Stored, 1)
				atomic.AddInt64(&s.stats.BytesStored, int64(len(content)))
				return nil
			}
		}
	}

	useChunking := s.cfg.UseChunking && int64(len(content)) >= s.cfg.ChunkingThresholdBytes
	if !useChunking {
		cid := ch
		if err := s.backend.Put(ctx, cid, bytes.NewReader(content)); err != nil {
			return fmt.Errorf("cas: upload whole object %s: %w", oid, err)
		}
		if err := s.mappings.put(&Mapping{OID: oid, Kind: kind, Size: int64(len(content)), RemoteCID: cid, ContentHash: ch}); err != nil {
			return err
		}
		atomic.AddInt64(&s.stats.Stored, 1)
		atomic.AddInt64(&s.stats.BytesStored, int64(len(content)))
		return nil
	}

	chunkCIDs, err := s.storeChunks(ctx, content)
	if err != nil {
		return err
	}
	manifestCID, err := s.storeManifest(ctx, kind, int64(len(content)), chunkCIDs)
	if err != nil {
		return err
	}
	if err := s.mappings.put(&Mapping{
		OID: oid, Kind: kind, Size: int64(len(content)), RemoteCID: manifestCID,
		Chunked: true, ContentHash: ch, ChunkCIDs: chunkCIDs,
	}); err != nil {
		return err
	}
	atomic.AddInt64(&s.stats.Stored, 1)
	atomic.AddInt64(&s.stats.BytesStored, int64(len(content)))
	atomic.AddInt64(&s.stats.ChunkedObjects, 1)
	return nil
}

// storeChunks splits content per cfg.Chunker and uploads each chunk not
// already present in the chunk catalog (by content hash), returning the
// chunk cids in order.
func (s *Store) storeChunks(ctx context.Context, content []byte) ([]string, error) {
	parts := Split(content, s.cfg.Chunker)
	cids := make([]string, len(parts))

	for i, part := range parts {
		ch, err := contentHash(s.cfg.HashAlgo, part.Data)
		if err != nil {
			return nil, err
		}
		atomic.AddInt64(&s.stats.TotalChunks, 1)
		if entry, existed := s.chunks.addOrRef(ch, ch, len(part.Data)); existed {
			cids[i] = entry.RemoteCID
			continue
		}
		if err := s.backend.Put(ctx, ch, bytes.NewReader(part.Data)); err != nil {
			return nil, fmt.Errorf("cas: upload chunk %d: %w", i, err)
		}
		atomic.AddInt64(&s.stats.UniqueChunks, 1)
		cids[i] = ch
	}
	if err := s.chunks.flush(); err != nil {
		return nil, err
	}
	return cids, nil
}

// manifest is the record written to the remote CAS for a chunked
// object, listing its chunk cids plus payload kind and total size.
type manifest struct {
	Kind      string   `json:"kind"`
	Size      int64    `json:"size"`
	ChunkCIDs []string `json:"chunk_cids"`
}

func (s *Store) storeManifest(ctx context.Context, kind string, size int64, chunkCIDs []string) (string, error) {
	data, err := json.Marshal(manifest{Kind: kind, Size: size, ChunkCIDs: chunkCIDs})
	if err != nil {
		return "", fmt.Errorf("cas: marshal manifest: %w", err)
	}
	cid, err := contentHash(s.cfg.HashAlgo, data)
	if err != nil {
		return "", err
	}
	if err := s.backend.Put(ctx, cid, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("cas: upload manifest: %w", err)
	}
	return cid, nil
}

// Get serves oid from the local cache when present (which covers an
// object whose upload is still in flight). Otherwise it resolves oid via
// the mapping catalog, fetches its content (chunked or whole), and
// verifies it rehashes to oid.
func (s *Store) Get(ctx context.Context, oid string) (kind string, content []byte, err error) {
	s.cacheMu.RLock()
	if cached, ok := s.cache[oid]; ok {
		s.cacheMu.RUnlock()
		atomic.AddInt64(&s.stats.Hits, 1)
		if m, ok := s.mappings.get(oid); ok {
			return m.Kind, cached, nil
		}
		// Upload still pending/in-progress: kind is unknown until the
		// mapping is written, but the cached bytes are authoritative.
		return "", cached, nil
	}
	s.cacheMu.RUnlock()

	m, ok := s.mappings.get(oid)
	if !ok {
		atomic.AddInt64(&s.stats.Misses, 1)
		return "", nil, fmt.Errorf("%w: %s", ErrNotFound, oid)
	}

	content, err = s.fetchAndVerify(ctx, oid, m)
	if err != nil && errors.Is(err, ErrIntegrityMismatch) {
		// The remote object may have been re-uploaded out from under a
		// stale cached read; invalidate it and fetch fresh once more
		// before giving up.
		s.cacheMu.Lock()
		delete(s.cache, oid)
		s.cacheMu.Unlock()
		content, err = s.fetchAndVerify(ctx, oid, m)
	}
	if err != nil {
		atomic.AddInt64(&s.stats.Misses, 1)
		return "", nil, err
	}

	atomic.AddInt64(&s.stats.Hits, 1)
	s.cacheMu.Lock()
	s.cache[oid] = content
	s.cacheMu.Unlock()

	return m.Kind, content, nil
}

// fetchAndVerify fetches oid's content per m (chunked or whole) and
// checks it rehashes to oid, returning IntegrityMismatchError if not.
func (s *Store) fetchAndVerify(ctx context.Context, oid string, m *Mapping) ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if m.Chunked {
		content, err = s.getChunked(ctx, m)
	} else {
		content, err = s.getWhole(ctx, m.RemoteCID)
	}
	if err != nil {
		return nil, err
	}

	if got := gitOID(m.Kind, content); got != oid {
		return nil, &IntegrityMismatchError{OID: oid, Computed: got}
	}
	return content, nil
}

func (s *Store) getWhole(ctx context.Context, cid string) ([]byte, error) {
	rc, err := s.backend.Get(ctx, cid)
	if err != nil {
		return nil, fmt.Errorf("cas: fetch object %s: %w", cid, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Store) getChunked(ctx context.Context, m *Mapping) ([]byte, error) {
	var buf bytes.Buffer
	for _, cid := range m.ChunkCIDs {
		data, err := s.getWhole(ctx, cid)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// Has reports whether oid is present in the mapping catalog, the local
// cache, or tracked as a Pending/InProgress background upload.
func (s *Store) Has(oid string) bool {
	if _, ok := s.mappings.get(oid); ok {
		return true
	}
	s.cacheMu.RLock()
	_, cached := s.cache[oid]
	s.cacheMu.RUnlock()
	if cached {
		return true
	}
	state, tracked := s.uploads.state(oid)
	return tracked && (state == UploadPending || state == UploadInProgress)
}

// CIDOf returns the remote cid a successfully-mapped oid resolves to,
// for pointer annotation (pointer.Pointer's x-ipfs-cid extra).
func (s *Store) CIDOf(oid string) (string, bool) {
	m, ok := s.mappings.get(oid)
	if !ok {
		return "", false
	}
	return m.RemoteCID, true
}

// GetByCID fetches content directly by remote cid, bypassing the mapping
// catalog. It's the fallback path a pointer's smudge uses when the git
// OID it names isn't in the local mapping catalog (a clone that never
// populated it) but the pointer itself carries the remote cid.
func (s *Store) GetByCID(ctx context.Context, cid string) ([]byte, error) {
	return s.getWhole(ctx, cid)
}

// Subscribe returns a channel receiving every terminal (Completed or
// Failed) background upload status from this point on.
func (s *Store) Subscribe() <-chan UploadStatus {
	return s.uploads.subscribe(16)
}

// StoreBatch stores each entry with bounded concurrency, preserving
// input order in the result.
func (s *Store) StoreBatch(ctx context.Context, kinds []string, contents [][]byte) ([]string, error) {
	if len(kinds) != len(contents) {
		return nil, fmt.Errorf("cas: kinds and contents length mismatch")
	}
	oids := make([]string, len(contents))

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(s.cfg.BatchConcurrency)
	for i := range contents {
		i := i
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			oid, err := s.Store(gctx, kinds[i], contents[i])
			if err != nil {
				return err
			}
			oids[i] = oid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return oids, nil
}

// BatchResult is one entry of GetBatch's result, carrying either the
// resolved content or the error from resolving it.
type BatchResult struct {
	OID     string
	Kind    string
	Content []byte
	Err     error
}

// GetBatch resolves each oid with bounded concurrency, preserving input
// order in the result.
func (s *Store) GetBatch(ctx context.Context, oids []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(oids))

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(s.cfg.BatchConcurrency)
	for i := range oids {
		i := i
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			kind, content, err := s.Get(gctx, oids[i])
			results[i] = BatchResult{OID: oids[i], Kind: kind, Content: content, Err: err}
			return nil // per-item errors are carried in the result, not propagated
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
