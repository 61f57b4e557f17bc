package cas

import (
	"sync"

	"github.com/google/uuid"
)

// UploadState is the lifecycle of a background chunk/object upload,
// tracked keyed by OID so has(oid) can answer true while an upload is
// still in flight.
type UploadState int

const (
	UploadPending UploadState = iota
	UploadInProgress
	UploadCompleted
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadPending:
		return "pending"
	case UploadInProgress:
		return "in-progress"
	case UploadCompleted:
		return "completed"
	case UploadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadStatus is a point-in-time snapshot of a tracked upload,
// delivered on the status channel when a caller asks for one.
type UploadStatus struct {
	TaskID uuid.UUID
	OID    string
	State  UploadState
	Err    error
}

// uploadTracker is the single map of OID -> in-flight upload state that
// backs Store.has's Pending/InProgress check and the status channel a
// caller can subscribe to for terminal Failed notifications.
type uploadTracker struct {
	mu   sync.Mutex
	byOID map[string]*uploadTask

	// subscribers receive every terminal (Completed/Failed) status
	// transition, fanned out from notify. A bounded buffer means a slow
	// subscriber drops notifications rather than blocking uploaders; the
	// subscriber can always fall back to has(oid)/state(oid) polling.
	subscribers []chan UploadStatus
}

type uploadTask struct {
	id    uuid.UUID
	oid   string
	state UploadState
	err   error
}

func newUploadTracker() *uploadTracker {
	return &uploadTracker{byOID: make(map[string]*uploadTask)}
}

// begin registers oid as Pending and returns its task id, or returns the
// existing task id if an upload for oid is already tracked (so a
// duplicate store() call for the same content doesn't start a second
// redundant upload).
func (t *uploadTracker) begin(oid string) (uuid.UUID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.byOID[oid]; ok {
		return existing.id, false
	}
	task := &uploadTask{id: uuid.New(), oid: oid, state: UploadPending}
	t.byOID[oid] = task
	return task.id, true
}

func (t *uploadTracker) setState(oid string, state UploadState, err error) {
	t.mu.Lock()
	task, ok := t.byOID[oid]
	if !ok {
		t.mu.Unlock()
		return
	}
	task.state = state
	task.err = err
	// Completed uploads are the ones Store then persists to the mapping
	// catalog; once persisted, has(oid) is answered by the catalog
	// itself, so the in-flight entry can be forgotten.
	if state == UploadCompleted {
		delete(t.byOID, oid)
	}
	subs := append([]chan UploadStatus(nil), t.subscribers...)
	t.mu.Unlock()

	if state == UploadCompleted || state == UploadFailed {
		status := UploadStatus{TaskID: task.id, OID: oid, State: state, Err: err}
		for _, ch := range subs {
			select {
			case ch <- status:
			default:
			}
		}
	}
}

func (t *uploadTracker) state(oid string) (UploadState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.byOID[oid]
	if !ok {
		return 0, false
	}
	return task.state, true
}

// subscribe returns a channel that receives a UploadStatus for every
// terminal transition from this point on.
func (t *uploadTracker) subscribe(buffer int) <-chan UploadStatus {
	ch := make(chan UploadStatus, buffer)
	t.mu.Lock()
	t.subscribers = append(t.subscribers, ch)
	t.mu.Unlock()
	return ch
}
