package protocol

import (
	"bytes"
	"compress/zlib"
	"crypto"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/tordoze/nanogit/protocol/hash"
	"github.com/tordoze/nanogit/protocol/object"
)

// Identity is a Git author/committer identity, as it appears in a commit
// object's "author"/"committer" lines.
type Identity = object.Identity

// PackfileStorageMode controls where a PackfileWriter buffers the raw
// object content it is given, before it's packed and streamed out by
// WritePackfile.
type PackfileStorageMode int

const (
	// PackfileStorageAuto keeps objects in memory, same as
	// PackfileStorageMemory. It exists as the zero value so a
	// PackfileWriter built without an explicit mode still works.
	PackfileStorageAuto PackfileStorageMode = iota
	// PackfileStorageMemory keeps every staged object's content in memory
	// until WritePackfile is called.
	PackfileStorageMemory
	// PackfileStorageDisk spills each staged object's content to a temp
	// file as soon as it's added, so a writer staging many or large blobs
	// doesn't hold them all in memory at once.
	PackfileStorageDisk
)

// pendingObject is a single object staged into a PackfileWriter, not yet
// packed onto the wire.
type pendingObject struct {
	hash    hash.Hash
	objType ObjectType
	size    int64

	// data holds the content when mode is Memory/Auto.
	data []byte
	// file holds the content when mode is Disk; data is unset in that case.
	file *os.File
}

func (p *pendingObject) reader() (io.Reader, error) {
	if p.file != nil {
		if _, err := p.file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek staged object %s: %w", p.hash.String(), err)
		}
		return p.file, nil
	}
	return bytes.NewReader(p.data), nil
}

// PackfileWriter accumulates new Git objects (blobs, trees, commits) and
// packs them into a single packfile, in the wire format WritePackfile's
// caller sends to git-receive-pack. Objects are stored zlib-compressed and
// undeltified: every object becomes its own full entry in the pack. This
// keeps the encoder simple at the cost of pack size, which is fine for the
// write path since a receive-pack push is normally small compared to a
// full clone.
type PackfileWriter struct {
	algo crypto.Hash
	mode PackfileStorageMode

	order   []string
	objects map[string]*pendingObject

	// lastCommit is the hash of the most recently staged commit, used by
	// WritePackfile as the ref's new value.
	lastCommit hash.Hash
}

// NewPackfileWriter creates a PackfileWriter that hashes objects with algo
// and buffers their content according to mode.
func NewPackfileWriter(algo crypto.Hash, mode PackfileStorageMode) *PackfileWriter {
	return &PackfileWriter{
		algo:    algo,
		mode:    mode,
		objects: make(map[string]*pendingObject),
	}
}

// HasObjects reports whether any object has been staged since creation or
// the last Cleanup/reset.
func (w *PackfileWriter) HasObjects() bool {
	return len(w.order) > 0
}

// AddObject stages obj's existing content and type, without recomputing its
// hash, so that objects decoded from a prior fetch (e.g. an unmodified tree
// reused as-is) can be re-added to a new pack without re-hashing them.
func (w *PackfileWriter) AddObject(obj PackfileObject) (hash.Hash, error) {
	return w.add(obj.Type, obj.Data, obj.Hash)
}

// AddBlob stages content as a new blob object and returns its hash.
func (w *PackfileWriter) AddBlob(content []byte) (hash.Hash, error) {
	return w.add(ObjectTypeBlob, content, nil)
}

// AddCommit stages a new commit object pointing at tree and, unless parent
// is the zero hash, parent. It returns the new commit's hash.
func (w *PackfileWriter) AddCommit(tree, parent hash.Hash, author, committer *Identity, message string) (hash.Hash, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", tree.String())
	if !parent.Is(hash.Zero) {
		fmt.Fprintf(&buf, "parent %s\n", parent.String())
	}
	fmt.Fprintf(&buf, "author %s <%s> %d %s\n", author.Name, author.Email, author.Timestamp, author.Timezone)
	fmt.Fprintf(&buf, "committer %s <%s> %d %s\n", committer.Name, committer.Email, committer.Timestamp, committer.Timezone)
	buf.WriteByte('\n')
	buf.WriteString(message)

	commitHash, err := w.add(ObjectTypeCommit, buf.Bytes(), nil)
	if err != nil {
		return nil, err
	}

	w.lastCommit = commitHash

	return commitHash, nil
}

// add stages data as an object of type t. If want is non-nil it is trusted
// as the object's hash (used by AddObject, for content already hashed by a
// prior decode); otherwise the hash is computed from t and data.
func (w *PackfileWriter) add(t ObjectType, data []byte, want hash.Hash) (hash.Hash, error) {
	objHash := want
	if objHash == nil {
		h, err := hash.Object(w.algo, object.Type(t), data)
		if err != nil {
			return nil, fmt.Errorf("hash %s object: %w", t.String(), err)
		}
		objHash = h
	}

	key := objHash.String()
	if _, exists := w.objects[key]; exists {
		return objHash, nil
	}

	obj := &pendingObject{hash: objHash, objType: t, size: int64(len(data))}
	if w.mode == PackfileStorageDisk {
		f, err := os.CreateTemp("", "nanogit-packobj-*")
		if err != nil {
			return nil, fmt.Errorf("stage %s object to disk: %w", t.String(), err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, fmt.Errorf("stage %s object to disk: %w", t.String(), err)
		}
		obj.file = f
	} else {
		obj.data = data
	}

	w.objects[key] = obj
	w.order = append(w.order, key)

	return objHash, nil
}

// Object computes the Git object hash for data as an object of type t,
// using algo. It's a thin wrapper around hash.Object for callers that only
// need the hash and don't otherwise depend on the hash package.
func Object(algo crypto.Hash, t ObjectType, data []byte) (hash.Hash, error) {
	return hash.Object(algo, object.Type(t), data)
}

// BuildTreeObject encodes entries into a Git tree object, hashes it with
// algo, and returns the resulting PackfileObject. Entries are sorted by
// name, as Git requires for a tree's on-disk representation to be
// deterministic.
func BuildTreeObject(algo crypto.Hash, entries []PackfileTreeEntry) (PackfileObject, error) {
	sorted := make([]PackfileTreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FileName < sorted[j].FileName })

	var buf bytes.Buffer
	for _, entry := range sorted {
		fmt.Fprintf(&buf, "%o %s", entry.FileMode, entry.FileName)
		buf.WriteByte(0)

		rawHash, err := hash.FromHex(entry.Hash)
		if err != nil {
			return PackfileObject{}, fmt.Errorf("parsing tree entry hash for %q: %w", entry.FileName, err)
		}
		buf.Write(rawHash)
	}

	data := buf.Bytes()
	objHash, err := hash.Object(algo, object.TypeTree, data)
	if err != nil {
		return PackfileObject{}, fmt.Errorf("hash tree object: %w", err)
	}

	return PackfileObject{Hash: objHash, Type: ObjectTypeTree, Data: data, Tree: sorted}, nil
}

// WritePackfile writes the ref-update command moving refName from oldHash
// to the most recently staged commit, followed by a packfile containing
// every object staged so far, in the wire format expected by
// git-receive-pack: a pkt-line command, a packfile body (never pkt-line
// framed), and a trailing flush packet.
func (w *PackfileWriter) WritePackfile(out io.Writer, refName string, oldHash hash.Hash) error {
	oldValue := ZeroHash
	if oldHash != nil && !oldHash.Is(hash.Zero) {
		oldValue = oldHash.String()
	}

	newValue := ZeroHash
	if w.lastCommit != nil {
		newValue = w.lastCommit.String()
	}

	refLine := fmt.Sprintf("%s %s %s\000report-status-v2 side-band-64k quiet object-format=sha1 agent=nanogit\n",
		oldValue, newValue, refName)

	lineLen := len(refLine) + PktLineLengthSize
	if _, err := fmt.Fprintf(out, "%04x%s", lineLen, refLine); err != nil {
		return fmt.Errorf("write ref-update command: %w", err)
	}

	if err := w.writePack(out); err != nil {
		return err
	}

	if _, err := out.Write(FlushPacket); err != nil {
		return fmt.Errorf("write flush after packfile: %w", err)
	}

	return nil
}

// writePack encodes every staged object into a single packfile (header,
// entries, SHA-1 trailer) and writes it to out.
func (w *PackfileWriter) writePack(out io.Writer) error {
	h := crypto.SHA1.New()
	mw := io.MultiWriter(out, h)

	header := make([]byte, 12)
	copy(header[:4], "PACK")
	binary.BigEndian.PutUint32(header[4:8], 2)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(w.order)))
	if _, err := mw.Write(header); err != nil {
		return fmt.Errorf("write packfile header: %w", err)
	}

	for _, key := range w.order {
		obj := w.objects[key]
		if err := writePackObject(mw, obj); err != nil {
			return fmt.Errorf("write object %s: %w", key, err)
		}
	}

	if _, err := out.Write(h.Sum(nil)); err != nil {
		return fmt.Errorf("write packfile trailer: %w", err)
	}

	return nil
}

// writePackObject writes a single undeltified packfile entry: the
// type+length header, then the zlib-compressed object content.
func writePackObject(out io.Writer, obj *pendingObject) error {
	if err := writePackObjectHeader(out, obj.objType, uint64(obj.size)); err != nil {
		return err
	}

	r, err := obj.reader()
	if err != nil {
		return err
	}

	zw := zlib.NewWriter(out)
	if _, err := io.Copy(zw, r); err != nil {
		return fmt.Errorf("compress object: %w", err)
	}

	return zw.Close()
}

// writePackObjectHeader writes a packfile entry header: a 3-bit type
// followed by a variable-length size, little-endian 7-bit-per-byte after
// the first byte's 4 low bits. This is the inverse of parseObjectHeader.
func writePackObjectHeader(out io.Writer, t ObjectType, size uint64) error {
	first := byte(t&0x7) << 4
	first |= byte(size & 0xf)
	size >>= 4

	if size == 0 {
		_, err := out.Write([]byte{first})
		return err
	}

	first |= 0x80
	if _, err := out.Write([]byte{first}); err != nil {
		return err
	}

	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		if _, err := out.Write([]byte{b}); err != nil {
			return err
		}
	}

	return nil
}

// Cleanup releases any temp files created for PackfileStorageDisk objects
// and resets the writer to an empty state so it can be reused.
func (w *PackfileWriter) Cleanup() error {
	var firstErr error
	for _, key := range w.order {
		obj := w.objects[key]
		if obj.file == nil {
			continue
		}
		name := obj.file.Name()
		if err := obj.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close staged object file: %w", err)
		}
		if err := os.Remove(name); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove staged object file: %w", err)
		}
	}

	w.order = nil
	w.objects = make(map[string]*pendingObject)

	return firstErr
}
