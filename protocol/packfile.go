package protocol

import (
	"bytes"
	"compress/zlib"
	"crypto"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tordoze/nanogit/protocol/hash"
	"github.com/tordoze/nanogit/protocol/object"
)

// Package protocol implements Git's packfile format used to transfer and
// store collections of objects.
//
// A packfile's wire-format goes as such:
//   - 4-byte signature: `[]byte("PACK")`
//   - 4-byte version number (2 or 3; big-endian)
//   - 4-byte number of objects contained in the pack (big-endian)
//   - The pre-defined number of objects follow.
//   - A trailer checksum covering everything that came before it.
//
// The object entries go as such:
//   - An n-byte type and length header (3-bit type, (n-1)*7+4-bit length).
//   - For OBJ_OFS_DELTA, a varint-encoded negative offset to the base object.
//   - For OBJ_REF_DELTA, the 20-byte (or 32-byte, for sha256 repos) hash of the base object.
//   - The zlib-compressed object data (or delta instructions).
//
// See https://git-scm.com/docs/pack-format for the authoritative description.

var (
	// ErrNoPackfileSignature is returned when the payload does not begin
	// with the 4-byte "PACK" signature, including when it is too short to
	// contain one.
	ErrNoPackfileSignature = errors.New("payload does not start with a valid packfile signature")

	// ErrUnsupportedPackfileVersion is returned when the packfile declares
	// a version other than 2 or 3.
	ErrUnsupportedPackfileVersion = errors.New("unsupported packfile version")

	// ErrPackfileTruncated is returned when the stream ends before an
	// announced object or the trailing checksum has been fully read.
	ErrPackfileTruncated = errors.New("packfile ended before all objects were read")

	// errUnresolvedDeltaBase is returned internally when a ref-delta or
	// ofs-delta base could not be located among the objects read so far.
	errUnresolvedDeltaBase = errors.New("delta base not found in packfile")
)

// packfileHeaderSize is the size, in bytes, of the signature + version +
// object count fields at the start of every packfile.
const packfileHeaderSize = 12

// ObjectType is a packfile entry's 3-bit type field. It mirrors
// object.Type, but packfile.go keeps its own named constants since the
// delta types (OfsDelta/RefDelta) only ever appear on the wire, never as
// a Git object a caller would ask for by type.
type ObjectType uint8

// The object types. Type 5 is reserved. 0 is invalid.
const (
	ObjectTypeInvalid  ObjectType = 0 // 0b000
	ObjectTypeCommit   ObjectType = 1 // 0b001
	ObjectTypeTree     ObjectType = 2 // 0b010
	ObjectTypeBlob     ObjectType = 3 // 0b011
	ObjectTypeTag      ObjectType = 4 // 0b100
	ObjectTypeReserved ObjectType = 5 // 0b101
	ObjectTypeOfsDelta ObjectType = 6 // 0b110
	ObjectTypeRefDelta ObjectType = 7 // 0b111
)

// IsValid reports whether t is one of the defined, non-reserved object types.
func (t ObjectType) IsValid() bool {
	return t != ObjectTypeInvalid && t != ObjectTypeReserved && (t & ^ObjectType(0b111)) == 0
}

// String returns the Git object type name (e.g. "blob"), as used in object headers.
func (t ObjectType) String() string {
	return string(object.Type(t).Bytes())
}

// PackfileTreeEntry is a single entry of a decoded tree object: a file mode,
// a name, and the hash of the blob or tree it points to.
type PackfileTreeEntry struct {
	FileMode uint32
	FileName string
	Hash     string
}

// PackfileCommit is the decoded body of a commit object.
type PackfileCommit struct {
	Tree      hash.Hash
	Parent    hash.Hash
	Author    object.Identity
	Committer object.Identity
	Message   string
}

// PackfileObject is a single object decoded from a packfile. Only the
// fields relevant to the object's Type are populated: Tree for trees,
// Commit for commits, and Data (the raw content) for every type.
type PackfileObject struct {
	Hash hash.Hash
	Type ObjectType
	Data []byte

	Tree   []PackfileTreeEntry
	Commit *PackfileCommit
}

// PackfileTrailer is the checksum that terminates a packfile, covering
// every byte that preceded it.
type PackfileTrailer struct {
	Checksum hash.Hash
}

// packfileEntry is what Packfile.ReadObject returns: either a decoded
// object, or - once every announced object has been read - the trailer.
type packfileEntry struct {
	Object  *PackfileObject
	Trailer *PackfileTrailer
}

// Packfile is a streaming reader over a packfile payload. Objects are
// decoded lazily, one at a time, via ReadObject.
type Packfile struct {
	version     uint32
	objectCount uint32
	data        []byte
	offset      int

	objectsRead int
	trailerSent bool

	// byOffset and byHash cache every non-delta object decoded so far (and
	// delta objects once resolved), so that later ofs-delta/ref-delta
	// objects can find their base. Bases that appear after their delta in
	// the stream, or that live outside this pack entirely (thin packs),
	// are not supported.
	byOffset map[int]*decodedObject
	byHash   map[string]*decodedObject
}

type decodedObject struct {
	objType ObjectType
	data    []byte
}

// ParsePackfile parses the fixed-size header of a packfile and returns a
// Packfile ready to stream objects from. It does not decode any object
// eagerly; malformed object data only surfaces from ReadObject.
func ParsePackfile(payload []byte) (*Packfile, error) {
	if len(payload) < packfileHeaderSize || !bytes.Equal(payload[:4], []byte("PACK")) {
		return nil, ErrNoPackfileSignature
	}

	version := binary.BigEndian.Uint32(payload[4:8])
	if version != 2 && version != 3 {
		return nil, ErrUnsupportedPackfileVersion
	}

	count := binary.BigEndian.Uint32(payload[8:12])

	return &Packfile{
		version:     version,
		objectCount: count,
		data:        payload,
		offset:      packfileHeaderSize,
		byOffset:    make(map[int]*decodedObject),
		byHash:      make(map[string]*decodedObject),
	}, nil
}

// Version returns the packfile's declared format version (2 or 3).
func (p *Packfile) Version() uint32 { return p.version }

// ObjectCount returns the number of objects the packfile header declares.
func (p *Packfile) ObjectCount() uint32 { return p.objectCount }

// ReadObject returns the next object in the packfile. Once every declared
// object has been read, the next call returns the trailing checksum
// instead, and the call after that returns io.EOF.
func (p *Packfile) ReadObject() (*packfileEntry, error) {
	if p.trailerSent {
		return nil, io.EOF
	}

	if p.objectsRead >= int(p.objectCount) {
		if len(p.data[p.offset:]) == 0 {
			return nil, ErrPackfileTruncated
		}
		checksum := make([]byte, len(p.data[p.offset:]))
		copy(checksum, p.data[p.offset:])
		p.offset = len(p.data)
		p.trailerSent = true
		return &packfileEntry{Trailer: &PackfileTrailer{Checksum: hash.Hash(checksum)}}, nil
	}

	startOffset := p.offset
	rawType, size, headerLen, err := parseObjectHeader(p.data[p.offset:])
	if err != nil {
		return nil, fmt.Errorf("reading object header at offset %d: %w", startOffset, err)
	}
	p.offset += headerLen

	var baseOffset int
	var baseHashHex string

	switch rawType {
	case ObjectTypeOfsDelta:
		negOffset, consumed, err := parseOfsDeltaOffset(p.data[p.offset:])
		if err != nil {
			return nil, fmt.Errorf("reading ofs-delta offset at offset %d: %w", p.offset, err)
		}
		p.offset += consumed
		baseOffset = startOffset - negOffset
	case ObjectTypeRefDelta:
		const hashLen = 20
		if len(p.data[p.offset:]) < hashLen {
			return nil, fmt.Errorf("reading ref-delta base hash at offset %d: %w", p.offset, ErrPackfileTruncated)
		}
		baseHashHex = hex.EncodeToString(p.data[p.offset : p.offset+hashLen])
		p.offset += hashLen
	}

	content, consumed, err := inflateObject(p.data[p.offset:], int(size))
	if err != nil {
		return nil, fmt.Errorf("inflating object at offset %d: %w", startOffset, err)
	}
	p.offset += consumed
	p.objectsRead++

	resolvedType := rawType
	resolvedData := content

	switch rawType {
	case ObjectTypeOfsDelta, ObjectTypeRefDelta:
		var base *decodedObject
		if rawType == ObjectTypeOfsDelta {
			base = p.byOffset[baseOffset]
		} else {
			base = p.byHash[baseHashHex]
		}
		if base == nil {
			return nil, fmt.Errorf("resolving delta base for object at offset %d: %w", startOffset, errUnresolvedDeltaBase)
		}

		delta, err := parseDelta("", content)
		if err != nil {
			return nil, fmt.Errorf("parsing delta at offset %d: %w", startOffset, err)
		}
		resolvedData, err = ApplyDelta(base.data, delta)
		if err != nil {
			return nil, fmt.Errorf("applying delta at offset %d: %w", startOffset, err)
		}
		resolvedType = base.objType
	}

	decoded := &decodedObject{objType: resolvedType, data: resolvedData}
	p.byOffset[startOffset] = decoded

	objHash, err := hash.Object(crypto.SHA1, object.Type(resolvedType), resolvedData)
	if err != nil {
		return nil, fmt.Errorf("hashing object at offset %d: %w", startOffset, err)
	}
	p.byHash[objHash.String()] = decoded

	obj := &PackfileObject{Hash: objHash, Type: resolvedType, Data: resolvedData}
	switch resolvedType {
	case ObjectTypeTree:
		entries, err := parsePackfileTreeEntries(resolvedData)
		if err != nil {
			return nil, fmt.Errorf("parsing tree object at offset %d: %w", startOffset, err)
		}
		obj.Tree = entries
	case ObjectTypeCommit:
		commit, err := parsePackfileCommit(resolvedData)
		if err != nil {
			return nil, fmt.Errorf("parsing commit object at offset %d: %w", startOffset, err)
		}
		obj.Commit = commit
	}

	return &packfileEntry{Object: obj}, nil
}

// parseObjectHeader reads a packfile object entry header: a 3-bit type and
// a variable-length size, little-endian 7-bit-per-byte after the first
// byte's 4 low bits.
func parseObjectHeader(data []byte) (ObjectType, uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, 0, ErrPackfileTruncated
	}

	b := data[0]
	objType := ObjectType((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)
	consumed := 1

	for b&0x80 != 0 {
		if consumed >= len(data) {
			return 0, 0, 0, ErrPackfileTruncated
		}
		b = data[consumed]
		size |= uint64(b&0x7f) << shift
		shift += 7
		consumed++
	}

	return objType, size, consumed, nil
}

// parseOfsDeltaOffset reads the negative base offset of an OBJ_OFS_DELTA
// entry. Unlike object-header sizes, this varint is big-endian with a bias
// added on each continuation byte, per Git's "offset encoding".
func parseOfsDeltaOffset(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrPackfileTruncated
	}

	c := data[0]
	offset := int(c & 0x7f)
	consumed := 1

	for c&0x80 != 0 {
		if consumed >= len(data) {
			return 0, 0, ErrPackfileTruncated
		}
		c = data[consumed]
		consumed++
		offset = ((offset + 1) << 7) | int(c&0x7f)
	}

	return offset, consumed, nil
}

// countingReader tracks how many bytes have been read from the underlying
// reader, so the caller can tell exactly how much of the packfile was
// consumed by a zlib stream.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

// inflateObject zlib-decompresses a single object's data starting at the
// beginning of data, returning the decompressed content and the number of
// compressed bytes consumed.
func inflateObject(data []byte, expectedSize int) ([]byte, int, error) {
	cr := &countingReader{r: bytes.NewReader(data)}
	zr, err := zlib.NewReader(cr)
	if err != nil {
		return nil, 0, fmt.Errorf("opening zlib stream: %w", err)
	}
	defer zr.Close()

	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, 0, fmt.Errorf("reading zlib stream: %w", err)
	}

	if len(content) != expectedSize {
		return nil, 0, fmt.Errorf("object declared %d bytes but decompressed to %d", expectedSize, len(content))
	}

	return content, cr.n, nil
}

// parsePackfileTreeEntries decodes the body of a tree object: repeated
// "<mode> <name>\0<20-byte hash>" entries with no separator between them.
func parsePackfileTreeEntries(data []byte) ([]PackfileTreeEntry, error) {
	var entries []PackfileTreeEntry

	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("tree entry missing mode separator")
		}
		mode, err := strconv.ParseUint(string(data[:sp]), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing tree entry mode: %w", err)
		}
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("tree entry missing name terminator")
		}
		name := string(data[:nul])
		data = data[nul+1:]

		const rawHashLen = 20
		if len(data) < rawHashLen {
			return nil, fmt.Errorf("tree entry truncated before hash")
		}

		entries = append(entries, PackfileTreeEntry{
			FileMode: uint32(mode),
			FileName: name,
			Hash:     hex.EncodeToString(data[:rawHashLen]),
		})
		data = data[rawHashLen:]
	}

	return entries, nil
}

// parsePackfileCommit decodes the body of a commit object: a header block
// of "tree"/"parent"/"author"/"committer" lines, a blank line, then the
// commit message.
func parsePackfileCommit(data []byte) (*PackfileCommit, error) {
	header, message, ok := bytes.Cut(data, []byte("\n\n"))
	if !ok {
		header, message = data, nil
	}

	commit := &PackfileCommit{Message: string(message)}

	var authorLine, committerLine []byte
	for _, line := range bytes.Split(header, []byte("\n")) {
		switch {
		case bytes.HasPrefix(line, []byte("tree ")):
			treeHash, err := hash.FromHex(string(bytes.TrimPrefix(line, []byte("tree "))))
			if err != nil {
				return nil, fmt.Errorf("parsing tree hash: %w", err)
			}
			commit.Tree = treeHash
		case bytes.HasPrefix(line, []byte("parent ")):
			parentHash, err := hash.FromHex(string(bytes.TrimPrefix(line, []byte("parent "))))
			if err != nil {
				return nil, fmt.Errorf("parsing parent hash: %w", err)
			}
			commit.Parent = parentHash
		case bytes.HasPrefix(line, []byte("author ")):
			authorLine = bytes.TrimPrefix(line, []byte("author "))
		case bytes.HasPrefix(line, []byte("committer ")):
			committerLine = bytes.TrimPrefix(line, []byte("committer "))
		}
	}

	if authorLine != nil {
		identity, err := object.ParseIdentity(string(authorLine))
		if err != nil {
			return nil, fmt.Errorf("parsing author identity: %w", err)
		}
		commit.Author = *identity
	}
	if committerLine != nil {
		identity, err := object.ParseIdentity(string(committerLine))
		if err != nil {
			return nil, fmt.Errorf("parsing committer identity: %w", err)
		}
		commit.Committer = *identity
	}

	return commit, nil
}
