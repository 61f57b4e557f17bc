package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDelta = errors.New("the payload given is not a valid delta")
)

// deltaOp is a single instruction from a delta's instruction stream: either
// "copy size bytes from offset in the base object" or "insert these literal
// bytes". See https://git-scm.com/docs/pack-format#_deltified_representation.
type deltaOp struct {
	copy   bool
	offset uint
	size   uint
	data   []byte
}

// Delta is a parsed representation of a pack object stored as ofs-delta or
// ref-delta: a base object length, a target object length, and a stream of
// copy/insert instructions that reconstruct the target from the base.
type Delta struct {
	Parent               string
	ExpectedSourceLength uint
	TargetLength         uint

	ops []deltaOp
}

// parseDelta parses a delta instruction stream as defined by Git's packfile
// format. The payload starts with two size-encoded varints (source length,
// then target length), followed by a sequence of copy/insert instructions.
func parseDelta(parent string, payload []byte) (*Delta, error) {
	delta := &Delta{Parent: parent}

	const minDeltaSize = 2
	if len(payload) < minDeltaSize {
		return nil, ErrInvalidDelta
	}

	delta.ExpectedSourceLength, payload = deltaHeaderSize(payload)
	delta.TargetLength, payload = deltaHeaderSize(payload)

	var produced uint
	for len(payload) > 0 {
		cmd := payload[0]
		payload = payload[1:]

		if cmd == 0 {
			// Reserved instruction, must not appear in a valid delta stream.
			return nil, ErrInvalidDelta
		}

		if cmd&0x80 != 0 {
			// Copy instruction: up to 4 offset bytes and up to 3 size bytes,
			// each present only if its corresponding bit in cmd is set.
			var offset, size uint
			for i := uint(0); i < 4; i++ {
				if cmd&(1<<i) != 0 {
					if len(payload) == 0 {
						return nil, ErrInvalidDelta
					}
					offset |= uint(payload[0]) << (i * 8)
					payload = payload[1:]
				}
			}
			for i := uint(0); i < 3; i++ {
				if cmd&(1<<(i+4)) != 0 {
					if len(payload) == 0 {
						return nil, ErrInvalidDelta
					}
					size |= uint(payload[0]) << (i * 8)
					payload = payload[1:]
				}
			}
			if size == 0 {
				size = 0x10000
			}

			delta.ops = append(delta.ops, deltaOp{copy: true, offset: offset, size: size})
			produced += size
			continue
		}

		// Insert instruction: the low 7 bits are the literal byte count.
		size := uint(cmd & 0x7f)
		if size == 0 || uint(len(payload)) < size {
			return nil, ErrInvalidDelta
		}

		data := make([]byte, size)
		copy(data, payload[:size])
		payload = payload[size:]

		delta.ops = append(delta.ops, deltaOp{copy: false, size: size, data: data})
		produced += size
	}

	if produced != delta.TargetLength {
		return nil, fmt.Errorf("%w: delta produces %d bytes, expected %d", ErrInvalidDelta, produced, delta.TargetLength)
	}

	return delta, nil
}

// ApplyDelta reconstructs a target object from its base content and a
// parsed delta instruction stream.
func ApplyDelta(base []byte, delta *Delta) ([]byte, error) {
	if uint(len(base)) != delta.ExpectedSourceLength {
		return nil, fmt.Errorf("%w: base object is %d bytes, delta expects %d", ErrInvalidDelta, len(base), delta.ExpectedSourceLength)
	}

	target := make([]byte, 0, delta.TargetLength)
	for _, op := range delta.ops {
		if op.copy {
			end := op.offset + op.size
			if end > uint(len(base)) {
				return nil, fmt.Errorf("%w: copy instruction reads past end of base object", ErrInvalidDelta)
			}
			target = append(target, base[op.offset:end]...)
			continue
		}
		target = append(target, op.data...)
	}

	return target, nil
}

// deltaHeaderSize reads a little-endian base-128 varint as used for the
// source/target lengths at the start of a delta stream. Each byte
// contributes 7 bits of the value; the continuation bit (0x80) signals
// that another byte follows.
func deltaHeaderSize(b []byte) (uint, []byte) {
	var size, j uint
	var cmd byte
	for {
		if j == uint(len(b)) {
			break
		}
		cmd = b[j]
		size |= (uint(cmd) & 0x7f) << (j * 7)
		j++
		if cmd&0x80 == 0 {
			break
		}
	}
	return size, b[j:]
}
