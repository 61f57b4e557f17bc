package protocol

import (
	"bytes"
	"fmt"
)

// RefLine represents a single advertised reference as returned by the
// ls-refs command of the Git smart protocol v2.
//
// The wire format for each ref line is:
//
//	<oid> SP <refname> *(SP <ref-attribute>) LF
//
// where ref-attribute is one of "symref-target:<target>" or "peeled:<oid>"
// when the corresponding capability was requested. We don't request either
// capability today, so Attributes simply captures whatever trailing tokens
// the server sent.
type RefLine struct {
	Hash        string
	RefName     string
	Attributes  []string
	SymrefTarget string
}

// ParseRefLine parses a single pkt-line payload from an ls-refs response.
// The payload must not include the leading 4-byte pkt-line length or the
// trailing newline framing; it is the raw packet body.
func ParseRefLine(packetData []byte) (RefLine, error) {
	line := bytes.TrimSuffix(packetData, []byte("\n"))
	if len(line) == 0 {
		return RefLine{}, nil
	}

	fields := bytes.Split(line, []byte(" "))
	if len(fields) < 2 {
		return RefLine{}, fmt.Errorf("invalid ref line %q: expected \"<oid> <refname>\"", line)
	}

	ref := RefLine{
		Hash:    string(fields[0]),
		RefName: string(fields[1]),
	}

	for _, attr := range fields[2:] {
		ref.Attributes = append(ref.Attributes, string(attr))
		if target, ok := bytes.CutPrefix(attr, []byte("symref-target:")); ok {
			ref.SymrefTarget = string(target)
		}
	}

	return ref, nil
}
