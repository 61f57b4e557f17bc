package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Acknowledgements contains whether a nack ("NAK") was received, or a list of ACKs, and for which objects those apply.
// If Nack is true, Acks is always empty. If Nack is false, Acks may be non-empty.
// The objects returned in Acks are always requested. Not all requested objects are necessarily listed.
// Not all sent objects are included in the list, and it may even be empty even if a cut point is found. This is an optimisation by the Git server.
//
// Git documentation defines the format as:
//
//	acknowledgments = PKT-LINE("acknowledgments" LF)
//	    (nak | *ack)
//	    (ready)
//	ready = PKT-LINE("ready" LF)
//	nak = PKT-LINE("NAK" LF)
//	ack = PKT-LINE("ACK" SP obj-id LF)
type Acknowledgements struct {
	// Invariant: Nack == true => Acks == nil
	//            Nack == false => len(Acks) >= 0

	Nack bool
	// FIXME: Are obj-ids fine as strings? Do we want a more proper type for them?
	//    obj-id    =  40*(HEXDIGIT)
	Acks []string
}

type Shallowness string

const (
	Shallow   = Shallowness("shallow")
	Unshallow = Shallowness("unshallow")
)

// ShallowInfo is sent when a shallow fetch or clone is requested.
//
//	shallow-info section
//	* If the client has requested a shallow fetch/clone, a shallow
//	  client requests a fetch or the server is shallow then the
//	  server's response may include a shallow-info section.  The
//	  shallow-info section will be included if (due to one of the
//	  above conditions) the server needs to inform the client of any
//	  shallow boundaries or adjustments to the clients already
//	  existing shallow boundaries.
type ShallowInfo struct {
	Shallowness Shallowness
	// FIXME: obj-id type?
	Object string
}

type WantedRef struct {
	// FIXME: obj-id type?
	Object  string
	RefName RefName
}

// FatalFetchError is the fatal error message a server sends on the
// packfile section's stream-code-3 channel, just before it aborts the
// stream. It implements error directly off of its string value so it
// compares equal (and so satisfies errors.Is) to another FatalFetchError
// built from the same message.
type FatalFetchError string

func (e FatalFetchError) Error() string { return string(e) }

// ErrInvalidFetchStatus is returned from a FetchResponse's Packfile reader
// when the packfile section sends a stream code other than the three Git
// defines (1 = pack data, 2 = progress, 3 = fatal error).
var ErrInvalidFetchStatus = errors.New("invalid fetch status code")

// fetchPackfileStreamCode identifies what a packfile-section pkt-line
// carries, per the side-band-64k multiplexing used during fetch.
type fetchPackfileStreamCode byte

const (
	fetchStreamPackData fetchPackfileStreamCode = 1
	fetchStreamProgress fetchPackfileStreamCode = 2
	fetchStreamFatal    fetchPackfileStreamCode = 3
)

// FetchPackfile is the lazily-resolved packfile carried by a FetchResponse.
// ParseFetchResponse always returns a non-nil FetchPackfile, even when the
// server sent no packfile section at all; errors that occurred while
// collecting the packfile's bytes only surface once ReadObject is called.
type FetchPackfile struct {
	inner *Packfile
	err   error
}

// ReadObject returns the next object of the underlying packfile. See
// Packfile.ReadObject for the exact semantics once decoding is underway.
func (f *FetchPackfile) ReadObject() (*packfileEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.inner == nil {
		return nil, io.EOF
	}
	return f.inner.ReadObject()
}

// FetchResponse is the result of a Git protocol v2 fetch command.
// ParseFetchResponse only fills in Packfile: the acknowledgements,
// shallow-info and wanted-refs sections are read past, so Acks, Shallow
// and WantedRefs stay at their zero values.
type FetchResponse struct {
	Acks       Acknowledgements
	Shallow    []ShallowInfo
	WantedRefs []WantedRef

	// Packfile contains the majority of the information a fetch cares
	// about: the objects the server decided to send.
	Packfile *FetchPackfile
}

// ParseFetchResponse parses a Git protocol v2 fetch response, pkt-line by
// pkt-line, directly off of reader. The packfile section's pack-data bytes
// are accumulated in memory until the response ends, and only decoded into
// objects once FetchResponse.Packfile.ReadObject is called.
func ParseFetchResponse(reader io.ReadCloser) (*FetchResponse, error) {
	defer reader.Close()

	resp := &FetchResponse{}

	var packData bytes.Buffer
	var havePackData bool
	var streamErr error

	section := ""

	for {
		lengthBytes := make([]byte, PktLineLengthSize)
		if _, err := io.ReadFull(reader, lengthBytes); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading packet length: %w", err)
		}

		length, err := strconv.ParseUint(string(lengthBytes), 16, 16)
		if err != nil {
			return nil, fmt.Errorf("parsing packet length: %w", err)
		}

		if length < 4 {
			// Flush, delimiter, or response-end packet: ends the current section.
			section = ""
			continue
		}

		data := make([]byte, length-4)
		if _, err := io.ReadFull(reader, data); err != nil {
			return nil, fmt.Errorf("reading packet data: %w", eofIsUnexpected(err))
		}

		switch section {
		case "packfile":
			if len(data) == 0 {
				continue
			}
			code := fetchPackfileStreamCode(data[0])
			payload := data[1:]
			switch code {
			case fetchStreamPackData:
				packData.Write(payload)
				havePackData = true
			case fetchStreamProgress:
				// Progress messages are informational only.
			case fetchStreamFatal:
				if streamErr == nil {
					streamErr = FatalFetchError(string(bytes.TrimSuffix(payload, []byte("\n"))))
				}
			default:
				if streamErr == nil {
					streamErr = ErrInvalidFetchStatus
				}
			}
		case "acknowledgements":
			// TODO: parse NAK/ACK lines into resp.Acks.
		case "shallow-info", "wanted-refs":
			// Not needed by any current caller; skip.
		default:
			switch string(bytes.TrimSuffix(data, []byte("\n"))) {
			case "acknowledgements", "shallow-info", "wanted-refs", "packfile":
				section = string(bytes.TrimSuffix(data, []byte("\n")))
			}
		}
	}

	packfile := &FetchPackfile{}
	switch {
	case streamErr != nil:
		packfile.err = streamErr
	case havePackData:
		inner, err := ParsePackfile(packData.Bytes())
		if err != nil {
			packfile.err = err
		} else {
			packfile.inner = inner
		}
	}
	resp.Packfile = packfile

	return resp, nil
}
