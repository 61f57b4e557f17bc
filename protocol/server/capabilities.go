package server

// Capabilities is an ordered set of protocol capability tokens, as
// advertised after the first ref line and as selected by the client's
// first "want"/command line. Grounded on the teacher's wire-format
// vocabulary and the capability-set shape surveyed from
// other_examples' omegaup-githttp protocol.go (pullCapabilities/
// pushCapabilities as plain string slices).
type Capabilities []string

// Contains reports whether cap is present.
func (c Capabilities) Contains(cap string) bool {
	for _, existing := range c {
		if existing == cap {
			return true
		}
	}
	return false
}

// Intersect returns the capabilities in c that also appear in other,
// preserving c's order — used to compute the effective capability set
// from what the server advertised and what the client selected.
func (c Capabilities) Intersect(other Capabilities) Capabilities {
	var out Capabilities
	for _, cap := range c {
		if other.Contains(cap) {
			out = append(out, cap)
		}
	}
	return out
}

// Common capabilities advertised regardless of service.
var commonCapabilities = Capabilities{"side-band-64k", "quiet", "report-status"}

// UploadPackOnly capabilities, advertised only for git-upload-pack.
var uploadPackCapabilities = Capabilities{
	"multi_ack", "thin-pack", "ofs-delta", "shallow", "no-progress",
	"include-tag", "allow-tip-sha1-in-want", "allow-reachable-sha1-in-want",
}

// ReceivePackOnly capabilities, advertised only for git-receive-pack.
var receivePackCapabilities = Capabilities{
	"report-status-v2", "delete-refs", "push-options", "atomic",
}

// DefaultCapabilities returns the capability set advertised for
// service, one of "git-upload-pack" or "git-receive-pack".
func DefaultCapabilities(service string) Capabilities {
	out := append(Capabilities{}, commonCapabilities...)
	switch service {
	case "git-upload-pack":
		out = append(out, uploadPackCapabilities...)
	case "git-receive-pack":
		out = append(out, receivePackCapabilities...)
	}
	return out
}
