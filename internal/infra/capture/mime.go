package capture

// mimeCandidates is the fixed probe order for container negotiation. The
// first type the recorder reports as supported wins.
var mimeCandidates = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/mp4",
	"audio/ogg;codecs=opus",
	"audio/wav",
}

// DefaultMimeType is used when no candidate is reported as supported.
// Recording proceeds anyway; some recorders under-report their support.
const DefaultMimeType = "audio/webm"

// NegotiateMimeType returns the first candidate the given probe accepts,
// or DefaultMimeType when none are accepted. It never fails.
func NegotiateMimeType(supported func(mimeType string) bool) string {
	for _, c := range mimeCandidates {
		if supported(c) {
			return c
		}
	}
	return DefaultMimeType
}
