package protocol

// Wire limits. Envelopes over MaxMessageBytes are rejected before any
// payload decoding happens.
const (
	// MaxMessageBytes bounds a single wire message. Sized to fit a note
	// carrying embedded image data URIs with room to spare.
	MaxMessageBytes = 1 << 20 // 1 MiB

	// MaxPendingSends bounds a session's outbound queue before the
	// session is treated as a slow consumer and closed.
	MaxPendingSends = 256
)
