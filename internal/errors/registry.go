package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Validation Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryValidation,
		Message:  "Board name is empty",
		Detail:   "A board name must contain at least one non-whitespace character.",
	},
	"E102": {
		Category: CategoryValidation,
		Message:  "Note content exceeds maximum length",
		Detail:   "Note content is capped at 10000 characters. Updates over the cap are rejected, not truncated.",
	},
	"E103": {
		Category: CategoryValidation,
		Message:  "Sticker scale out of range",
		Detail:   "Sticker scale must be within [0.5, 2.0].",
	},
	"E104": {
		Category: CategoryValidation,
		Message:  "Unknown font size",
		Detail:   "Font size must be one of: small, medium, large.",
	},
	"E105": {
		Category: CategoryValidation,
		Message:  "Note size is not positive",
		Detail:   "Note width and height must both be greater than zero.",
	},
	"E106": {
		Category: CategoryValidation,
		Message:  "Merged note failed validation",
		Detail:   "The field-merged note violates a model invariant; the prior state was preserved.",
	},

	// ============================================
	// Protocol Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryProtocol,
		Message:  "Malformed message envelope",
		Detail:   "The envelope could not be parsed or is missing type, timestamp, or session id.",
	},
	"E202": {
		Category: CategoryProtocol,
		Message:  "Unknown operation type",
		Detail:   "The envelope type does not name a supported operation.",
	},
	"E203": {
		Category: CategoryProtocol,
		Message:  "Malformed operation payload",
		Detail:   "The payload does not match the shape required by the operation type.",
	},
	"E204": {
		Category: CategoryProtocol,
		Message:  "Message too large",
		Detail:   "The message exceeds the configured maximum size and was dropped.",
	},

	// ============================================
	// Persistence Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryPersistence,
		Message:  "Snapshot save failed",
		Detail:   "Writing the board snapshot failed after retry exhaustion. State remains served from memory.",
	},
	"E302": {
		Category: CategoryPersistence,
		Message:  "Snapshot load failed",
		Detail:   "Reading the board snapshot failed after retry exhaustion.",
	},
	"E303": {
		Category: CategoryPersistence,
		Message:  "Storage initialization failed",
		Detail:   "The snapshot storage location could not be created or verified.",
	},

	// ============================================
	// Transport Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategoryTransport,
		Message:  "Connection closed",
		Detail:   "The peer closed the connection or the connection was lost.",
	},
	"E402": {
		Category: CategoryTransport,
		Message:  "Send queue full",
		Detail:   "The session's outbound queue overflowed; the session is treated as a slow consumer and closed.",
	},

	// ============================================
	// Config Errors (E500-E599)
	// ============================================

	"E501": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be parsed or contains invalid values.",
	},
}
