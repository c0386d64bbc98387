package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Dependency cycle detected",
		Detail:   "A memo or effect transitively re-read a value it is currently producing. Break the cycle or derive the value from independent signals.",
		DocURL:   "https://loom-ui.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Effect cascade did not settle",
		Detail:   "Effects kept invalidating each other past the stabilization limit. Two effects are likely writing signals the other one reads.",
		DocURL:   "https://loom-ui.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Scope disposed",
		Detail:   "A signal, memo or effect was used after its owning scope was disposed. This usually means a handler outlived its component.",
		DocURL:   "https://loom-ui.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Render loop degraded",
		Detail:   "The renderer rejected a commit and the loop stopped scheduling work. Fix the renderer and restart the loop.",
		DocURL:   "https://loom-ui.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryRuntime,
		Message:  "Unknown root",
		Detail:   "No component is mounted under the requested root id.",
		DocURL:   "https://loom-ui.dev/docs/errors/E005",
	},
	"E006": {
		Category: CategoryRuntime,
		Message:  "Unknown signal",
		Detail:   "No signal with the requested id is registered with the graph. The component that owned it may have unmounted.",
		DocURL:   "https://loom-ui.dev/docs/errors/E006",
	},

	// ============================================
	// Render Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryRender,
		Message:  "Component returned nil",
		Detail:   "A component render function returned a nil node. Return an element or text node instead.",
		DocURL:   "https://loom-ui.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryRender,
		Message:  "Duplicate key in keyed children",
		Detail:   "Sibling elements share the same key. Keys must be unique within one parent for keyed matching to be stable.",
		DocURL:   "https://loom-ui.dev/docs/errors/E021",
	},

	// ============================================
	// Protocol Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryProtocol,
		Message:  "Handshake rejected",
		Detail:   "The client hello could not be decoded or was refused by the server.",
		DocURL:   "https://loom-ui.dev/docs/errors/E040",
	},
	"E041": {
		Category: CategoryProtocol,
		Message:  "Protocol version mismatch",
		Detail:   "The client and server speak incompatible protocol major versions. Update whichever side is older.",
		DocURL:   "https://loom-ui.dev/docs/errors/E041",
	},
	"E042": {
		Category: CategoryProtocol,
		Message:  "Malformed frame",
		Detail:   "A received frame was shorter than a frame header or carried a truncated payload.",
		DocURL:   "https://loom-ui.dev/docs/errors/E042",
	},
	"E043": {
		Category: CategoryProtocol,
		Message:  "Frame payload too large",
		Detail:   "A single patch exceeds the maximum frame payload and cannot be split further.",
		DocURL:   "https://loom-ui.dev/docs/errors/E043",
	},
	"E044": {
		Category: CategoryProtocol,
		Message:  "Session expired",
		Detail:   "The session id is unknown or the session was closed. The client must start a fresh session.",
		DocURL:   "https://loom-ui.dev/docs/errors/E044",
	},
	"E045": {
		Category: CategoryProtocol,
		Message:  "Sequence gap detected",
		Detail:   "A patch batch skipped ahead of the last applied sequence. Request a replay from the last good sequence.",
		DocURL:   "https://loom-ui.dev/docs/errors/E045",
	},
	"E046": {
		Category: CategoryProtocol,
		Message:  "Server at capacity",
		Detail:   "The server reached its configured session limit and refused the handshake.",
		DocURL:   "https://loom-ui.dev/docs/errors/E046",
	},

	// ============================================
	// Journal Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryJournal,
		Message:  "Replay window exceeded",
		Detail:   "The requested sequence was evicted from the journal ring. The session resyncs from a fresh tree snapshot instead.",
		DocURL:   "https://loom-ui.dev/docs/errors/E060",
	},
	"E061": {
		Category: CategoryJournal,
		Message:  "Archive upload failed",
		Detail:   "An evicted journal frame could not be written to the object store.",
		DocURL:   "https://loom-ui.dev/docs/errors/E061",
	},

	// ============================================
	// Configuration Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategoryConfig,
		Message:  "Invalid loom.json",
		Detail:   "The loom.json configuration file is malformed.",
		DocURL:   "https://loom-ui.dev/docs/errors/E080",
	},
	"E081": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The configured listen address is not a valid host:port.",
		DocURL:   "https://loom-ui.dev/docs/errors/E081",
	},
	"E082": {
		Category: CategoryConfig,
		Message:  "Invalid frame budget",
		Detail:   "The frame budget must be a positive duration such as \"8ms\".",
		DocURL:   "https://loom-ui.dev/docs/errors/E082",
	},
	"E083": {
		Category: CategoryConfig,
		Message:  "Archive bucket missing",
		Detail:   "Journal archiving is enabled but no bucket is configured.",
		DocURL:   "https://loom-ui.dev/docs/errors/E083",
	},
	"E084": {
		Category: CategoryConfig,
		Message:  "Heartbeat exceeds read timeout",
		Detail:   "The heartbeat interval must be shorter than the read timeout or every connection is reaped as idle.",
		DocURL:   "https://loom-ui.dev/docs/errors/E084",
	},
	"E085": {
		Category: CategoryConfig,
		Message:  "Invalid journal capacity",
		Detail:   "The journal capacity must not be negative. Zero selects the default ring size.",
		DocURL:   "https://loom-ui.dev/docs/errors/E085",
	},
	"E086": {
		Category: CategoryConfig,
		Message:  "Invalid metrics namespace",
		Detail:   "The metrics namespace must start with a letter and contain only letters, digits and underscores.",
		DocURL:   "https://loom-ui.dev/docs/errors/E086",
	},

	// ============================================
	// CLI Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryCLI,
		Message:  "Not a loom project",
		Detail:   "No loom.json was found here. Run this command from a directory with loom.json, or pass --config.",
		DocURL:   "https://loom-ui.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryCLI,
		Message:  "Invalid bench target",
		Detail:   "The bench target must be a ws:// or wss:// URL.",
		DocURL:   "https://loom-ui.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryCLI,
		Message:  "Server failed to start",
		Detail:   "The listener could not be opened on the configured address. The port may already be in use.",
		DocURL:   "https://loom-ui.dev/docs/errors/E102",
	},
	"E103": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command line flag was given a value outside its accepted range.",
		DocURL:   "https://loom-ui.dev/docs/errors/E103",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
