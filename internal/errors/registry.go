package errors

// Registered error codes.
const (
	CodeMalformedMessage = "B001"
	CodeNotCloneable     = "B002"
	CodeTransportClosed  = "B003"

	CodeMissingTransport = "B101"
	CodeUnknownAction    = "B102"
	CodeDangerousKey     = "B103"
	CodeInvalidKey       = "B104"
	CodeUnknownPatch     = "B105"
	CodeDisposed         = "B106"
	CodeTimeout          = "B107"
	CodeMissingProvider  = "B108"

	CodeUnknownHandler  = "B201"
	CodeUnknownDelegate = "B202"
	CodeHandlerPanic    = "B203"

	CodeConfigNotFound  = "B301"
	CodeConfigInvalid   = "B302"
	CodeInvalidPort     = "B303"
	CodeInvalidDuration = "B304"
	CodeInvalidLogLevel = "B305"

	CodeDialFailed = "B401"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Protocol Errors (B001-B099)
	// ============================================

	CodeMalformedMessage: {
		Category: CategoryProtocol,
		Message:  "Malformed message",
		Detail:   "The value received from the transport is not a recognised envelope.",
	},
	CodeNotCloneable: {
		Category: CategoryProtocol,
		Message:  "Value cannot be cloned",
		Detail:   "Only JSON-representable values can cross the transport. Functions, channels, cycles and non-finite numbers cannot.",
	},
	CodeTransportClosed: {
		Category: CategoryProtocol,
		Message:  "Transport closed",
		Detail:   "The transport was disposed before the message could be sent.",
	},

	// ============================================
	// Client Errors (B101-B199)
	// ============================================

	CodeMissingTransport: {
		Category:   CategoryClient,
		Message:    "Missing transport",
		Detail:     "A client engine was constructed without a transport handle.",
		Suggestion: "Pass the transport returned by transport.Pipe or transport.Dial",
	},
	CodeUnknownAction: {
		Category: CategoryClient,
		Message:  "Unknown action",
		Detail:   "The action is not part of the reducer map this store was built with.",
	},
	CodeDangerousKey: {
		Category: CategoryClient,
		Message:  "Dangerous action key",
		Detail:   "The keys __proto__, constructor and prototype are never valid action names.",
	},
	CodeInvalidKey: {
		Category: CategoryClient,
		Message:  "Invalid action key",
		Detail:   "Action names must be non-empty strings.",
	},
	CodeUnknownPatch: {
		Category:   CategoryClient,
		Message:    "Unknown patch key",
		Detail:     "The host sent a patch for an action the client has no reducer for. Host and client action definitions are out of sync.",
		Suggestion: "Rebuild the client and host from the same action definitions",
	},
	CodeDisposed: {
		Category: CategoryClient,
		Message:  "Client disposed",
		Detail:   "The client was torn down while the request was outstanding.",
	},
	CodeTimeout: {
		Category: CategoryClient,
		Message:  "Request timed out",
		Detail:   "No response or error arrived before the caller-supplied timeout elapsed.",
	},
	CodeMissingProvider: {
		Category: CategoryClient,
		Message:  "Missing provider id",
		Detail:   "Stores and action dispatchers must be bound to a non-empty provider id.",
	},

	// ============================================
	// Host Errors (B201-B299)
	// ============================================

	CodeUnknownHandler: {
		Category: CategoryHost,
		Message:  "No handler registered",
		Detail:   "The request named an operation the host does not provide.",
	},
	CodeUnknownDelegate: {
		Category:   CategoryHost,
		Message:    "No action delegate registered",
		Detail:     "The client dispatched an action the host has no delegate for. This is a build-time mismatch, not a user error.",
		Suggestion: "Define a delegate for every action in the shared action interface",
	},
	CodeHandlerPanic: {
		Category: CategoryHost,
		Message:  "Handler panicked",
		Detail:   "A request handler or action delegate panicked. The panic was recovered.",
	},

	// ============================================
	// Config Errors (B301-B399)
	// ============================================

	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Suggestion: "Run 'bridge serve' without --config to use defaults",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "bridge.json could not be read or parsed.",
	},
	CodeInvalidPort: {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "Port must be between 0 and 65535.",
	},
	CodeInvalidDuration: {
		Category:   CategoryConfig,
		Message:    "Invalid duration",
		Suggestion: `Use Go duration syntax such as "10s" or "250ms"`,
	},
	CodeInvalidLogLevel: {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "Log level must be one of debug, info, warn or error.",
	},

	// ============================================
	// CLI Errors (B401-B499)
	// ============================================

	CodeDialFailed: {
		Category:   CategoryCLI,
		Message:    "Could not connect to host",
		Suggestion: "Check that 'bridge serve' is running and the --url is correct",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
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
