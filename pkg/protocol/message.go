package protocol

// Type is the discriminator carried in every envelope's "type" field.
type Type string

const (
	TypeRequest  Type = "request"
	TypeResponse Type = "response"
	TypeError    Type = "error"
	TypeEvent    Type = "event"
	TypeAct      Type = "act"
	TypePatch    Type = "patch"
	TypeLog      Type = "log"
)

// String returns the wire form of the type.
func (t Type) String() string {
	return string(t)
}

// LogLevel is the severity carried by a log envelope.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Valid reports whether l is one of the four wire levels.
func (l LogLevel) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	default:
		return false
	}
}

// RequestContext describes the view a request originated from. It is
// diagnostic only and never affects routing.
type RequestContext struct {
	ViewID    string `json:"viewId"`
	ViewType  string `json:"viewType"`
	Timestamp int64  `json:"timestamp"` // milliseconds since the Unix epoch
	SessionID string `json:"sessionId,omitempty"`
}

// Request invokes a named host operation.
type Request struct {
	Type    Type            `json:"type"`
	ID      string          `json:"id"`
	Key     string          `json:"key"`
	Params  []any           `json:"params"`
	Context *RequestContext `json:"context,omitempty"`
}

// Response carries a successful result. A nil Value is omitted on the wire.
type Response struct {
	Type  Type   `json:"type"`
	ID    string `json:"id"`
	Value any    `json:"value,omitempty"`
}

// Error carries a failed result as a human-readable message.
type Error struct {
	Type  Type   `json:"type"`
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Event is a host-initiated, uncorrelated notification.
type Event struct {
	Type  Type   `json:"type"`
	Key   string `json:"key"`
	Value []any  `json:"value"`
}

// Act asks the host to perform a state transition for one provider.
type Act struct {
	Type       Type   `json:"type"`
	ProviderID string `json:"providerId"`
	Key        string `json:"key"`
	Params     []any  `json:"params"`
}

// Patch is the result of an action, folded into client state by a reducer.
// The patch field is always present, null when the delegate returned nil.
type Patch struct {
	Type       Type   `json:"type"`
	ProviderID string `json:"providerId"`
	Key        string `json:"key"`
	Patch      any    `json:"patch"`
}

// Log forwards one structured log line.
type Log struct {
	Type    Type     `json:"type"`
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
}

func params(p []any) []any {
	if p == nil {
		return []any{}
	}
	return p
}

// NewRequest creates a request envelope.
func NewRequest(id, key string, p []any, ctx *RequestContext) *Request {
	return &Request{Type: TypeRequest, ID: id, Key: key, Params: params(p), Context: ctx}
}

// NewResponse creates a response envelope.
func NewResponse(id string, value any) *Response {
	return &Response{Type: TypeResponse, ID: id, Value: value}
}

// NewError creates an error envelope.
func NewError(id, message string) *Error {
	return &Error{Type: TypeError, ID: id, Value: message}
}

// NewEvent creates an event envelope.
func NewEvent(key string, args ...any) *Event {
	return &Event{Type: TypeEvent, Key: key, Value: params(args)}
}

// NewAct creates an act envelope.
func NewAct(providerID, key string, p []any) *Act {
	return &Act{Type: TypeAct, ProviderID: providerID, Key: key, Params: params(p)}
}

// NewPatch creates a patch envelope.
func NewPatch(providerID, key string, patch any) *Patch {
	return &Patch{Type: TypePatch, ProviderID: providerID, Key: key, Patch: patch}
}

// NewLog creates a log envelope.
func NewLog(level LogLevel, message string, data any) *Log {
	return &Log{Type: TypeLog, Level: level, Message: message, Data: data}
}
