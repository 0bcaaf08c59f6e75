// Package protocol defines the envelopes exchanged between a host and a
// sandboxed webview client, and the guards that admit them.
//
// Both sides can only exchange structurally-cloned values through an
// asynchronous transport. In Go that means JSON-representable trees:
// map[string]any, []any, string, float64, bool and nil. Nothing arriving from
// a transport is trusted; every inbound value passes through one of the Is*
// guards (or the matching Parse* function) before protocol logic sees it.
//
// # Envelopes
//
// Every envelope is a JSON object discriminated by its "type" field:
//
//	request   client → host   {type, id, key, params, context?}
//	response  host → client   {type, id, value?}
//	error     host → client   {type, id, value}
//	event     host → client   {type, key, value}
//	act       client → host   {type, providerId, key, params}
//	patch     host → client   {type, providerId, key, patch}
//	log       either → host   {type, level, message, data?}
//
// Requests are correlated with their response or error by id. Events are
// broadcast and uncorrelated. Acts and patches are routed by providerId and
// key.
//
// # Guards
//
// Guards never panic and never return partial answers:
//
//   - nil, non-object and array values are rejected outright
//   - the "type" literal must match exactly
//   - mandatory fields must be present with the exact primitive kind
//   - optional fields, when present, are validated with the same strictness
//   - unknown extra properties are always permitted
//
// # Usage Example
//
//	msg, err := protocol.Decode(frame)
//	if err != nil {
//	    return
//	}
//	switch protocol.Classify(msg) {
//	case protocol.TypeRequest:
//	    req, _ := protocol.ParseRequest(msg)
//	    // dispatch req.Key with req.Params
//	case protocol.TypePatch:
//	    patch, _ := protocol.ParsePatch(msg)
//	    // fold patch.Patch into local state
//	}
//
// # File Structure
//
//   - message.go: envelope types and constructors
//   - guard.go: runtime type guards
//   - parse.go: guard-then-convert helpers
//   - id.go: request id generation
//   - clone.go: structured-clone emulation and the JSON codec
package protocol
