// Package errors provides coded, categorised errors for the bridge.
//
// Every error a caller can reasonably branch on has a stable code that maps
// to a registered template:
//   - A short message describing the error
//   - A longer explanation
//   - An optional hint on how to fix it
//
// # Error Categories
//
//   - protocol: malformed envelopes, values that cannot cross the transport
//   - client: failures raised on the webview side before anything is sent
//   - host: failures raised while dispatching requests and actions
//   - config: invalid or missing bridge.json
//   - cli: command line failures
//
// # Comparing Errors
//
// Two *BridgeError values compare equal under errors.Is when their codes
// match, so packages can export sentinels built with New and still attach
// per-call subjects:
//
//	var ErrUnknownAction = errors.New(errors.CodeUnknownAction)
//
//	return errors.New(errors.CodeUnknownAction).WithSubject(key)
//
//	// elsewhere
//	if stderrors.Is(err, reducer.ErrUnknownAction) { ... }
//
// # Terminal Output
//
// The CLI prints errors with Format:
//
//	ERROR B301: Config file not found
//
//	  No bridge.json found in /srv/app
//
//	  Hint: Run 'bridge serve' without --config to use defaults
package errors
