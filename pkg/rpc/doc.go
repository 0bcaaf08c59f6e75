// Package rpc implements request/response correlation over a transport.
//
// The client side issues request envelopes and settles a Future when the
// matching response or error envelope arrives:
//
//	client, err := rpc.NewClient(t)
//	value, err := client.Call(ctx, "fetchData", "x")
//
// Correlation is by request id only, so replies may arrive in any order.
// A reply whose id is no longer pending is dropped, which covers duplicate
// delivery, late delivery after a timeout and replies meant for a disposed
// client. No default timeout is enforced; callers arm the timeout slot with
// Client.SetTimeout or WithDefaultTimeout.
//
// The host side is a Dispatcher mapping keys to handlers. Every request is
// answered with the id it carried: a handler error, an unknown key or a
// recovered panic becomes an error envelope whose value is the error
// message.
package rpc
