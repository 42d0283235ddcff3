// Package amqp implements the channel layer of an asynchronous AMQP 0-9-1
// client: it multiplexes a single connection into independent Channel
// values, encodes outbound method and content frames, correlates
// synchronous request/response exchanges, dispatches asynchronous
// deliveries and returns to caller-registered callbacks, and resolves
// publisher confirms for the waiting Publish calls.
//
// This package does not open sockets, negotiate TLS, perform the protocol
// handshake, send heartbeats, or decode/encode frames on the wire: all of
// that lives behind the Connection interface, which a caller supplies.
// Likewise out of scope: server-side behavior, message persistence,
// automatic reconnection or topology recovery, and distributed
// transactions. A Channel only ever does what its caller asks it to do,
// once, and reports what happened.
package amqp
