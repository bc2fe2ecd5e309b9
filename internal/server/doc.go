// Package server implements the HTTP and WebSocket server functionality for
// GoChat.
//
// The Hub owns all presence state and runs it on a single goroutine; clients,
// HTTP handlers, and the message store talk to it only through channels. The
// remaining files cover configuration, origin checks, rate limiting, routing,
// and request logging.
package server
