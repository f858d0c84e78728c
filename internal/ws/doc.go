// Package ws implements the WebSocket hub for live statistics streaming.
//
// Clients connect to /ws/stream and receive a JSON message with the current
// context store statistics immediately on connect, then again on every
// broadcast tick. Slow clients whose outgoing buffer fills up are
// disconnected rather than allowed to stall the broadcast loop.
package ws
