// Package realtime pushes board changes to connected clients over WebSocket.
//
// The flow is one-directional: the board service publishes events into the
// Hub, the Hub fans them out to every connected client. Clients authenticate
// with an access token at connect time and do not send commands; all
// mutations go through the HTTP API.
package realtime
