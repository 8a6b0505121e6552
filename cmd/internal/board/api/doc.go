// Package boardapi exposes the task board over HTTP. Every route requires a
// verified access token; the handler translates the authenticated principal
// into a board actor and maps the board error kinds onto status codes.
package boardapi
