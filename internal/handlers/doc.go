// Package handlers implements the HTTP API of the catalog server: search,
// tag listing, scan control with live progress over WebSocket, asset and
// file serving, thumbnails, catalog reset and single-user authentication.
package handlers
