// Package api contains the HTTP handlers, request/response types and
// error mapping for the scrape-job API: submission, progress streaming
// over SSE and WebSocket, job control, history and artifact access.
package api
