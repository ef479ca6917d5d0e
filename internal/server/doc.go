// Package server implements the HTTP surface of the church backend:
// culto posts with images held on the media host, the agenda of events,
// admin login, and the coordination that keeps remote images and database
// rows consistent. It wires routes, dependencies (database, media store,
// token issuer) and lifecycle helpers used by tests and the binary.
package server
