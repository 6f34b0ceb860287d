// Package common holds process-wide constants and logger setup shared by the
// commands and the HTTP server.
package common
