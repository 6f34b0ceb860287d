// Package client is the typed caller-side API of the engine. Each method
// builds the parameter block for one command, invokes it over a ta.Session
// and converts a failed result into an *Error carrying a library Code.
package client
