// Package ta is the invocation channel into the engine. A caller addresses an
// operation by Command and passes four typed parameter slots; the session
// checks the slots, dispatches to the engine and maps the outcome to a
// GlobalPlatform-style Result.
//
// Validation happens before dispatch and in this order: memref slots must be
// backed by a buffer at least as large as their declared size, the command
// must exist, and the slot kinds must match the command's signature exactly.
// None of these failures touch the engine.
package ta
