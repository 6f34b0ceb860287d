package client

import (
	"fmt"

	"github.com/ruteri/ddssec-engine/ta"
)

// Code is the library-level error code of a failed command.
type Code int

const (
	CodeParam       Code = -1
	CodeAccess      Code = -2
	CodeSupport     Code = -3
	CodeData        Code = -4
	CodeInit        Code = -5
	CodeTEE         Code = -6
	CodeNotFound    Code = -7
	CodeBadFormat   Code = -8
	CodeMemory      Code = -9
	CodeSecurity    Code = -10
	CodeShortBuffer Code = -11
)

var codeNames = map[Code]string{
	CodeParam:       "PARAM",
	CodeAccess:      "ACCESS",
	CodeSupport:     "SUPPORT",
	CodeData:        "DATA",
	CodeInit:        "INIT",
	CodeTEE:         "TEE",
	CodeNotFound:    "NOT_FOUND",
	CodeBadFormat:   "BAD_FORMAT",
	CodeMemory:      "MEMORY",
	CodeSecurity:    "SECURITY",
	CodeShortBuffer: "SHORT_BUFFER",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// CodeFromResult converts a command result into a library code. Results
// without a dedicated code report CodeTEE.
func CodeFromResult(r ta.Result) Code {
	switch r {
	case ta.ResultBadParameters:
		return CodeParam
	case ta.ResultItemNotFound:
		return CodeNotFound
	case ta.ResultBadFormat:
		return CodeBadFormat
	case ta.ResultOutOfMemory:
		return CodeMemory
	case ta.ResultSecurity:
		return CodeSecurity
	case ta.ResultNoData:
		return CodeData
	case ta.ResultShortBuffer:
		return CodeShortBuffer
	default:
		return CodeTEE
	}
}

// Error is returned by every Client method whose command does not succeed.
type Error struct {
	Command ta.Command
	Result  ta.Result
	Code    Code
}

func newError(cmd ta.Command, r ta.Result) *Error {
	return &Error{Command: cmd, Result: r, Code: CodeFromResult(r)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s (%s)", e.Command, e.Code, e.Result)
}

// Is matches another *Error with the same Code, so callers can test
// errors.Is(err, &client.Error{Code: client.CodeNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}
