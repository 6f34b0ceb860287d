package ta

import (
	"errors"
	"fmt"

	"github.com/ruteri/ddssec-engine/interfaces"
)

// Result is the GlobalPlatform-style status word of a command.
type Result uint32

const (
	ResultSuccess       Result = 0x00000000
	ResultGeneric       Result = 0xFFFF0000
	ResultAccessDenied  Result = 0xFFFF0001
	ResultBadFormat     Result = 0xFFFF0005
	ResultBadParameters Result = 0xFFFF0006
	ResultBadState      Result = 0xFFFF0007
	ResultItemNotFound  Result = 0xFFFF0008
	ResultNotSupported  Result = 0xFFFF000A
	ResultNoData        Result = 0xFFFF000B
	ResultOutOfMemory   Result = 0xFFFF000C
	ResultSecurity      Result = 0xFFFF000F
	ResultShortBuffer   Result = 0xFFFF0010
	ResultOverflow      Result = 0xFFFF300F
)

var resultNames = map[Result]string{
	ResultSuccess:       "success",
	ResultGeneric:       "generic",
	ResultAccessDenied:  "access_denied",
	ResultBadFormat:     "bad_format",
	ResultBadParameters: "bad_parameters",
	ResultBadState:      "bad_state",
	ResultItemNotFound:  "item_not_found",
	ResultNotSupported:  "not_supported",
	ResultNoData:        "no_data",
	ResultOutOfMemory:   "out_of_memory",
	ResultSecurity:      "security",
	ResultShortBuffer:   "short_buffer",
	ResultOverflow:      "overflow",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("result_0x%08x", uint32(r))
}

// errorResults is checked in order and the first sentinel err wraps wins.
// A joined multi-store error reports as generic whatever its backend causes are.
var errorResults = []struct {
	err    error
	result Result
}{
	{interfaces.ErrBackendUnavailable, ResultGeneric},
	{interfaces.ErrReadOnlyStore, ResultAccessDenied},
	{interfaces.ErrBadParameters, ResultBadParameters},
	{interfaces.ErrNotFound, ResultItemNotFound},
	{interfaces.ErrObjectNotFound, ResultItemNotFound},
	{interfaces.ErrCapacityExhausted, ResultOutOfMemory},
	{interfaces.ErrNoMoreRoom, ResultOutOfMemory},
	{interfaces.ErrOutOfMemory, ResultOutOfMemory},
	{interfaces.ErrAlreadyInitialized, ResultNoData},
	{interfaces.ErrMissingData, ResultNoData},
	{interfaces.ErrBadFormat, ResultBadFormat},
	{interfaces.ErrSecurity, ResultSecurity},
	{interfaces.ErrAuthentication, ResultSecurity},
	{interfaces.ErrShortBuffer, ResultShortBuffer},
	{interfaces.ErrSizeLimit, ResultShortBuffer},
	{interfaces.ErrOverflow, ResultOverflow},
	{interfaces.ErrBadState, ResultBadState},
}

// ResultFromError maps an engine error to its result code.
func ResultFromError(err error) Result {
	if err == nil {
		return ResultSuccess
	}
	for _, m := range errorResults {
		if errors.Is(err, m.err) {
			return m.result
		}
	}
	return ResultGeneric
}
