package ta

import "fmt"

// ParamType is the kind of one parameter slot.
type ParamType uint8

const (
	ParamNone ParamType = iota
	ParamValueInput
	ParamValueOutput
	ParamValueInout
	ParamMemrefInput
	ParamMemrefOutput
	ParamMemrefInout
)

// NumParams is the number of parameter slots of every command.
const NumParams = 4

func (t ParamType) String() string {
	switch t {
	case ParamNone:
		return "none"
	case ParamValueInput:
		return "value-in"
	case ParamValueOutput:
		return "value-out"
	case ParamValueInout:
		return "value-inout"
	case ParamMemrefInput:
		return "memref-in"
	case ParamMemrefOutput:
		return "memref-out"
	case ParamMemrefInout:
		return "memref-inout"
	default:
		return fmt.Sprintf("ParamType(%d)", uint8(t))
	}
}

func (t ParamType) IsMemref() bool {
	return t == ParamMemrefInput || t == ParamMemrefOutput || t == ParamMemrefInout
}

// IsOutput reports whether the slot carries data back to the caller.
func (t ParamType) IsOutput() bool {
	return t == ParamValueOutput || t == ParamValueInout || t == ParamMemrefOutput || t == ParamMemrefInout
}

// ParamTypes packs the kinds of all four slots, 4 bits per slot with slot 0
// in the lowest nibble.
type ParamTypes uint32

// NewParamTypes packs up to four slot kinds. Missing slots are ParamNone.
func NewParamTypes(types ...ParamType) ParamTypes {
	var pt ParamTypes
	for i, t := range types {
		if i >= NumParams {
			break
		}
		pt |= ParamTypes(t&0xF) << (4 * i)
	}
	return pt
}

// Get returns the kind of slot i.
func (pt ParamTypes) Get(i int) ParamType {
	return ParamType((pt >> (4 * i)) & 0xF)
}

func (pt ParamTypes) String() string {
	return fmt.Sprintf("[%s %s %s %s]", pt.Get(0), pt.Get(1), pt.Get(2), pt.Get(3))
}

// Value is the payload of a value slot.
type Value struct {
	A uint32
	B uint32
}

// Param is one parameter slot. Value slots use Value. Memref slots use Buffer
// and Size: for inputs Size is the number of valid bytes in Buffer, for
// outputs it is the room in Buffer on entry and the number of bytes written on
// return.
type Param struct {
	Value  Value
	Buffer []byte
	Size   int
}

// ValueParam returns a value slot.
func ValueParam(a, b uint32) Param {
	return Param{Value: Value{A: a, B: b}}
}

// MemrefParam returns a memref slot covering all of buf.
func MemrefParam(buf []byte) Param {
	return Param{Buffer: buf, Size: len(buf)}
}

// Bytes returns the portion of Buffer holding data.
func (p *Param) Bytes() []byte {
	if p.Size <= 0 || p.Size > len(p.Buffer) {
		return nil
	}
	return p.Buffer[:p.Size]
}
