package ta

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/engine"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// Observer receives the outcome of every command.
type Observer interface {
	ObserveCommand(command, result string, duration time.Duration)
}

type handler func(c *call) error

type command struct {
	types   ParamTypes
	handler handler
}

// Session is one caller's channel into a shared engine. Sessions hold no
// state of their own; every handle lives in the engine.
type Session struct {
	engine   *engine.Engine
	log      *slog.Logger
	observer Observer
}

// NewSession opens a session on e. observer may be nil.
func NewSession(e *engine.Engine, log *slog.Logger, observer Observer) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		engine:   e,
		log:      log,
		observer: observer,
	}
}

// InvokeCommand validates params against types and the command's signature,
// runs the command and copies outputs back into params. Input buffers are
// copied before use and outputs are only written on success; on failure the
// size of every output memref is 0.
func (s *Session) InvokeCommand(ctx context.Context, cmd Command, types ParamTypes, params *[NumParams]Param) Result {
	start := time.Now()
	result, err := s.invoke(ctx, cmd, types, params)
	if err != nil {
		s.log.Debug("Command failed",
			slog.String("command", cmd.String()),
			slog.String("result", result.String()),
			"err", err)
	}
	if s.observer != nil {
		s.observer.ObserveCommand(cmd.String(), result.String(), time.Since(start))
	}
	return result
}

func (s *Session) invoke(ctx context.Context, cmd Command, types ParamTypes, params *[NumParams]Param) (Result, error) {
	if params == nil {
		return ResultBadParameters, fmt.Errorf("%w: nil parameter block", interfaces.ErrBadParameters)
	}
	if err := checkMemrefs(types, params); err != nil {
		return ResultBadParameters, err
	}

	def, ok := commandTable[cmd]
	if !ok {
		return ResultNotSupported, fmt.Errorf("unknown command %d", uint32(cmd))
	}
	if types != def.types {
		return ResultBadParameters, fmt.Errorf("%w: %s expects %s, got %s", interfaces.ErrBadParameters, cmd, def.types, types)
	}

	c := &call{ctx: ctx, engine: s.engine, params: params}
	defer c.wipe()

	err := def.handler(c)
	if err == nil {
		err = c.copyOut(types)
	}
	if err != nil {
		zeroOutputSizes(types, params)
		return ResultFromError(err), err
	}
	return ResultSuccess, nil
}

// checkMemrefs rejects memref slots whose declared size the buffer cannot back.
func checkMemrefs(types ParamTypes, params *[NumParams]Param) error {
	for i := 0; i < NumParams; i++ {
		if !types.Get(i).IsMemref() {
			continue
		}
		p := &params[i]
		switch {
		case p.Buffer == nil && p.Size != 0:
			return fmt.Errorf("%w: slot %d has no buffer but size %d", interfaces.ErrBadParameters, i, p.Size)
		case p.Size < 0 || p.Size > len(p.Buffer):
			return fmt.Errorf("%w: slot %d size %d exceeds buffer of %d bytes", interfaces.ErrBadParameters, i, p.Size, len(p.Buffer))
		}
	}
	return nil
}

func zeroOutputSizes(types ParamTypes, params *[NumParams]Param) {
	for i := 0; i < NumParams; i++ {
		if t := types.Get(i); t.IsMemref() && t.IsOutput() {
			params[i].Size = 0
		}
	}
}

// call is the state of one dispatched command. Handlers read inputs through
// it and stage outputs, which copyOut writes back.
type call struct {
	ctx    context.Context
	engine *engine.Engine
	params *[NumParams]Param

	values  [NumParams]*Value
	outputs [NumParams][]byte
}

func (c *call) value(i int) Value {
	return c.params[i].Value
}

func (c *call) handle(i int) interfaces.HandleID {
	return interfaces.HandleID(int32(c.params[i].Value.A))
}

// input returns a private copy of memref slot i.
func (c *call) input(i int) []byte {
	return bytes.Clone(c.params[i].Bytes())
}

// name reads memref slot i as an object name, stopping at the first NUL.
func (c *call) name(i int) string {
	b := c.params[i].Bytes()
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return string(b)
}

// room returns the size the caller declared for memref slot i.
func (c *call) room(i int) int {
	return c.params[i].Size
}

func (c *call) setValue(i int, a, b uint32) {
	c.values[i] = &Value{A: a, B: b}
}

func (c *call) setHandle(i int, h interfaces.HandleID) {
	c.setValue(i, uint32(h), 0)
}

func (c *call) setOutput(i int, data []byte) {
	c.outputs[i] = data
}

// copyOut checks every staged memref output fits before writing any of them.
func (c *call) copyOut(types ParamTypes) error {
	for i := 0; i < NumParams; i++ {
		if !types.Get(i).IsMemref() || c.outputs[i] == nil {
			continue
		}
		if len(c.outputs[i]) > c.params[i].Size {
			return fmt.Errorf("%w: slot %d needs %d bytes, has %d", interfaces.ErrShortBuffer, i, len(c.outputs[i]), c.params[i].Size)
		}
	}
	for i := 0; i < NumParams; i++ {
		t := types.Get(i)
		switch {
		case t.IsMemref() && t.IsOutput():
			n := copy(c.params[i].Buffer, c.outputs[i])
			c.params[i].Size = n
		case t.IsOutput() && c.values[i] != nil:
			c.params[i].Value = *c.values[i]
		}
	}
	return nil
}

// wipe zeroes staged outputs, which may hold key bytes.
func (c *call) wipe() {
	for i := range c.outputs {
		cryptoutils.Wipe(c.outputs[i])
		c.outputs[i] = nil
	}
}
