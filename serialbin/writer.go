package serialbin

import (
	"fmt"
	"io"
)

// WriterState is a step-oriented serializer (spec §4.3.2): each Step call
// advances by at most one command's worth of work and returns InProgress,
// Finished, or Failed, so a caller can cooperatively multiplex many
// in-flight writes.
type WriterState struct {
	resolver TypeResolver
	cache    *ScriptCache
	reg      *Registry

	stack []*writerFrame
}

type writerFrame struct {
	script *Script
	inst   Instance
	condVals []bool

	commandIdx int
	arrayIdx   int
	arr        ArrayAccessor
}

// NewWriter builds t's script (consulting cache, which may be nil) and
// returns a WriterState ready to serialize inst.
func NewWriter(resolver TypeResolver, cache *ScriptCache, reg *Registry, t *StructType, inst Instance) (*WriterState, error) {
	script, err := BuildScript(resolver, cache, t)
	if err != nil {
		return nil, err
	}
	w := &WriterState{resolver: resolver, cache: cache, reg: reg}
	w.push(script, inst)
	return w, nil
}

func (w *WriterState) push(script *Script, inst Instance) {
	w.stack = append(w.stack, &writerFrame{
		script:   script,
		inst:     inst,
		condVals: evalConditionsEager(script, inst),
	})
}

// Step advances the write by one command (or one element of a dynamic
// array command), writing to out.
func (w *WriterState) Step(out io.Writer) (Status, error) {
	if len(w.stack) == 0 {
		return Finished, nil
	}
	frame := w.stack[len(w.stack)-1]
	if frame.commandIdx >= len(frame.script.Commands) {
		w.stack = w.stack[:len(w.stack)-1]
		if len(w.stack) == 0 {
			return Finished, nil
		}
		return InProgress, nil
	}

	cmd := frame.script.Commands[frame.commandIdx]
	if cmd.Condition != NoCondition && !frame.condVals[cmd.Condition] {
		frame.commandIdx++
		return InProgress, nil
	}

	switch cmd.Kind {
	case CmdBlock:
		if err := writeRaw(out, frame.inst.Block(cmd.Offset, cmd.Size)); err != nil {
			return Failed, err
		}
		frame.commandIdx++
	case CmdString:
		if err := writeString(out, frame.inst.String(cmd.Offset)); err != nil {
			return Failed, err
		}
		frame.commandIdx++
	case CmdInternedString:
		if err := writeInternedString(out, frame.inst.InternedString(cmd.Offset), w.reg); err != nil {
			return Failed, err
		}
		frame.commandIdx++
	case CmdPatch:
		if err := WritePatch(out, frame.inst.Patch(cmd.Offset), w.reg); err != nil {
			return Failed, err
		}
		frame.commandIdx++
	case CmdBlockArray, CmdStringArray, CmdInternedStringArray, CmdPatchArray, CmdStructArray:
		if err := w.stepArray(out, frame, cmd); err != nil {
			return Failed, err
		}
	default:
		return Failed, fmt.Errorf("serialbin: writer hit unknown command kind %d", cmd.Kind)
	}
	return InProgress, nil
}

func (w *WriterState) stepArray(out io.Writer, frame *writerFrame, cmd Command) error {
	if frame.arr == nil {
		frame.arr = frame.inst.Array(cmd.Offset)
		return writeU32(out, uint32(frame.arr.Len()))
	}
	n := frame.arr.Len()
	if frame.arrayIdx >= n {
		frame.commandIdx++
		frame.arrayIdx = 0
		frame.arr = nil
		return nil
	}
	i := frame.arrayIdx
	switch cmd.Kind {
	case CmdBlockArray:
		if err := writeRaw(out, frame.arr.Block(i)); err != nil {
			return err
		}
	case CmdStringArray:
		if err := writeString(out, frame.arr.String(i)); err != nil {
			return err
		}
	case CmdInternedStringArray:
		if err := writeInternedString(out, frame.arr.InternedString(i), w.reg); err != nil {
			return err
		}
	case CmdPatchArray:
		if err := WritePatch(out, frame.arr.Patch(i), w.reg); err != nil {
			return err
		}
	case CmdStructArray:
		elemType, ok := w.resolver.Lookup(cmd.ElementTypeName)
		if !ok {
			return fmt.Errorf("serialbin: unknown struct-array element type %q", cmd.ElementTypeName)
		}
		elemScript, err := BuildScript(w.resolver, w.cache, elemType)
		if err != nil {
			return err
		}
		sub := frame.arr.StructInstance(i)
		frame.arrayIdx++
		w.push(elemScript, sub)
		return nil
	}
	frame.arrayIdx++
	return nil
}

// Run drives Step to completion, a convenience for callers that do not
// need cooperative multiplexing.
func (w *WriterState) Run(out io.Writer) error {
	for {
		switch status, err := w.Step(out); status {
		case Finished:
			return nil
		case Failed:
			return err
		}
	}
}
