package serialbin

import (
	"fmt"
	"io"
)

// ReaderState is the step-oriented deserializer counterpart to
// WriterState (spec §4.3.2).
type ReaderState struct {
	resolver      TypeResolver
	cache         *ScriptCache
	reg           *Registry
	patchResolver PatchTypeResolver

	stack []*readerFrame
}

type readerFrame struct {
	script *Script
	inst   Instance
	cond   *lazyConditionState

	commandIdx int
	arrayIdx   int
	arrLen     int
	arr        ArrayAccessor
}

// NewReader builds t's script and returns a ReaderState ready to fill
// inst from r. patchResolver may be nil if t's graph contains no Patch
// fields.
func NewReader(resolver TypeResolver, cache *ScriptCache, reg *Registry, patchResolver PatchTypeResolver, t *StructType, inst Instance) (*ReaderState, error) {
	script, err := BuildScript(resolver, cache, t)
	if err != nil {
		return nil, err
	}
	rs := &ReaderState{resolver: resolver, cache: cache, reg: reg, patchResolver: patchResolver}
	rs.push(script, inst)
	return rs, nil
}

func (rs *ReaderState) push(script *Script, inst Instance) {
	rs.stack = append(rs.stack, &readerFrame{
		script: script,
		inst:   inst,
		cond:   newLazyConditionState(len(script.Conditions)),
	})
}

// Step advances the read by one command (or one element of a dynamic
// array command), reading from in.
func (rs *ReaderState) Step(in io.Reader) (Status, error) {
	if len(rs.stack) == 0 {
		return Finished, nil
	}
	frame := rs.stack[len(rs.stack)-1]
	if frame.commandIdx >= len(frame.script.Commands) {
		rs.stack = rs.stack[:len(rs.stack)-1]
		if len(rs.stack) == 0 {
			return Finished, nil
		}
		return InProgress, nil
	}

	cmd := frame.script.Commands[frame.commandIdx]
	if cmd.Condition != NoCondition && !frame.cond.eval(frame.script, frame.inst, cmd.Condition) {
		frame.commandIdx++
		return InProgress, nil
	}

	switch cmd.Kind {
	case CmdBlock:
		buf := make([]byte, cmd.Size)
		if _, err := io.ReadFull(in, buf); err != nil {
			return Failed, fmt.Errorf("serialbin: reading block at offset %d: %w", cmd.Offset, err)
		}
		frame.inst.SetBlock(cmd.Offset, buf)
		frame.commandIdx++
	case CmdString:
		s, err := readString(in)
		if err != nil {
			return Failed, err
		}
		frame.inst.SetString(cmd.Offset, s)
		frame.commandIdx++
	case CmdInternedString:
		s, err := readInternedString(in, rs.reg)
		if err != nil {
			return Failed, err
		}
		frame.inst.SetInternedString(cmd.Offset, s)
		frame.commandIdx++
	case CmdPatch:
		p, err := ReadPatch(in, rs.reg, rs.patchResolver)
		if err != nil {
			return Failed, err
		}
		frame.inst.SetPatch(cmd.Offset, p)
		frame.commandIdx++
	case CmdBlockArray, CmdStringArray, CmdInternedStringArray, CmdPatchArray, CmdStructArray:
		if err := rs.stepArray(in, frame, cmd); err != nil {
			return Failed, err
		}
	default:
		return Failed, fmt.Errorf("serialbin: reader hit unknown command kind %d", cmd.Kind)
	}
	return InProgress, nil
}

func (rs *ReaderState) stepArray(in io.Reader, frame *readerFrame, cmd Command) error {
	if frame.arr == nil {
		n, err := readU32(in)
		if err != nil {
			return err
		}
		frame.arrLen = int(n)
		frame.arr = frame.inst.Array(cmd.Offset)
		frame.arr.Grow(frame.arrLen)
		return nil
	}
	if frame.arrayIdx >= frame.arrLen {
		frame.commandIdx++
		frame.arrayIdx = 0
		frame.arrLen = 0
		frame.arr = nil
		return nil
	}
	i := frame.arrayIdx
	switch cmd.Kind {
	case CmdBlockArray:
		data := frame.arr.Block(i)
		buf := make([]byte, len(data))
		if _, err := io.ReadFull(in, buf); err != nil {
			return fmt.Errorf("serialbin: reading array block element %d: %w", i, err)
		}
		frame.arr.SetBlock(i, buf)
	case CmdStringArray:
		s, err := readString(in)
		if err != nil {
			return err
		}
		frame.arr.SetString(i, s)
	case CmdInternedStringArray:
		s, err := readInternedString(in, rs.reg)
		if err != nil {
			return err
		}
		frame.arr.SetInternedString(i, s)
	case CmdPatchArray:
		p, err := ReadPatch(in, rs.reg, rs.patchResolver)
		if err != nil {
			return err
		}
		frame.arr.SetPatch(i, p)
	case CmdStructArray:
		elemType, ok := rs.resolver.Lookup(cmd.ElementTypeName)
		if !ok {
			return fmt.Errorf("serialbin: unknown struct-array element type %q", cmd.ElementTypeName)
		}
		elemScript, err := BuildScript(rs.resolver, rs.cache, elemType)
		if err != nil {
			return err
		}
		sub := frame.arr.StructInstance(i)
		frame.arrayIdx++
		rs.push(elemScript, sub)
		return nil
	}
	frame.arrayIdx++
	return nil
}

// Run drives Step to completion, a convenience for callers that do not
// need cooperative multiplexing.
func (rs *ReaderState) Run(in io.Reader) error {
	for {
		switch status, err := rs.Step(in); status {
		case Finished:
			return nil
		case Failed:
			return err
		}
	}
}
