package bios

import (
	"fmt"
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/sarchlab/sim8086/emu"
)

// LuaHandler services interrupts with a Lua script.
//
// The script defines a global function interrupt(vector) that returns
// true when it claimed the vector. While it runs, a global table named
// cpu exposes the machine:
//
//	cpu.get(reg)                 register value, e.g. cpu.get("AX")
//	cpu.set(reg, value)          not CS, IP, SS, SP or FLAGS
//	cpu.read8(seg, off), cpu.read16(seg, off)
//	cpu.write8(seg, off, v), cpu.write16(seg, off, v)
//	cpu.setflag(name, on)        flag returned to the interrupted code
//	cpu.print(s)
//	cpu.exit(code)
type LuaHandler struct {
	state *lua.LState
	out   io.Writer

	// current is the emulator of the interrupt being serviced.
	current *emu.Emulator
}

var flagNames = map[string]uint16{
	"CF": emu.FlagCF,
	"PF": emu.FlagPF,
	"AF": emu.FlagAF,
	"ZF": emu.FlagZF,
	"SF": emu.FlagSF,
	"TF": emu.FlagTF,
	"IF": emu.FlagIF,
	"DF": emu.FlagDF,
	"OF": emu.FlagOF,
}

// NewLuaHandler compiles and runs src, which should define interrupt.
func NewLuaHandler(src string, out io.Writer) (*LuaHandler, error) {
	h := newLuaHandler(out)
	if err := h.state.DoString(src); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to load interrupt script: %w", err)
	}
	return h, nil
}

// LoadLuaHandler runs the script file at path.
func LoadLuaHandler(path string, out io.Writer) (*LuaHandler, error) {
	h := newLuaHandler(out)
	if err := h.state.DoFile(path); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to load interrupt script %s: %w", path, err)
	}
	return h, nil
}

func newLuaHandler(out io.Writer) *LuaHandler {
	if out == nil {
		out = io.Discard
	}
	h := &LuaHandler{
		state: lua.NewState(),
		out:   out,
	}

	cpu := h.state.NewTable()
	h.state.SetFuncs(cpu, map[string]lua.LGFunction{
		"get":     h.luaGet,
		"set":     h.luaSet,
		"read8":   h.luaRead8,
		"read16":  h.luaRead16,
		"write8":  h.luaWrite8,
		"write16": h.luaWrite16,
		"setflag": h.luaSetFlag,
		"print":   h.luaPrint,
		"exit":    h.luaExit,
	})
	h.state.SetGlobal("cpu", cpu)

	return h
}

// Close releases the Lua state.
func (h *LuaHandler) Close() {
	h.state.Close()
}

// HandleInterrupt implements emu.InterruptHandler.
func (h *LuaHandler) HandleInterrupt(e *emu.Emulator, vector uint8) (bool, error) {
	fn := h.state.GetGlobal("interrupt")
	if fn.Type() != lua.LTFunction {
		return false, nil
	}

	h.current = e
	defer func() { h.current = nil }()

	err := h.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(vector))
	if err != nil {
		return false, fmt.Errorf("interrupt script failed on vector %02Xh: %w", vector, err)
	}

	ret := h.state.Get(-1)
	h.state.Pop(1)
	return lua.LVAsBool(ret), nil
}

func (h *LuaHandler) emulator(L *lua.LState) *emu.Emulator {
	if h.current == nil {
		L.RaiseError("cpu is only available inside interrupt()")
	}
	return h.current
}

func checkReg(L *lua.LState, n int) emu.Reg {
	name := L.CheckString(n)
	reg, ok := emu.ParseReg(strings.ToUpper(name))
	if !ok {
		L.ArgError(n, "unknown register "+name)
	}
	return reg
}

func checkWord(L *lua.LState, n int) uint16 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xFFFF {
		L.ArgError(n, "value out of range")
	}
	return uint16(v)
}

func (h *LuaHandler) luaGet(L *lua.LState) int {
	e := h.emulator(L)
	reg := checkReg(L, 1)
	L.Push(lua.LNumber(e.RegFile().Get(reg)))
	return 1
}

func (h *LuaHandler) luaSet(L *lua.LState) int {
	e := h.emulator(L)
	reg := checkReg(L, 1)
	switch reg {
	case emu.CS, emu.IP, emu.SS, emu.SP:
		// The interrupt frame is popped from SS:SP after the script returns.
		L.ArgError(1, "cannot change "+reg.String()+" from an interrupt")
	case emu.FLAGS:
		L.ArgError(1, "FLAGS is restored from the interrupt frame, use cpu.setflag")
	}
	if err := e.RegFile().Set(reg, uint32(L.CheckInt(2))); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (h *LuaHandler) luaRead8(L *lua.LState) int {
	e := h.emulator(L)
	L.Push(lua.LNumber(e.Memory().Load8(checkWord(L, 1), checkWord(L, 2))))
	return 1
}

func (h *LuaHandler) luaRead16(L *lua.LState) int {
	e := h.emulator(L)
	L.Push(lua.LNumber(e.Memory().Load16(checkWord(L, 1), checkWord(L, 2))))
	return 1
}

func (h *LuaHandler) luaWrite8(L *lua.LState) int {
	e := h.emulator(L)
	v := checkWord(L, 3)
	if v > 0xFF {
		L.ArgError(3, "value out of range")
	}
	e.Memory().Store8(checkWord(L, 1), checkWord(L, 2), byte(v))
	return 0
}

func (h *LuaHandler) luaWrite16(L *lua.LState) int {
	e := h.emulator(L)
	e.Memory().Store16(checkWord(L, 1), checkWord(L, 2), checkWord(L, 3))
	return 0
}

func (h *LuaHandler) luaSetFlag(L *lua.LState) int {
	e := h.emulator(L)
	name := L.CheckString(1)
	flag, ok := flagNames[strings.ToUpper(name)]
	if !ok {
		L.ArgError(1, "unknown flag "+name)
	}
	SetReturnFlag(e, flag, L.ToBool(2))
	return 0
}

func (h *LuaHandler) luaPrint(L *lua.LState) int {
	h.emulator(L)
	if _, err := io.WriteString(h.out, L.CheckString(1)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (h *LuaHandler) luaExit(L *lua.LState) int {
	e := h.emulator(L)
	e.Exit(int64(L.OptInt(1, 0)))
	return 0
}
