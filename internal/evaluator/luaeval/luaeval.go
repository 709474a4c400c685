// Package luaeval runs a user Lua script as a Z evaluator.
//
// The script defines a global function
//
//	function evaluate(p_psia, t_rankine, mix)
//	    return { z = ..., method = "..." }
//	end
//
// where mix is a table of mole fractions keyed by component name. Returning a
// bare number is accepted as well. The json module is preloaded and the global
// gas exposes the bundled correlations, e.g. gas:Papay(pr, tr),
// gas:Critical("methane") and gas:LeeKesler(pr, tr, omega).
package luaeval

import (
	"context"
	"sync"

	"github.com/ansel1/merry"
	"github.com/fpawel/gasflow/internal/evaluator/leekesler"
	"github.com/fpawel/gasflow/internal/gas"
	"github.com/fpawel/gasflow/internal/zfactor"
	"github.com/powerman/structlog"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
	luar "layeh.com/gopher-luar"
)

var log = structlog.New(structlog.KeyUnit, "luaeval")

const (
	funcName      = "evaluate"
	defaultMethod = "lua"
)

// Evaluator owns a single Lua state; calls are serialized.
type Evaluator struct {
	mu   sync.Mutex
	l    *lua.LState
	name string
}

// Open loads the script file.
func Open(filename string) (*Evaluator, error) {
	return load(filename, func(L *lua.LState) error {
		return L.DoFile(filename)
	})
}

// Load loads the script from source text.
func Load(name, source string) (*Evaluator, error) {
	return load(name, func(L *lua.LState) error {
		return L.DoString(source)
	})
}

func load(name string, do func(*lua.LState) error) (*Evaluator, error) {
	L := lua.NewState()
	luajson.Preload(L)
	L.SetGlobal("gas", luar.New(L, helpers{}))
	if err := do(L); err != nil {
		L.Close()
		return nil, merry.Prependf(err, "lua script %s", name)
	}
	if _, ok := L.GetGlobal(funcName).(*lua.LFunction); !ok {
		L.Close()
		return nil, merry.Errorf("lua script %s: function %s is not defined", name, funcName)
	}
	log.Info("lua evaluator loaded", "script", name)
	return &Evaluator{l: L, name: name}, nil
}

func (x *Evaluator) Evaluate(ctx context.Context, pressurePsia, temperatureR float64, mix gas.Mixture) (zfactor.Reply, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	L := x.l
	L.SetContext(ctx)
	defer L.RemoveContext()

	tbl := L.NewTable()
	for k, v := range mix {
		tbl.RawSetString(k, lua.LNumber(v))
	}
	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(funcName),
		NRet:    1,
		Protect: true,
	}, lua.LNumber(pressurePsia), lua.LNumber(temperatureR), tbl)
	if err != nil {
		return zfactor.Reply{}, merry.Prependf(err, "lua script %s", x.name)
	}
	ret := L.Get(-1)
	L.Pop(1)

	switch ret := ret.(type) {
	case lua.LNumber:
		return zfactor.Reply{Z: float64(ret), Method: defaultMethod}, nil
	case *lua.LTable:
		var r zfactor.Reply
		if err := gluamapper.Map(ret, &r); err != nil {
			return zfactor.Reply{}, merry.Prependf(err, "lua script %s: result", x.name)
		}
		if r.Method == "" {
			r.Method = defaultMethod
		}
		return r, nil
	default:
		return zfactor.Reply{}, merry.Errorf("lua script %s: %s returned %s, want table or number",
			x.name, funcName, ret.Type())
	}
}

func (x *Evaluator) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.l.Close()
	return nil
}

// helpers is exposed to scripts as the global gas.
type helpers struct{}

func (helpers) Papay(pr, tr float64) float64 {
	return gas.Papay(pr, tr)
}

// Critical returns Tc (°R), Pc (psia) and the acentric factor of a species
// given by formula or component name; zeros when unknown.
func (helpers) Critical(name string) (float64, float64, float64) {
	s, ok := gas.LookupSpecies(name)
	if !ok {
		s, ok = gas.LookupMixName(name)
	}
	if !ok {
		return 0, 0, 0
	}
	c, _ := s.Critical()
	return c.Tc, c.Pc, c.Omega
}

// LeeKesler returns Z at the reduced state, or 0 when the iteration fails.
func (helpers) LeeKesler(pr, tr, omega float64) float64 {
	z, err := leekesler.Z(pr, tr, omega)
	if err != nil {
		return 0
	}
	return z
}
