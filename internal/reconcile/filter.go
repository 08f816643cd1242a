package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// unitFilter decides whether a unit takes part in the run. Filtered units
// terminate as skipped and never consume the counter.
type unitFilter func(id, version, dir string) (bool, error)

const filterTimeout = 2 * time.Second

// buildUnitFilter compiles an inline Lua predicate. The script sees a global
// `unit` table with id, version and dir fields and must evaluate to a
// boolean; expressions without an explicit return are wrapped.
func buildUnitFilter(inline string) (unitFilter, error) {
	if strings.TrimSpace(inline) == "" {
		return nil, nil
	}
	code := inline
	if !strings.Contains(code, "return") {
		code = "return (" + code + ")"
	}
	// Compile once up front so a syntax error fails the run before any
	// unit is touched.
	if err := checkSyntax(code); err != nil {
		return nil, err
	}
	return func(id, version, dir string) (bool, error) {
		L := newFilterState()
		defer L.Close()
		ctx, cancel := context.WithTimeout(context.Background(), filterTimeout)
		defer cancel()
		L.SetContext(ctx)

		tbl := L.NewTable()
		tbl.RawSetString("id", lua.LString(id))
		tbl.RawSetString("version", lua.LString(version))
		tbl.RawSetString("dir", lua.LString(dir))
		L.SetGlobal("unit", tbl)

		if err := L.DoString(code); err != nil {
			return false, fmt.Errorf("lua predicate: %v", err)
		}
		ret := L.Get(-1)
		keep, ok := ret.(lua.LBool)
		if !ok {
			return false, fmt.Errorf("lua predicate must return a boolean, got %s", ret.Type())
		}
		return bool(keep), nil
	}, nil
}

func checkSyntax(code string) error {
	L := newFilterState()
	defer L.Close()
	if _, err := L.LoadString(code); err != nil {
		return fmt.Errorf("lua predicate: %v", err)
	}
	return nil
}

// newFilterState creates a sandboxed Lua state: no os, io or package libs,
// only base, table, string and math.
func newFilterState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:    true,
		RegistrySize:    256,
		RegistryMaxSize: 1024,
	})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	openLib("base", lua.OpenBase)
	openLib("table", lua.OpenTable)
	openLib("string", lua.OpenString)
	openLib("math", lua.OpenMath)
	return L
}
