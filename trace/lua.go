package trace

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// MaxScriptLength bounds the number of references a script may produce.
const MaxScriptLength = 1 << 22

// FromLua runs a workload script and returns the references it produced.
//
// A script either calls the global function `access(key)` once per
// reference, or returns an array of integer keys.
// Only the base, table, string and math libraries are available;
// `math.random` makes scripts non-deterministic unless they seed it.
func FromLua(ctx context.Context, script string) ([]int, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)
	if err := openLibs(L); err != nil {
		return nil, err
	}
	var (
		keys    []int
		tooLong bool
		access  = func(L *lua.LState) int {
			if len(keys) >= MaxScriptLength {
				tooLong = true
				L.RaiseError("more than %d references", MaxScriptLength)
				return 0
			}
			keys = append(keys, L.CheckInt(1))
			return 0
		}
	)
	L.SetGlobal("access", L.NewFunction(access))
	top := L.GetTop()
	if err := L.DoString(script); err != nil {
		if tooLong {
			return nil, fmt.Errorf("%w: %w", ErrTraceTooLong, err)
		}
		return nil, fmt.Errorf("workload script: %w", err)
	}
	if L.GetTop() > top {
		returned, err := tableKeys(L.Get(top + 1))
		if err != nil {
			return nil, err
		}
		keys = append(keys, returned...)
	}
	if len(keys) > MaxScriptLength {
		return nil, fmt.Errorf("%w: %d references", ErrTraceTooLong, len(keys))
	}
	return keys, nil
}

func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("opening lua library %q: %w", lib.name, err)
		}
	}
	return nil
}

func tableKeys(value lua.LValue) ([]int, error) {
	if value == lua.LNil {
		return nil, nil
	}
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf(
			"%w: script returned %s, expected an array of keys",
			ErrInvalidTrace, value.Type())
	}
	keys := make([]int, 0, table.Len())
	for i := 1; i <= table.Len(); i++ {
		number, ok := table.RawGetInt(i).(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf(
				"%w: element %d is %s, expected a number",
				ErrInvalidTrace, i, table.RawGetInt(i).Type())
		}
		keys = append(keys, int(number))
	}
	return keys, nil
}
