package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only `platform` table and injects it into
// the Lua state as a global, so configs can branch declaratively:
//
//	emit = { env = platform.when(platform.is_mac, { BROWSER = "open" }) }
//
// Must be called before loading any user configuration code.
func InjectPlatformTable(L *lua.LState, p Platform) error {
	platformTable := L.NewTable()

	L.SetField(platformTable, "name", lua.LString(p.String()))

	L.SetField(platformTable, "is_mac", lua.LBool(p == Mac))
	L.SetField(platformTable, "is_linux", lua.LBool(p == Linux))
	L.SetField(platformTable, "is_windows", lua.LBool(p == Windows))
	L.SetField(platformTable, "is_wsl", lua.LBool(p == WSL))
	L.SetField(platformTable, "is_unix_like", lua.LBool(p.IsUnixLike()))

	// Helper function: when(condition, value)
	// Returns value if condition is true, nil otherwise.
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(platformTable, "when", whenFunc)

	L.SetGlobal("platform", makeReadOnly(L, platformTable))
	return nil
}

// makeReadOnly makes a Lua table read-only via a proxy table whose metatable
// redirects reads to the original and rejects all writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()

	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)
	return proxy
}
