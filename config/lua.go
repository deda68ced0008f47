package config

import (
	"fmt"
	"math"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// LuaTableName is the global table that a Lua parameter file fills in.
const LuaTableName = "vcache"

// LoadLua runs a Lua parameter file and reads the global vcache table. Each
// section is a nested table keyed like the JSON format, for example
//
//	vcache = {
//	  dcache = { sets = 2, replacement = "lru" },
//	  mmu = { enabled = true, page_size_kb = 4 },
//	}
//
// Absent parameters keep their default values.
func LoadLua(path string) (Config, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoFile(path); err != nil {
		return DefaultConfig(), err
	}

	return fromLua(L)
}

// LoadLuaString is LoadLua for a script held in memory.
func LoadLuaString(script string) (Config, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(script); err != nil {
		return DefaultConfig(), err
	}

	return fromLua(L)
}

func fromLua(L *lua.LState) (Config, error) {
	c := DefaultConfig()

	root, ok := L.GetGlobal(LuaTableName).(*lua.LTable)
	if !ok {
		return c, fmt.Errorf("global table %q is missing", LuaTableName)
	}

	err := assignTable(root, reflect.ValueOf(&c).Elem(), LuaTableName)

	return c, err
}

func assignTable(t *lua.LTable, v reflect.Value, path string) error {
	var err error

	t.ForEach(func(k, val lua.LValue) {
		if err != nil {
			return
		}

		key, ok := k.(lua.LString)
		if !ok {
			err = fmt.Errorf("%s: key %v is not a string", path, k)
			return
		}

		name := path + "." + string(key)

		field, found := fieldByTag(v, string(key))
		if !found {
			err = fmt.Errorf("%s: unknown parameter", name)
			return
		}

		err = assignLua(field, val, name)
	})

	return err
}

func assignLua(field reflect.Value, val lua.LValue, name string) error {
	switch field.Kind() {
	case reflect.Struct:
		t, ok := val.(*lua.LTable)
		if !ok {
			return typeError(name, "table", val.Type().String())
		}

		return assignTable(t, field, name)
	case reflect.Bool:
		b, ok := val.(lua.LBool)
		if !ok {
			return typeError(name, "boolean", val.Type().String())
		}

		field.SetBool(bool(b))
	case reflect.String:
		s, ok := val.(lua.LString)
		if !ok {
			return typeError(name, "string", val.Type().String())
		}

		field.SetString(string(s))
	case reflect.Int, reflect.Uint32, reflect.Uint64:
		n, ok := val.(lua.LNumber)
		if !ok || float64(n) != math.Trunc(float64(n)) {
			return typeError(name, "integer", val.String())
		}

		return setInteger(field, float64(n), name)
	default:
		panic("never")
	}

	return nil
}

func setInteger(field reflect.Value, n float64, name string) error {
	if field.Kind() == reflect.Int {
		field.SetInt(int64(n))
		return nil
	}

	if n < 0 || field.OverflowUint(uint64(n)) {
		return fmt.Errorf("%s: %v is out of range", name, n)
	}

	field.SetUint(uint64(n))

	return nil
}

func typeError(name, want, got string) error {
	return fmt.Errorf("%s: want %s, got %s", name, want, got)
}
