package builtin

import (
	"reflect"
	"testing"
)

func TestRegistry(t *testing.T) {
	reg := Registry()

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"lua", "process", "starlark"}) {
		t.Errorf("Names() = %v", got)
	}

	scripts := map[string]string{
		"process":  "makehuman.py",
		"starlark": "makehuman.star",
		"lua":      "makehuman.lua",
	}
	for name, expected := range scripts {
		if got := reg.DefaultScript(name); got != expected {
			t.Errorf("DefaultScript(%s) = %q, expected %q", name, got, expected)
		}
	}
}
