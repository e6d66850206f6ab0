// Package builtin registers the runtime adapters shipped with the launcher.
package builtin

import (
	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
	"github.com/makehuman/mhlaunch/internal/runtime/luart"
	"github.com/makehuman/mhlaunch/internal/runtime/process"
	"github.com/makehuman/mhlaunch/internal/runtime/starlarkrt"
)

// Registry returns a registry holding every built-in adapter.
func Registry() *scriptrt.Registry {
	reg := scriptrt.NewRegistry()
	must(reg.Register(process.Name, process.DefaultScript, process.New))
	must(reg.Register(starlarkrt.Name, starlarkrt.DefaultScript, starlarkrt.New))
	must(reg.Register(luart.Name, luart.DefaultScript, luart.New))
	return reg
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
