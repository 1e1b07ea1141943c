package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/ospreygo/netsync/internal/sim"
)

// Engine wraps a single gopher-lua VM that defines the replicated entity
// archetypes. Scripts run once at load; afterwards the archetype table is
// plain Go data, so lookups never touch the VM and stay tick-safe.
type Engine struct {
	vm         *lua.LState
	archetypes map[string]sim.Archetype
	log        *zap.Logger
}

// NewEngine creates the VM, registers the definition API, and runs every
// .lua file in scriptsDir.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	e := &Engine{
		vm:         vm,
		archetypes: make(map[string]sim.Archetype),
		log:        log,
	}
	vm.SetGlobal("define_entity", vm.NewFunction(e.luaDefineEntity))

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// Archetype implements sim.ArchetypeSource.
func (e *Engine) Archetype(kind string) (sim.Archetype, bool) {
	a, ok := e.archetypes[kind]
	return a, ok
}

// Count returns the number of defined archetypes.
func (e *Engine) Count() int {
	return len(e.archetypes)
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no scripts is fine, nothing gets defined
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("run %s: %w", path, err)
		}
		e.log.Debug("script loaded", zap.String("path", path))
	}
	return nil
}

// luaDefineEntity is the script-facing definition call:
//
//	define_entity{ kind = "player", speed = 10, boost = 20, slow = 5,
//	               jump = 8, scale = 1, controllable = true }
func (e *Engine) luaDefineEntity(L *lua.LState) int {
	tbl := L.CheckTable(1)

	kind := lua.LVAsString(tbl.RawGetString("kind"))
	if kind == "" {
		L.RaiseError("define_entity: missing kind")
		return 0
	}
	arch := sim.Archetype{
		Kind:         kind,
		Scale:        float32(lua.LVAsNumber(tbl.RawGetString("scale"))),
		Speed:        float32(lua.LVAsNumber(tbl.RawGetString("speed"))),
		Boost:        float32(lua.LVAsNumber(tbl.RawGetString("boost"))),
		Slow:         float32(lua.LVAsNumber(tbl.RawGetString("slow"))),
		Jump:         float32(lua.LVAsNumber(tbl.RawGetString("jump"))),
		Controllable: lua.LVAsBool(tbl.RawGetString("controllable")),
	}
	if _, dup := e.archetypes[kind]; dup {
		e.log.Warn("entity kind redefined", zap.String("kind", kind))
	}
	e.archetypes[kind] = arch
	return 0
}
