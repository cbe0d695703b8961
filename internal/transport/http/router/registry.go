package router

import (
	"sort"

	"recipebox/internal/transport/http/ez"
)

// A module implements one or both of these to put its routes on an engine.
type APIModule interface{ MountAPI(ez.Routes) }
type AdminModule interface{ MountAdmin(ez.Routes) }

// Optional; lower mounts first, 100 when absent.
type prioritizer interface{ Priority() int }

// Registry collects modules for one process. It is built in main and handed
// to the engine constructors.
type Registry struct {
	api   []APIModule
	admin []AdminModule
}

// Register sorts each module into the API and/or admin lists. Nil modules
// (features disabled by config) are skipped.
func (r *Registry) Register(mods ...any) *Registry {
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		if m, ok := mod.(APIModule); ok {
			r.api = append(r.api, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.admin = append(r.admin, m)
		}
	}
	return r
}

func (r *Registry) MountAPI(routes ez.Routes) {
	mods := append([]APIModule(nil), r.api...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountAPI(routes)
	}
}

func (r *Registry) MountAdmin(routes ez.Routes) {
	mods := append([]AdminModule(nil), r.admin...)
	sort.SliceStable(mods, func(i, j int) bool { return priorityOf(mods[i]) < priorityOf(mods[j]) })
	for _, m := range mods {
		m.MountAdmin(routes)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
