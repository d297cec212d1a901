package adapters

import "github.com/brettbedarf/restfs/config"

type BuiltInClientType = string

const (
	RESTClientType     BuiltInClientType = "rest"
	SnapshotClientType BuiltInClientType = "snapshot"
)

// RegisterBuiltins registers all built-in providers configured from cfg, or
// only the specific ones if keys are provided
func RegisterBuiltins(r *Registry, cfg *config.Config, clientTypes ...BuiltInClientType) {
	if len(clientTypes) == 0 {
		clientTypes = []BuiltInClientType{RESTClientType, SnapshotClientType}
	}

	for _, key := range clientTypes {
		switch key {
		case RESTClientType:
			r.Register(key, NewRESTProvider(RESTOptions{
				BasePath:       cfg.Remote.BasePath,
				ContainersPath: cfg.Remote.ContainersPath,
				ObjectsPath:    cfg.Remote.ObjectsPath,
				Timeout:        cfg.Remote.Timeout,
			}))
		case SnapshotClientType:
			r.Register(key, NewSnapshotProvider(cfg.Remote.SnapshotPath, cfg.Remote.Separator))
		}
	}
}
