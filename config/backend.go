package config

import (
	"github.com/hashicorp/consul/api"

	"github.com/wiseagents/hectormesh/registry"
)

// BuildExternalStore constructs the shared context backend doc.Backend
// names, or returns (nil, nil) when the document asks for none (the
// default, pure in-memory contexts). Kept separate from BuildLLMResources
// since it dials a different class of dependency (coordination store, not
// model provider) with its own failure mode.
func BuildExternalStore(doc *Document) (registry.ExternalStore, error) {
	prefix := doc.Backend.Prefix
	if prefix == "" {
		prefix = "wiseagents"
	}

	switch doc.Backend.Kind {
	case "", registry.BackendInMemory:
		return nil, nil

	case registry.BackendEtcd:
		store, err := registry.NewEtcdStore(doc.Backend.Endpoints, prefix)
		if err != nil {
			return nil, &Error{Operation: "BuildExternalStore", Message: "etcd connect failed", Err: err}
		}
		return store, nil

	case registry.BackendConsul:
		var cfg *api.Config
		if len(doc.Backend.Endpoints) > 0 {
			cfg = api.DefaultConfig()
			cfg.Address = doc.Backend.Endpoints[0]
		}
		store, err := registry.NewConsulStore(cfg, prefix)
		if err != nil {
			return nil, &Error{Operation: "BuildExternalStore", Message: "consul connect failed", Err: err}
		}
		return store, nil

	default:
		return nil, &Error{Operation: "BuildExternalStore", Message: "unknown backend kind " + string(doc.Backend.Kind)}
	}
}
