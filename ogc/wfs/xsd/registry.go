package xsd

import "fmt"

// Registry is the process-wide, read-mostly feature-type registry (spec §9
// "Global registries"): populated once at bootstrap, immutable thereafter.
type Registry struct {
	byQName map[QName]*FeatureType
	order   []QName
}

func NewRegistry() *Registry {
	return &Registry{byQName: make(map[QName]*FeatureType)}
}

func (r *Registry) Register(ft *FeatureType) {
	q := ft.QName()
	if _, exists := r.byQName[q]; !exists {
		r.order = append(r.order, q)
	}
	r.byQName[q] = ft
}

// Lookup resolves a "prefix:local" or bare local type name to a FeatureType.
// Per spec §4.2's compat invariant, an "app:" prefix always resolves to
// whichever single feature type the registry holds for that local name,
// even when the caller never declared "app" in NAMESPACES.
func (r *Registry) Lookup(typeName string) (*FeatureType, error) {
	local := stripPrefix(typeName)
	for _, q := range r.order {
		if q.Local == local {
			return r.byQName[q], nil
		}
	}
	return nil, fmt.Errorf("unknown feature type %q", typeName)
}

// All returns every registered feature type, in registration order.
func (r *Registry) All() []*FeatureType {
	out := make([]*FeatureType, 0, len(r.order))
	for _, q := range r.order {
		out = append(out, r.byQName[q])
	}
	return out
}
