package provider

// Registry is the immutable name -> Provider mapping built once at startup.
// Registration order is preserved and used as the generic fallback order.
type Registry struct {
	order  []string
	byName map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := r.byName[p.Name()]; dup {
			continue
		}
		r.byName[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
