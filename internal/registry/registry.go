package registry

import (
	"fmt"
	"sort"

	"github.com/standardbeagle/ff/internal/errkit"
)

// Registry is the process-lifetime catalog of providers (spec §4.C,
// "Registry owns providers for the process lifetime"). It is immutable
// once New returns, so it is safe to share by reference across workers
// without synchronization.
type Registry struct {
	providers map[string]Provider
	order     []string // topological load order
	index     map[string][]string // attr name -> provider names that declare it
}

// New builds a Registry from a set of providers, computing the
// dependency-ordered load sequence and the attribute name index. It
// returns a *errkit.Error{Kind: errkit.KindPlugin} (exit 10, spec §6) on
// a dependency cycle or a reference to a provider that was never
// supplied.
func New(providers []Provider) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider, len(providers)),
		index:     make(map[string][]string),
	}
	for _, p := range providers {
		if _, dup := r.providers[p.Name()]; dup {
			return nil, errkit.New(errkit.KindPlugin, "registry.New", fmt.Sprintf("duplicate provider %q", p.Name()))
		}
		r.providers[p.Name()] = p
	}
	for _, p := range providers {
		for _, attr := range p.Attributes() {
			r.index[attr.Name] = append(r.index[attr.Name], p.Name())
		}
	}

	order, err := topoSort(r.providers)
	if err != nil {
		return nil, err
	}
	r.order = order
	return r, nil
}

// LoadOrder returns provider names in dependency order: a provider never
// precedes one it depends on.
func (r *Registry) LoadOrder() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Resolved is a Test's attribute binding, fully qualified (spec §4.C).
type Resolved struct {
	Provider   string
	Descriptor Descriptor
}

// Resolve applies the three name-resolution rules from spec §4.C:
//  1. plugin.attr — exact match.
//  2. unqualified attr — "file" provider wins if it declares it.
//  3. otherwise, unqualified is ambiguous iff more than one provider
//     declares it.
func (r *Registry) Resolve(plugin, attr string) (Resolved, error) {
	if plugin != "" {
		p, ok := r.providers[plugin]
		if !ok {
			return Resolved{}, errkit.New(errkit.KindAttribute, "registry.Resolve", fmt.Sprintf("unknown plugin %q", plugin))
		}
		for _, d := range p.Attributes() {
			if d.Name == attr {
				return Resolved{Provider: plugin, Descriptor: d}, nil
			}
		}
		return Resolved{}, errkit.New(errkit.KindAttribute, "registry.Resolve", fmt.Sprintf("plugin %q has no attribute %q", plugin, attr))
	}

	owners := r.index[attr]
	if len(owners) == 0 {
		return Resolved{}, errkit.New(errkit.KindAttribute, "registry.Resolve", fmt.Sprintf("unknown attribute %q", attr))
	}
	for _, owner := range owners {
		if owner == "file" {
			return r.Resolve("file", attr)
		}
	}
	if len(owners) > 1 {
		return Resolved{}, errkit.New(errkit.KindAttribute, "registry.Resolve", fmt.Sprintf("ambiguous attribute %q: declared by %v", attr, owners))
	}
	return r.Resolve(owners[0], attr)
}

// Category groups a provider's attributes for --help-attributes /
// --help-plugins generation (spec §4.C, last paragraph).
type Category struct {
	Provider   string
	Attributes []Descriptor
}

// Categories returns one Category per provider, in load order, for help
// generation.
func (r *Registry) Categories() []Category {
	cats := make([]Category, 0, len(r.order))
	for _, name := range r.order {
		p := r.providers[name]
		attrs := append([]Descriptor(nil), p.Attributes()...)
		sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
		cats = append(cats, Category{Provider: name, Attributes: attrs})
	}
	return cats
}

// Describe returns every attribute descriptor across every provider,
// fully qualified, sorted by name — the flat listing --help-attributes
// and --count's attribute validation consult.
func (r *Registry) Describe() []Resolved {
	var out []Resolved
	for _, name := range r.order {
		p := r.providers[name]
		for _, d := range p.Attributes() {
			out = append(out, Resolved{Provider: name, Descriptor: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Descriptor.Name < out[j].Descriptor.Name
	})
	return out
}

func topoSort(providers map[string]Provider) ([]string, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(providers))
	var order []string

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic order among independent providers

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return errkit.New(errkit.KindPlugin, "registry.New", fmt.Sprintf("dependency cycle involving provider %q", name))
		}
		p, ok := providers[name]
		if !ok {
			return errkit.New(errkit.KindPlugin, "registry.New", fmt.Sprintf("provider %q depends on unregistered provider", name))
		}
		state[name] = visiting
		deps := append([]string(nil), p.Dependencies()...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
