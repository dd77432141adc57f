package evalctx

import (
	"github.com/standardbeagle/ff/internal/cache"
	"github.com/standardbeagle/ff/internal/errkit"
	"github.com/standardbeagle/ff/internal/registry"
	"github.com/standardbeagle/ff/internal/valtype"
)

// slot is one memoized attribute: either a Value, or an error marker that
// also short-circuits repeated computation (spec §4.E step 1).
type slot struct {
	value valtype.Value
	err   error
}

// Context is the per-entry scratchpad spec §4.E describes. It is
// exclusively owned by the worker evaluating its Entry (spec §3) and is
// never shared, so it needs no internal synchronization.
type Context struct {
	entry    Entry
	registry *registry.Registry
	cache    *cache.Cache

	memo map[string]slot

	// inflight names the provider currently running inside Process, so
	// Set (called by that provider) can qualify the attribute it is
	// given into the fully-qualified memo key.
	inflight string
}

// New builds a Context over entry, backed by reg for attribute resolution
// and c for cacheable attribute persistence. Pass cache.Disabled() for
// --no-cache.
func New(entry Entry, reg *registry.Registry, c *cache.Cache) *Context {
	return &Context{
		entry:    entry,
		registry: reg,
		cache:    c,
		memo:     make(map[string]slot),
	}
}

func (c *Context) Entry() Entry { return c.entry }

func key(provider, attr string) string { return provider + "." + attr }

// Set implements registry.Setter: a Provider calls this from inside
// Process, once per attribute it computes, using the bare attribute name
// it was asked about or any sibling attribute it amortizes alongside it
// (spec §4.C, "the provider may set multiple attributes in one call").
func (c *Context) Set(attr string, v valtype.Value, err error) {
	c.memo[key(c.inflight, attr)] = slot{value: v, err: err}
}

// Get resolves (plugin, attr) against the Registry — plugin may be empty
// for an unqualified name — and returns its memoized, cached, or freshly
// computed Value, following the four steps of spec §4.E.
//
// A provider's computation error is not fatal: per spec §4.F
// ("per-entry attribute failures... are never fatal"), it is recorded as
// a Null marker and the error is returned alongside Null only so callers
// that need to distinguish "missing" from "false" can do so;
// the Evaluator treats both identically (comparisons against Null always
// fail).
func (c *Context) Get(plugin, attr string) (valtype.Value, error) {
	resolved, err := c.registry.Resolve(plugin, attr)
	if err != nil {
		return valtype.Null, err
	}
	return c.GetResolved(resolved)
}

// GetResolved is the same lookup as Get, but for a binding the Evaluator
// already resolved once at bind time — the common path once expression
// evaluation is underway, avoiding repeated Registry.Resolve calls.
func (c *Context) GetResolved(r registry.Resolved) (valtype.Value, error) {
	k := key(r.Provider, r.Descriptor.Name)
	if s, ok := c.memo[k]; ok {
		return s.value, s.err
	}

	if r.Descriptor.Cacheable && c.cache.Enabled() {
		if v, computeErr, hit := c.cache.Get(c.entry.path, c.entry.mtimeNs, c.entry.size, k); hit {
			c.memo[k] = slot{value: v, err: computeErr}
			return v, computeErr
		}
	}

	if err := c.invoke(r.Provider, r.Descriptor.Name); err != nil {
		c.memo[k] = slot{value: valtype.Null, err: err}
		if r.Descriptor.Cacheable && c.cache.Enabled() {
			_ = c.cache.PutError(c.entry.path, c.entry.mtimeNs, c.entry.size, k, err)
		}
		return valtype.Null, err
	}

	s, ok := c.memo[k]
	if !ok {
		// The provider ran without error but never set this attribute
		// (e.g. an image-only attribute on a non-image file): missing,
		// not an error (spec §4.F, "evaluates false without error").
		s = slot{value: valtype.Null}
		c.memo[k] = s
	}
	if r.Descriptor.Cacheable && c.cache.Enabled() {
		if s.err != nil {
			_ = c.cache.PutError(c.entry.path, c.entry.mtimeNs, c.entry.size, k, s.err)
		} else {
			_ = c.cache.Put(c.entry.path, c.entry.mtimeNs, c.entry.size, k, s.value)
		}
	}
	return s.value, s.err
}

func (c *Context) invoke(providerName, attr string) error {
	p, ok := c.registry.Provider(providerName)
	if !ok {
		return errkit.New(errkit.KindPlugin, "Context.Get", "provider "+providerName+" vanished after resolution")
	}
	prev := c.inflight
	c.inflight = providerName
	defer func() { c.inflight = prev }()
	return p.Process(c.entry, attr, c)
}

// Placeholder renders attribute's value as the string an exec template's
// `{attribute}` substitution emits (spec §4.H). A missing or erroring
// attribute renders as the empty string, matching how a Record field
// renders a Null value.
func (c *Context) Placeholder(plugin, attr string) string {
	v, err := c.Get(plugin, attr)
	if err != nil || v.IsNull() {
		return ""
	}
	s, err := valtype.Format(v, valtype.ModNone)
	if err != nil {
		return ""
	}
	return s
}
