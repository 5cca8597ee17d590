package api

import "strings"

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an insertion-ordered set of query parameters. Setting an existing
// key replaces its value in place.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{values: make(map[string]string)}
}

// Set adds or replaces key.
func (p *Params) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value of key.
func (p *Params) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Del removes key and reports whether it was present.
func (p *Params) Del(key string) bool {
	if _, ok := p.values[key]; !ok {
		return false
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	return len(p.keys)
}

// All returns a snapshot of the parameters in insertion order.
func (p *Params) All() []Param {
	out := make([]Param, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, Param{Key: k, Value: p.values[k]})
	}
	return out
}

// Encode joins the parameters as key=value pairs with '&', in insertion
// order. Keys and values are written verbatim; callers pre-encode anything
// that needs escaping.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.values[k])
	}
	return b.String()
}
