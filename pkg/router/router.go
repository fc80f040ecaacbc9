// Package router maps URL paths to page targets using a static route table.
// Patterns are slash-separated segments; a segment starting with ':' captures
// the path segment at that position.
package router

import (
	"fmt"
	"net/url"
	"strings"
)

// Route binds a name and pattern to a target.
type Route[H any] struct {
	Name    string
	Pattern string
	Target  H
}

// Match is the result of a successful Resolve.
type Match[H any] struct {
	Route  Route[H]
	Params map[string]string
}

// Router resolves paths against routes in declaration order.
type Router[H any] struct {
	routes []compiled[H]
	byName map[string]int
}

type compiled[H any] struct {
	route    Route[H]
	segments []string
}

// New validates the table. Names and patterns must be unique.
func New[H any](routes ...Route[H]) (*Router[H], error) {
	r := &Router[H]{byName: make(map[string]int, len(routes))}
	seen := make(map[string]bool, len(routes))
	for _, rt := range routes {
		if !strings.HasPrefix(rt.Pattern, "/") {
			return nil, fmt.Errorf("router: pattern %q must start with /", rt.Pattern)
		}
		if _, dup := r.byName[rt.Name]; dup {
			return nil, fmt.Errorf("router: duplicate route name %q", rt.Name)
		}
		segs := split(rt.Pattern)
		key := shape(segs)
		if seen[key] {
			return nil, fmt.Errorf("router: duplicate pattern %q", rt.Pattern)
		}
		seen[key] = true
		for _, s := range segs {
			if s == ":" {
				return nil, fmt.Errorf("router: unnamed parameter in %q", rt.Pattern)
			}
		}
		r.byName[rt.Name] = len(r.routes)
		r.routes = append(r.routes, compiled[H]{route: rt, segments: segs})
	}
	return r, nil
}

// MustNew is New for static tables.
func MustNew[H any](routes ...Route[H]) *Router[H] {
	r, err := New(routes...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve matches path against the table. A trailing slash is ignored.
func (r *Router[H]) Resolve(path string) (Match[H], bool) {
	segs := split(path)
	for _, c := range r.routes {
		if params, ok := match(c.segments, segs); ok {
			return Match[H]{Route: c.route, Params: params}, true
		}
	}
	return Match[H]{}, false
}

// Path builds the URL for the named route, escaping parameter values.
func (r *Router[H]) Path(name string, params map[string]string) (string, error) {
	i, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("router: unknown route %q", name)
	}
	c := r.routes[i]
	if len(c.segments) == 0 {
		return "/", nil
	}
	var b strings.Builder
	for _, s := range c.segments {
		b.WriteByte('/')
		if p, isParam := strings.CutPrefix(s, ":"); isParam {
			v, ok := params[p]
			if !ok || v == "" {
				return "", fmt.Errorf("router: route %q needs parameter %q", name, p)
			}
			b.WriteString(url.PathEscape(v))
			continue
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Routes returns the table in declaration order.
func (r *Router[H]) Routes() []Route[H] {
	out := make([]Route[H], 0, len(r.routes))
	for _, c := range r.routes {
		out = append(out, c.route)
	}
	return out
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// shape normalizes parameter names so "/books/:id" and "/books/:slug" collide.
func shape(segs []string) string {
	out := make([]string, len(segs))
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			out[i] = ":"
		} else {
			out[i] = s
		}
	}
	return "/" + strings.Join(out, "/")
}

func match(pattern, segs []string) (map[string]string, bool) {
	if len(pattern) != len(segs) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range pattern {
		if name, isParam := strings.CutPrefix(p, ":"); isParam {
			if segs[i] == "" {
				return nil, false
			}
			v, err := url.PathUnescape(segs[i])
			if err != nil {
				return nil, false
			}
			params[name] = v
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}
