package core

import (
	"context"
	"strconv"
	"strings"
)

// Resolver turns reference cells into store ids. One resolver lives for one
// import transaction and remembers the source ids of rows it has seen, so a
// sheet may reference another sheet's ID column.
type Resolver struct {
	tx    EntityStore
	remap map[string]map[string]int64 // kind -> source id -> store id
}

// NewResolver returns a resolver over tx.
func NewResolver(tx EntityStore) *Resolver {
	return &Resolver{tx: tx, remap: make(map[string]map[string]int64)}
}

// Remember maps a row's source id to the id it has in the store.
func (r *Resolver) Remember(kind, sourceID string, id int64) {
	if sourceID == "" {
		return
	}
	m, ok := r.remap[kind]
	if !ok {
		m = make(map[string]int64)
		r.remap[kind] = m
	}
	m[sourceID] = id
}

// ResolveRef finds the row of ref.Target that raw names. It tries, in
// order: an exact label match (a username, an achievement name), the source
// id of a row imported earlier in this run, then a store id. scope, when
// non-nil, narrows every lookup to rows whose scope column equals it.
func (r *Resolver) ResolveRef(ctx context.Context, ref RefSpec, raw string, scope any) (int64, bool, error) {
	target, ok := Get(ref.Target)
	if !ok {
		return 0, false, nil
	}
	raw = CleanCell(raw)
	if raw == "" {
		return 0, false, nil
	}

	if target.LabelColumn != "" {
		match := Record{target.LabelColumn: raw}
		if scope != nil && target.ScopeColumn != "" {
			match[target.ScopeColumn] = scope
		}
		id, found, err := r.tx.FindID(ctx, target, match)
		if err != nil || found {
			return id, found, err
		}
	}

	n, err := ParseInt(raw)
	if err != nil || n <= 0 {
		return 0, false, nil
	}
	key := strconv.FormatInt(n, 10)

	if id, ok := r.remap[target.Kind][key]; ok {
		if scope == nil || target.ScopeColumn == "" {
			return id, true, nil
		}
		return r.tx.FindID(ctx, target, Record{"id": id, target.ScopeColumn: scope})
	}

	match := Record{"id": n}
	if scope != nil && target.ScopeColumn != "" {
		match[target.ScopeColumn] = scope
	}
	return r.tx.FindID(ctx, target, match)
}

// sourceKey normalises an ID cell so "12", "12.0" and " 12 " remap alike.
func sourceKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if n, err := ParseInt(raw); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return raw
}
