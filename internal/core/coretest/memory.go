// Package coretest provides in-memory implementations of the core store and
// ledger interfaces for tests.
package coretest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/stateport/internal/core"
)

// MemoryStore is a transactional in-memory core.Store. A transaction works
// on a copy of every table and replaces the originals only on success.
// Unique constraints declared by the entity definitions and references
// between entities are enforced on insert.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]core.Record
	nextID map[string]int64

	// InsertHook, when set, runs before each insert. A non-nil error is
	// returned from Insert as is.
	InsertHook func(def *core.EntityDefinition, rec core.Record) error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][]core.Record),
		nextID: make(map[string]int64),
	}
}

// InTx runs fn against a copy of the store.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx core.EntityStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		tables: make(map[string][]core.Record, len(s.tables)),
		nextID: make(map[string]int64, len(s.nextID)),
		hook:   s.InsertHook,
	}
	for t, rows := range s.tables {
		tx.tables[t] = append([]core.Record(nil), rows...)
	}
	for t, n := range s.nextID {
		tx.nextID[t] = n
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.tables = tx.tables
	s.nextID = tx.nextID
	return nil
}

// List returns copies of the rows of def ordered by id.
func (s *MemoryStore) List(_ context.Context, def *core.EntityDefinition) ([]core.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[def.Table]
	out := make([]core.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

// Seed inserts rec outside any import and returns its id. Constraints are
// not checked.
func (s *MemoryStore) Seed(def *core.EntityDefinition, rec core.Record) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID[def.Table]++
	id := s.nextID[def.Table]
	row := rec.Clone()
	row["id"] = id
	s.tables[def.Table] = append(s.tables[def.Table], row)
	return id
}

// Count returns the number of rows in def's table.
func (s *MemoryStore) Count(def *core.EntityDefinition) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[def.Table])
}

type memTx struct {
	tables map[string][]core.Record
	nextID map[string]int64
	hook   func(def *core.EntityDefinition, rec core.Record) error
}

func (t *memTx) FindID(_ context.Context, def *core.EntityDefinition, match core.Record) (int64, bool, error) {
	if len(match) == 0 {
		return 0, false, nil
	}
	for _, row := range t.tables[def.Table] {
		if rowMatches(def, row, match) {
			id, _ := row["id"].(int64)
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (t *memTx) Insert(_ context.Context, def *core.EntityDefinition, rec core.Record) (int64, error) {
	if t.hook != nil {
		if err := t.hook(def, rec); err != nil {
			return 0, err
		}
	}

	for _, cols := range def.Unique {
		key := make(core.Record, len(cols))
		for _, c := range cols {
			key[c] = rec[c]
		}
		for _, row := range t.tables[def.Table] {
			if rowMatches(def, row, key) {
				return 0, fmt.Errorf("%w: unique %v", core.ErrRowConflict, cols)
			}
		}
	}

	for _, ref := range def.Refs {
		v := rec[ref.Column]
		if v == nil {
			continue
		}
		target, ok := core.Get(ref.Target)
		if !ok {
			continue
		}
		if _, found, _ := t.FindID(context.Background(), target, core.Record{"id": v}); !found {
			return 0, fmt.Errorf("%w: %s references missing %s", core.ErrRowConflict, ref.Column, ref.Target)
		}
	}

	t.nextID[def.Table]++
	id := t.nextID[def.Table]
	row := make(core.Record, len(rec)+1)
	for _, c := range def.Columns() {
		if v, ok := rec[c]; ok {
			row[c] = v
		}
	}
	row["id"] = id
	t.tables[def.Table] = append(t.tables[def.Table], row)
	return id, nil
}

func rowMatches(def *core.EntityDefinition, row, match core.Record) bool {
	for col, want := range match {
		if !sameValue(def.IsTimeColumn(col), row[col], want) {
			return false
		}
	}
	return true
}

// sameValue compares column values the way the Postgres store does: NULL
// matches NULL, integers compare by value and times at second precision.
func sameValue(isTime bool, a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isTime {
		ta, okA := a.(time.Time)
		tb, okB := b.(time.Time)
		return okA && okB && ta.Truncate(time.Second).Equal(tb.Truncate(time.Second))
	}
	if ia, ok := asInt(a); ok {
		ib, ok := asInt(b)
		return ok && ia == ib
	}
	return a == b
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	}
	return 0, false
}

// MemoryLedger is an in-memory core.Ledger.
type MemoryLedger struct {
	mu     sync.Mutex
	events []core.AuditEvent

	// Err, when set, is returned by Record instead of storing the event.
	Err error
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Record(ctx context.Context, ev core.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.events = append(l.events, core.StampEvent(ctx, ev))
	return nil
}

func (l *MemoryLedger) List(_ context.Context, f core.AuditFilter) ([]core.AuditEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []core.AuditEvent
	for i := len(l.events) - 1; i >= 0; i-- {
		ev := l.events[i]
		switch {
		case f.Action != "" && ev.Action != f.Action,
			f.Outcome != "" && ev.Outcome != f.Outcome,
			f.AdminID != "" && ev.AdminID != f.AdminID,
			f.ImportID != "" && ev.ImportID != f.ImportID,
			!f.Since.IsZero() && ev.CreatedAt.Before(f.Since):
			continue
		}
		out = append(out, ev)
		if len(out) == f.EffectiveLimit() {
			break
		}
	}
	return out, nil
}

// Events returns every recorded event in insertion order.
func (l *MemoryLedger) Events() []core.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.AuditEvent(nil), l.events...)
}

// Find returns recorded events with the given action, in insertion order.
func (l *MemoryLedger) Find(action core.AuditAction) []core.AuditEvent {
	var out []core.AuditEvent
	for _, ev := range l.Events() {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// Stages returns the stage and outcome of each import event, for
// asserting the order decisions were made in.
func (l *MemoryLedger) Stages() []string {
	var out []string
	for _, ev := range l.Find(core.ActionImport) {
		out = append(out, fmt.Sprintf("%s:%s", ev.Stage, ev.Outcome))
	}
	return out
}
