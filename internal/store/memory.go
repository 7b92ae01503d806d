package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ThrottleFunc lets tests reject part of a batch. It returns the items to
// report as unprocessed.
type ThrottleFunc func(table string, batch []Item) []Item

// Memory is an in-process ItemStore used by tests and local runs.
type Memory struct {
	mu       sync.Mutex
	schemas  map[string]Schema
	tables   map[string]map[string]Item
	throttle ThrottleFunc
	writes   int
}

var _ ItemStore = (*Memory)(nil)

// NewMemory creates an empty store for the given tables.
func NewMemory(schemas ...Schema) *Memory {
	m := &Memory{
		schemas: make(map[string]Schema, len(schemas)),
		tables:  make(map[string]map[string]Item, len(schemas)),
	}
	for _, s := range schemas {
		m.schemas[s.Table] = s
		m.tables[s.Table] = map[string]Item{}
	}
	return m
}

// SetThrottle installs fn for subsequent BatchPut calls. nil disables it.
func (m *Memory) SetThrottle(fn ThrottleFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttle = fn
}

// Writes returns the number of items written since creation.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Len returns the number of items in table.
func (m *Memory) Len(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}

func (m *Memory) Get(_ context.Context, table string, key Key) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, rows, err := m.table(table)
	if err != nil {
		return nil, err
	}
	id, err := keyString(s, Item(key))
	if err != nil {
		return nil, err
	}
	item, ok := rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(item)
}

func (m *Memory) Put(_ context.Context, table string, item Item, cond Condition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, rows, err := m.table(table)
	if err != nil {
		return err
	}
	id, err := keyString(s, item)
	if err != nil {
		return err
	}
	if !Evaluate(cond, rows[id]) {
		return ErrConditionFailed
	}
	cp, err := copyItem(item)
	if err != nil {
		return err
	}
	rows[id] = cp
	m.writes++
	return nil
}

func (m *Memory) Update(_ context.Context, table string, key Key, in UpdateInput) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, rows, err := m.table(table)
	if err != nil {
		return nil, err
	}
	id, err := keyString(s, Item(key))
	if err != nil {
		return nil, err
	}
	existing := rows[id]
	if !Evaluate(in.Condition, existing) {
		return nil, ErrConditionFailed
	}

	next, err := copyItem(existing)
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = Item{}
	}
	for k, v := range key {
		next[k] = v
	}
	for k, v := range in.Set {
		next[k] = v
	}
	for _, k := range in.Remove {
		delete(next, k)
	}
	if next, err = copyItem(next); err != nil {
		return nil, err
	}
	rows[id] = next
	m.writes++
	return copyItem(next)
}

type memoryCursor struct {
	Offset int `json:"offset"`
}

func (m *Memory) Query(_ context.Context, in QueryInput) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, rows, err := m.table(in.Table)
	if err != nil {
		return Page{}, err
	}
	idx, ok := s.Index(in.Index)
	if !ok {
		return Page{}, fmt.Errorf("%w: %s on %s", ErrUnknownIndex, in.Index, in.Table)
	}
	keyName := in.KeyName
	if keyName == "" {
		keyName = idx.PartitionKey
	}

	want := normalize(in.KeyValue)
	type match struct {
		id   string
		item Item
	}
	var matches []match
	for id, item := range rows {
		if v, ok := item[keyName]; ok && fmt.Sprint(normalize(v)) == fmt.Sprint(want) {
			matches = append(matches, match{id: id, item: item})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if idx.SortKey != "" {
			a, b := normalize(matches[i].item[idx.SortKey]), normalize(matches[j].item[idx.SortKey])
			if less(a, b) {
				return true
			}
			if less(b, a) {
				return false
			}
		}
		return matches[i].id < matches[j].id
	})

	var cur memoryCursor
	if in.StartToken != "" {
		if err := DecodeToken(in.StartToken, &cur); err != nil {
			return Page{}, err
		}
	}
	if cur.Offset > len(matches) {
		cur.Offset = len(matches)
	}
	end := len(matches)
	if in.Limit > 0 && cur.Offset+in.Limit < end {
		end = cur.Offset + in.Limit
	}

	page := Page{Items: make([]Item, 0, end-cur.Offset)}
	for _, mt := range matches[cur.Offset:end] {
		cp, err := copyItem(mt.item)
		if err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, cp)
	}
	if end < len(matches) {
		tok, err := EncodeToken(memoryCursor{Offset: end})
		if err != nil {
			return Page{}, err
		}
		page.NextToken = tok
	}
	return page, nil
}

func (m *Memory) BatchPut(_ context.Context, table string, items []Item) ([]Item, error) {
	if len(items) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d items", ErrBatchTooLarge, len(items))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, rows, err := m.table(table)
	if err != nil {
		return nil, err
	}

	rejected := map[string]bool{}
	var unprocessed []Item
	if m.throttle != nil {
		for _, it := range m.throttle(table, items) {
			id, err := keyString(s, it)
			if err != nil {
				return nil, err
			}
			rejected[id] = true
			unprocessed = append(unprocessed, it)
		}
	}

	for _, it := range items {
		id, err := keyString(s, it)
		if err != nil {
			return nil, err
		}
		if rejected[id] {
			continue
		}
		cp, err := copyItem(it)
		if err != nil {
			return nil, err
		}
		rows[id] = cp
		m.writes++
	}
	return unprocessed, nil
}

func (m *Memory) table(name string) (Schema, map[string]Item, error) {
	s, ok := m.schemas[name]
	if !ok {
		return Schema{}, nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return s, m.tables[name], nil
}

// keyString renders the primary key of item as a map key.
func keyString(s Schema, item Item) (string, error) {
	parts := []any{}
	for _, name := range []string{s.PartitionKey, s.SortKey} {
		if name == "" {
			continue
		}
		v, ok := item[name]
		if !ok || v == nil || v == "" {
			return "", fmt.Errorf("%w: %s.%s", ErrMissingKey, s.Table, name)
		}
		parts = append(parts, normalize(v))
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
