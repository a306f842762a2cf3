package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local development.
// It honors the same query, sentinel, batch-size and change-stream
// semantics as the Firestore backend.
type MemoryStore struct {
	mu        sync.RWMutex
	colls     map[string]map[string]Doc
	watchers  map[int]*memWatcher
	nextWatch int
	batchLog  []int
}

type memWatcher struct {
	path   string
	notify chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		colls:    make(map[string]map[string]Doc),
		watchers: make(map[int]*memWatcher),
	}
}

// BatchSizes returns the sizes of every committed batch, oldest first.
func (s *MemoryStore) BatchSizes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.batchLog))
	copy(out, s.batchLog)
	return out
}

func (s *MemoryStore) Get(ctx context.Context, path, id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.colls[path][id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{ID: id, Data: cloneDoc(doc)}, nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluate(q), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query) (<-chan []Snapshot, error) {
	out := make(chan []Snapshot, 1)

	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	w := &memWatcher{path: q.Path, notify: make(chan struct{}, 1)}
	s.watchers[id] = w
	s.mu.Unlock()

	w.notify <- struct{}{} // initial emission

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
			close(out)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
				s.mu.RLock()
				snaps := s.evaluate(q)
				s.mu.RUnlock()

				select {
				case out <- snaps:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, path, id string, doc Doc) error {
	s.mu.Lock()
	s.putLocked(path, id, doc)
	s.mu.Unlock()
	s.notifyPath(path)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, path, id string, updates []Update) error {
	s.mu.Lock()
	err := s.updateLocked(path, id, updates)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notifyPath(path)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path, id string) error {
	s.mu.Lock()
	delete(s.colls[path], id)
	s.mu.Unlock()
	s.notifyPath(path)
	return nil
}

func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{store: s}
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()

	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}

	// Staged writes apply only once the function succeeds, matching the
	// commit-time semantics of the remote backend.
	paths := tx.apply()
	s.mu.Unlock()

	for path := range paths {
		s.notifyPath(path)
	}
	return nil
}

type memOp struct {
	kind    string // "put", "update", "delete"
	path    string
	id      string
	doc     Doc
	updates []Update
}

type memoryBatch struct {
	store *MemoryStore
	ops   []memOp
}

func (b *memoryBatch) Put(path, id string, doc Doc) {
	b.ops = append(b.ops, memOp{kind: "put", path: path, id: id, doc: doc})
}

func (b *memoryBatch) Update(path, id string, updates []Update) {
	b.ops = append(b.ops, memOp{kind: "update", path: path, id: id, updates: updates})
}

func (b *memoryBatch) Delete(path, id string) {
	b.ops = append(b.ops, memOp{kind: "delete", path: path, id: id})
}

func (b *memoryBatch) Len() int { return len(b.ops) }

func (b *memoryBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > MaxBatchSize {
		return fmt.Errorf("docstore: batch of %d operations exceeds limit of %d", len(b.ops), MaxBatchSize)
	}

	s := b.store
	s.mu.Lock()
	paths := make(map[string]struct{})
	for _, op := range b.ops {
		paths[op.path] = struct{}{}
		switch op.kind {
		case "put":
			s.putLocked(op.path, op.id, op.doc)
		case "update":
			// Batched updates tolerate missing docs the same way the
			// remote batch surfaces them: skip silently after commit.
			_ = s.updateLocked(op.path, op.id, op.updates)
		case "delete":
			delete(s.colls[op.path], op.id)
		}
	}
	s.batchLog = append(s.batchLog, len(b.ops))
	s.mu.Unlock()

	for path := range paths {
		s.notifyPath(path)
	}
	b.ops = nil
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	staged []memOp
}

func (t *memoryTx) Get(path, id string) (Snapshot, error) {
	doc, ok := t.store.colls[path][id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{ID: id, Data: cloneDoc(doc)}, nil
}

func (t *memoryTx) Put(path, id string, doc Doc) error {
	t.staged = append(t.staged, memOp{kind: "put", path: path, id: id, doc: doc})
	return nil
}

func (t *memoryTx) Update(path, id string, updates []Update) error {
	t.staged = append(t.staged, memOp{kind: "update", path: path, id: id, updates: updates})
	return nil
}

func (t *memoryTx) Delete(path, id string) error {
	t.staged = append(t.staged, memOp{kind: "delete", path: path, id: id})
	return nil
}

func (t *memoryTx) apply() map[string]struct{} {
	paths := make(map[string]struct{})
	for _, op := range t.staged {
		paths[op.path] = struct{}{}
		switch op.kind {
		case "put":
			t.store.putLocked(op.path, op.id, op.doc)
		case "update":
			_ = t.store.updateLocked(op.path, op.id, op.updates)
		case "delete":
			delete(t.store.colls[op.path], op.id)
		}
	}
	return paths
}

func (s *MemoryStore) putLocked(path, id string, doc Doc) {
	coll, ok := s.colls[path]
	if !ok {
		coll = make(map[string]Doc)
		s.colls[path] = coll
	}
	coll[id] = cloneDoc(doc)
}

func (s *MemoryStore) updateLocked(path, id string, updates []Update) error {
	doc, ok := s.colls[path][id]
	if !ok {
		return ErrNotFound
	}
	for _, u := range updates {
		applyUpdate(doc, u)
	}
	return nil
}

func (s *MemoryStore) notifyPath(path string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		if w.path != path {
			continue
		}
		select {
		case w.notify <- struct{}{}:
		default:
			// A recompute is already pending; emissions coalesce.
		}
	}
}

func (s *MemoryStore) evaluate(q Query) []Snapshot {
	var matched []Snapshot
	for id, doc := range s.colls[q.Path] {
		if matchesFilters(doc, q.Filters) {
			matched = append(matched, Snapshot{ID: id, Data: cloneDoc(doc)})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return orderCompare(matched[i], matched[j], q.OrderBy) < 0
	})

	if len(q.StartAfter) > 0 {
		cursor := q.StartAfter
		kept := matched[:0]
		for _, snap := range matched {
			if cursorCompare(snap, cursor, q.OrderBy) > 0 {
				kept = append(kept, snap)
			}
		}
		matched = kept
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	if matched == nil {
		matched = []Snapshot{}
	}
	return matched
}

func matchesFilters(doc Doc, filters []Filter) bool {
	for _, f := range filters {
		value, ok := resolvePath(doc, f.Path)
		if !ok {
			return false
		}
		switch f.Op {
		case OpEqual:
			if !equalValues(value, f.Value) {
				return false
			}
		case OpArrayContains:
			if !arrayContains(value, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func arrayContains(value, target interface{}) bool {
	items, ok := value.([]interface{})
	if !ok {
		return false
	}
	for _, item := range items {
		if equalValues(item, target) {
			return true
		}
	}
	return false
}

func orderCompare(a, b Snapshot, orders []Order) int {
	for _, o := range orders {
		av, _ := resolvePath(a.Data, o.Path)
		bv, _ := resolvePath(b.Data, o.Path)
		c := compareValues(av, bv)
		if o.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return strings.Compare(a.ID, b.ID)
}

// cursorCompare positions snap relative to the cursor tuple within the
// query's sort order: >0 means snap comes strictly after the cursor.
func cursorCompare(snap Snapshot, cursor []interface{}, orders []Order) int {
	for i, o := range orders {
		if i >= len(cursor) {
			break
		}
		v, _ := resolvePath(snap.Data, o.Path)
		c := compareValues(v, cursor[i])
		if o.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0
		}
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case int64:
		bv, ok := toInt64(b)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		return strings.Compare(av, bv)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0
		}
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func equalValues(a, b interface{}) bool {
	if ai, ok := toInt64(a); ok {
		if bi, ok := toInt64(b); ok {
			return ai == bi
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

func applyUpdate(doc Doc, u Update) {
	switch v := u.Value.(type) {
	case deleteFieldValue:
		deletePath(doc, u.Path)
	case incrementValue:
		current, _ := resolvePath(doc, u.Path)
		base, _ := toInt64(current)
		setPath(doc, u.Path, base+v.Amount)
	case arrayUnionValue:
		current, _ := resolvePath(doc, u.Path)
		items, _ := current.([]interface{})
		for _, add := range v.Values {
			present := false
			for _, item := range items {
				if equalValues(item, add) {
					present = true
					break
				}
			}
			if !present {
				items = append(items, add)
			}
		}
		setPath(doc, u.Path, items)
	case arrayRemoveValue:
		current, _ := resolvePath(doc, u.Path)
		items, _ := current.([]interface{})
		kept := make([]interface{}, 0, len(items))
		for _, item := range items {
			remove := false
			for _, target := range v.Values {
				if equalValues(item, target) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, item)
			}
		}
		setPath(doc, u.Path, kept)
	default:
		setPath(doc, u.Path, u.Value)
	}
}

func resolvePath(doc Doc, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = map[string]interface{}(doc)
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setPath(doc Doc, path string, value interface{}) {
	parts := strings.Split(path, ".")
	m := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

func deletePath(doc Doc, path string) {
	parts := strings.Split(path, ".")
	m := map[string]interface{}(doc)
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]interface{})
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

func cloneDoc(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
