package docstore

import (
	"context"
	"errors"
)

// Doc is the wire form of a stored document. Values are restricted to
// strings, bools, int64, float64, time.Time, []interface{} and nested
// map[string]interface{} so both backends decode identically.
type Doc = map[string]interface{}

// ErrNotFound is returned by Get and transaction reads when the target
// document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// ErrUnavailable wraps transient backend failures. The backing client's
// own transport retries before this surfaces.
var ErrUnavailable = errors.New("docstore: store unavailable")

// MaxBatchSize is the hard limit on operations per atomic batch. Bulk
// work beyond this must be chunked into sequential commits, each atomic
// on its own but not atomic relative to the others.
const MaxBatchSize = 500

type Snapshot struct {
	ID   string
	Data Doc
}

// Filter ops are limited to what every backend can serve natively.
const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

type Filter struct {
	Path  string
	Op    string
	Value interface{}
}

type Order struct {
	Path string
	Desc bool
}

// Query addresses a collection by slash-separated path, e.g.
// "conversations" or "conversations/<id>/messages".
type Query struct {
	Path       string
	Filters    []Filter
	OrderBy    []Order
	Limit      int
	StartAfter []interface{} // cursor values aligned with OrderBy
}

// Update targets a single field by dotted path. Value may be a literal
// or one of the sentinels below.
type Update struct {
	Path  string
	Value interface{}
}

type incrementValue struct{ Amount int64 }
type arrayUnionValue struct{ Values []interface{} }
type arrayRemoveValue struct{ Values []interface{} }
type deleteFieldValue struct{}

// Increment applies a read-less relative add, so concurrent writers never
// lose updates to the same counter.
func Increment(amount int64) interface{} { return incrementValue{Amount: amount} }

// ArrayUnion appends values that are not already present.
func ArrayUnion(values ...interface{}) interface{} { return arrayUnionValue{Values: values} }

// ArrayRemove removes every occurrence of the given values.
func ArrayRemove(values ...interface{}) interface{} { return arrayRemoveValue{Values: values} }

// DeleteField removes the targeted field from the document.
func DeleteField() interface{} { return deleteFieldValue{} }

// Batch is a caller-owned accumulator of writes committed atomically as a
// unit. Commit fails without applying anything if more than MaxBatchSize
// operations were added.
type Batch interface {
	Put(path, id string, doc Doc)
	Update(path, id string, updates []Update)
	Delete(path, id string)
	Len() int
	Commit(ctx context.Context) error
}

// Tx exposes reads and writes that execute atomically against the state
// observed at commit time. Backends retry the function on contention.
type Tx interface {
	Get(path, id string) (Snapshot, error)
	Put(path, id string, doc Doc) error
	Update(path, id string, updates []Update) error
	Delete(path, id string) error
}

// Store is the document database surface the chat engine is built on:
// point reads, filtered ordered queries with live change streams,
// per-document atomic writes and bounded atomic batches.
type Store interface {
	Get(ctx context.Context, path, id string) (Snapshot, error)
	Query(ctx context.Context, q Query) ([]Snapshot, error)

	// Subscribe emits the full current result set for q on every
	// underlying change, starting with one immediate emission. The
	// channel closes when ctx is cancelled; cancellation is safe at any
	// point, including mid-emission.
	Subscribe(ctx context.Context, q Query) (<-chan []Snapshot, error)

	Put(ctx context.Context, path, id string, doc Doc) error
	Update(ctx context.Context, path, id string, updates []Update) error
	Delete(ctx context.Context, path, id string) error

	Batch() Batch
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}
