package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chatsync/pkg/logger"
)

type firestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps a Firestore client as a Store. Collection paths
// map directly onto Firestore collections and subcollections.
func NewFirestoreStore(client *firestore.Client) Store {
	return &firestoreStore{client: client}
}

func (s *firestoreStore) Get(ctx context.Context, path, id string) (Snapshot, error) {
	doc, err := s.client.Collection(path).Doc(id).Get(ctx)
	if err != nil {
		return Snapshot{}, translateError(err)
	}
	return Snapshot{ID: doc.Ref.ID, Data: doc.Data()}, nil
}

func (s *firestoreStore) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	docs, err := s.buildQuery(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, translateError(err)
	}

	snaps := make([]Snapshot, 0, len(docs))
	for _, doc := range docs {
		snaps = append(snaps, Snapshot{ID: doc.Ref.ID, Data: doc.Data()})
	}
	return snaps, nil
}

func (s *firestoreStore) Subscribe(ctx context.Context, q Query) (<-chan []Snapshot, error) {
	out := make(chan []Snapshot, 1)
	iter := s.buildQuery(q).Snapshots(ctx)

	go func() {
		defer close(out)
		defer iter.Stop()

		for {
			qs, err := iter.Next()
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("firestore watch for %s ended: %v", q.Path, err)
				}
				return
			}

			docs, err := qs.Documents.GetAll()
			if err != nil {
				logger.Warn("firestore watch read for %s failed: %v", q.Path, err)
				continue
			}

			snaps := make([]Snapshot, 0, len(docs))
			for _, doc := range docs {
				snaps = append(snaps, Snapshot{ID: doc.Ref.ID, Data: doc.Data()})
			}

			select {
			case out <- snaps:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *firestoreStore) Put(ctx context.Context, path, id string, doc Doc) error {
	_, err := s.client.Collection(path).Doc(id).Set(ctx, doc)
	return translateError(err)
}

func (s *firestoreStore) Update(ctx context.Context, path, id string, updates []Update) error {
	_, err := s.client.Collection(path).Doc(id).Update(ctx, toFirestoreUpdates(updates))
	return translateError(err)
}

func (s *firestoreStore) Delete(ctx context.Context, path, id string) error {
	_, err := s.client.Collection(path).Doc(id).Delete(ctx)
	return translateError(err)
}

func (s *firestoreStore) Batch() Batch {
	return &firestoreBatch{store: s.client, batch: s.client.Batch()}
}

func (s *firestoreStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(&firestoreTx{client: s.client, tx: tx})
	})
	return translateError(err)
}

type firestoreBatch struct {
	store *firestore.Client
	batch *firestore.WriteBatch
	size  int
}

func (b *firestoreBatch) Put(path, id string, doc Doc) {
	b.batch.Set(b.store.Collection(path).Doc(id), doc)
	b.size++
}

func (b *firestoreBatch) Update(path, id string, updates []Update) {
	b.batch.Update(b.store.Collection(path).Doc(id), toFirestoreUpdates(updates))
	b.size++
}

func (b *firestoreBatch) Delete(path, id string) {
	b.batch.Delete(b.store.Collection(path).Doc(id))
	b.size++
}

func (b *firestoreBatch) Len() int { return b.size }

func (b *firestoreBatch) Commit(ctx context.Context) error {
	if b.size == 0 {
		return nil
	}
	if b.size > MaxBatchSize {
		return fmt.Errorf("docstore: batch of %d operations exceeds limit of %d", b.size, MaxBatchSize)
	}
	_, err := b.batch.Commit(ctx)
	return translateError(err)
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(path, id string) (Snapshot, error) {
	doc, err := t.tx.Get(t.client.Collection(path).Doc(id))
	if err != nil {
		return Snapshot{}, translateError(err)
	}
	return Snapshot{ID: doc.Ref.ID, Data: doc.Data()}, nil
}

func (t *firestoreTx) Put(path, id string, doc Doc) error {
	return t.tx.Set(t.client.Collection(path).Doc(id), doc)
}

func (t *firestoreTx) Update(path, id string, updates []Update) error {
	return t.tx.Update(t.client.Collection(path).Doc(id), toFirestoreUpdates(updates))
}

func (t *firestoreTx) Delete(path, id string) error {
	return t.tx.Delete(t.client.Collection(path).Doc(id))
}

func (s *firestoreStore) buildQuery(q Query) firestore.Query {
	fq := s.client.Collection(q.Path).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Path, f.Op, f.Value)
	}
	for _, o := range q.OrderBy {
		dir := firestore.Asc
		if o.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(o.Path, dir)
	}
	if len(q.StartAfter) > 0 {
		fq = fq.StartAfter(q.StartAfter...)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

func toFirestoreUpdates(updates []Update) []firestore.Update {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		var value interface{}
		switch v := u.Value.(type) {
		case incrementValue:
			value = firestore.Increment(v.Amount)
		case arrayUnionValue:
			value = firestore.ArrayUnion(v.Values...)
		case arrayRemoveValue:
			value = firestore.ArrayRemove(v.Values...)
		case deleteFieldValue:
			value = firestore.Delete
		default:
			value = u.Value
		}
		out = append(out, firestore.Update{Path: u.Path, Value: value})
	}
	return out
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
