// Package store is the client side of the shared document service: a
// key-value tree of JSON documents with get, full overwrite, shallow merge,
// and watch primitives. There are no transactions and no server-side compute;
// every writer computes its next state from its own latest snapshot and
// overwrites unconditionally (last writer wins).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no document exists at the path.
var ErrNotFound = errors.New("document not found")

// ErrClosed is returned by writes and watches against a closed store.
var ErrClosed = errors.New("store closed")

// Store is the document store consumed by every simulation component.
//
// Watch delivers full-value JSON snapshots: the current value first (if any),
// then one per write, in write order as observed by this client. The returned
// cancel func must be called on teardown; it closes the channel. Set fully
// overwrites the document at path; Update shallow-merges fields into it.
type Store interface {
	Get(ctx context.Context, path string, out any) error
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Watch(ctx context.Context, path string) (<-chan []byte, func(), error)
	Close() error
}

// mergeInto shallow-merges fields over the JSON object in raw. A missing or
// null document merges over an empty object.
func mergeInto(raw []byte, fields map[string]any) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("merge target is not an object: %w", err)
		}
	}
	for k, v := range fields {
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		doc[k] = enc
	}
	return json.Marshal(doc)
}
