package firestore

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kizuna/pkg/domain/interfaces"
	"github.com/secmon-lab/kizuna/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const cacheCollection = "cache"

type cache struct {
	client           *firestore.Client
	collectionPrefix string
	deviceID         string
}

var _ interfaces.Cache = &cache{}

func newCache(client *firestore.Client) *cache {
	return &cache{
		client:   client,
		deviceID: defaultDeviceID,
	}
}

// cacheDoc is the Firestore persistence model. The snapshot is kept as encoded
// JSON so any resource type round-trips without a per-type schema.
type cacheDoc struct {
	Key       string    `firestore:"key"`
	Kind      string    `firestore:"kind"`
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (r *cache) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, cacheCollection)).
		Doc(r.deviceID).
		Collection("entries")
}

// docID maps a cache key to a valid document ID; '/' is not allowed in IDs
func docID(key types.CacheKey) string {
	return strings.ReplaceAll(key.String(), "/", "_")
}

func (r *cache) Set(ctx context.Context, key types.CacheKey, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return goerr.Wrap(err, "failed to encode cache value", goerr.V("key", key))
	}

	doc := &cacheDoc{
		Key:       key.String(),
		Kind:      key.Kind(),
		Value:     string(data),
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := r.collection().Doc(docID(key)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put cache entry to firestore", goerr.V("key", key))
	}
	return nil
}

func (r *cache) Get(ctx context.Context, key types.CacheKey, dst any) (bool, error) {
	snap, err := r.collection().Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get cache entry from firestore", goerr.V("key", key))
	}

	var doc cacheDoc
	if err := snap.DataTo(&doc); err != nil {
		return true, goerr.Wrap(err, "failed to unmarshal cache entry", goerr.V("key", key))
	}
	if err := json.Unmarshal([]byte(doc.Value), dst); err != nil {
		return true, goerr.Wrap(err, "failed to decode cache value", goerr.V("key", key))
	}
	return true, nil
}

// ClearAll deletes every entry of the device
func (r *cache) ClearAll(ctx context.Context) error {
	iter := r.collection().Documents(ctx)
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to iterate cache entries for deletion")
		}
		refs = append(refs, doc.Ref)
	}

	if len(refs) == 0 {
		return nil
	}

	// Use BulkWriter which automatically handles batching
	bulkWriter := r.client.BulkWriter(ctx)
	defer bulkWriter.End()

	for _, ref := range refs {
		if _, err := bulkWriter.Delete(ref); err != nil {
			return goerr.Wrap(err, "failed to add Delete operation to bulk writer")
		}
	}

	bulkWriter.Flush()

	return nil
}
