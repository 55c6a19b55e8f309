package vectorstore

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// syncedAtKey is the reserved payload field holding the sync timestamp
// (unix nanoseconds) used for deterministic tie-breaking.
const syncedAtKey = "synced_at"

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client

	mu         sync.RWMutex
	dimensions map[string]int // collection -> registered dimension
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334").
func NewQdrantStore(ctx context.Context, url string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		dimensions: make(map[string]int),
	}, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the collection if missing and registers its dimension.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", collection, err)
		}
	}

	s.mu.Lock()
	s.dimensions[collection] = dimension
	s.mu.Unlock()

	return nil
}

func (s *QdrantStore) checkDimension(collection string, vector []float32) error {
	s.mu.RLock()
	dim, ok := s.dimensions[collection]
	s.mu.RUnlock()
	if ok && len(vector) != dim {
		return fmt.Errorf("%w: collection %s expects %d, got %d", ErrDimensionMismatch, collection, dim, len(vector))
	}
	return nil
}

// Upsert inserts or replaces points by entity ID.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		if err := s.checkDimension(collection, p.Vector); err != nil {
			return err
		}

		payload := map[string]*qdrant.Value{
			syncedAtKey: qdrant.NewValueInt(p.SyncedAt.UnixNano()),
		}
		for k, v := range p.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}

		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.EntityID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Delete removes points by entity ID.
func (s *QdrantStore) Delete(ctx context.Context, collection string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	ids := make([]*qdrant.PointId, len(entityIDs))
	for i, id := range entityIDs {
		ids[i] = qdrant.NewIDUUID(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: ids},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	return nil
}

// Get fetches a single point with its vector.
func (s *QdrantStore) Get(ctx context.Context, collection string, entityID string) (*Point, bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil, false, nil
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(entityID)},
		WithVectors:    qdrant.NewWithVectors(true),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get point: %w", err)
	}
	if len(points) == 0 {
		return nil, false, nil
	}

	rp := points[0]
	point := &Point{
		EntityID: entityID,
		Metadata: make(map[string]string),
	}
	if v := rp.Vectors.GetVector(); v != nil {
		point.Vector = v.Data
	}
	for k, v := range rp.Payload {
		if k == syncedAtKey {
			point.SyncedAt = time.Unix(0, v.GetIntegerValue())
			continue
		}
		point.Metadata[k] = v.GetStringValue()
	}

	return point, true, nil
}

// Query returns topK nearest points ordered by descending cosine similarity.
func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, topK int, filter *Filter) ([]SearchResult, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return []SearchResult{}, nil
	}

	if err := s.checkDimension(collection, vector); err != nil {
		return nil, err
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{
			EntityID: point.Id.GetUuid(),
			Score:    point.Score,
			Metadata: make(map[string]string),
		}
		for k, v := range point.Payload {
			if k == syncedAtKey {
				result.SyncedAt = time.Unix(0, v.GetIntegerValue())
				continue
			}
			result.Metadata[k] = v.GetStringValue()
		}
		results = append(results, result)
	}

	SortResults(results)
	return results, nil
}

// buildFilter translates a Filter into qdrant must conditions.
func buildFilter(f *Filter) *qdrant.Filter {
	if f.Empty() {
		return nil
	}

	var must []*qdrant.Condition
	for _, field := range sortedKeys(f.Equals) {
		must = append(must, qdrant.NewMatch(field, f.Equals[field]))
	}
	for _, field := range sortedKeys(f.AnyOf) {
		must = append(must, qdrant.NewMatchKeywords(field, f.AnyOf[field]...))
	}

	return &qdrant.Filter{Must: must}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortResults orders results by descending score; ties broken by most
// recently synced entity, then entity ID. Qdrant does not guarantee tie
// order, so the re-sort keeps query results deterministic.
func SortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].SyncedAt.Equal(results[j].SyncedAt) {
			return results[i].SyncedAt.After(results[j].SyncedAt)
		}
		return results[i].EntityID < results[j].EntityID
	})
}

// Ensure QdrantStore implements VectorStore.
var _ VectorStore = (*QdrantStore)(nil)
