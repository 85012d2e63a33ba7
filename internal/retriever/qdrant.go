package retriever

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantRetriever queries a single Qdrant collection holding the
// indexed corpus. Indexing the corpus into that collection is someone
// else's job; this client only reads.
type QdrantRetriever struct {
	client     *qdrant.Client
	collection string
	minScore   float32
}

// QdrantConfig holds connection settings for the Qdrant retriever.
type QdrantConfig struct {
	// Addr is the gRPC address in "host:port" form (e.g., "localhost:6334").
	Addr string

	// Collection is the name of the collection to query.
	Collection string

	// MinScore drops candidates below this similarity. Zero disables
	// the threshold.
	MinScore float32
}

// NewQdrantRetriever creates a Qdrant-backed retriever.
func NewQdrantRetriever(cfg QdrantConfig) (*QdrantRetriever, error) {
	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		// No port specified, assume the qdrant gRPC default
		host = cfg.Addr
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant address %q: %w", cfg.Addr, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantRetriever{
		client:     client,
		collection: cfg.Collection,
		minScore:   cfg.MinScore,
	}, nil
}

// Close closes the underlying gRPC connection.
func (r *QdrantRetriever) Close() error {
	return r.client.Close()
}

// Query returns the topK nearest candidates to vector. Qdrant orders
// results by similarity and returns a stable order for identical
// queries against an unchanged collection.
func (r *QdrantRetriever) Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Candidate, error) {
	if topK < 1 {
		topK = 1
	}

	req := &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if r.minScore > 0 {
		req.ScoreThreshold = qdrant.PtrOf(r.minScore)
	}
	if f := buildFilter(filter); f != nil {
		req.Filter = f
	}

	response, err := r.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	candidates := make([]Candidate, 0, len(response))
	for _, point := range response {
		candidate := Candidate{
			ID:       pointID(point.Id),
			Score:    point.Score,
			Metadata: make(map[string]string, len(point.Payload)),
		}
		for k, v := range point.Payload {
			candidate.Metadata[k] = v.GetStringValue()
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// buildFilter converts the filter predicate to qdrant match conditions.
func buildFilter(filter *Filter) *qdrant.Filter {
	if filter == nil || len(filter.Must) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(filter.Must))
	for key, value := range filter.Must {
		must = append(must, qdrant.NewMatch(key, value))
	}
	return &qdrant.Filter{Must: must}
}

// pointID renders a qdrant point ID as a string regardless of whether
// the collection uses UUID or numeric IDs.
func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// Ensure QdrantRetriever implements Retriever.
var _ Retriever = (*QdrantRetriever)(nil)
