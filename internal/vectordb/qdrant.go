// Package vectordb is the Vector Store adapter: a Qdrant-backed table with
// a vector column and payload columns, matching §6's schema
// (uuid/repo_path/path/cachekey/content/start_line/end_line/index/metadata/
// embedding). repo_path scopes one running server's single collection
// across every repository it has indexed — without it, two repositories
// indexed through the same server would intermix their chunks.
package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/deepindex/codechunk/internal/models"
	"github.com/deepindex/codechunk/pkg/config"
	"github.com/deepindex/codechunk/pkg/pathutil"
	"github.com/qdrant/go-client/qdrant"
)

// uuidNamespace seeds the deterministic point-ID derivation; any fixed
// namespace works since only relative uniqueness of the derived IDs
// matters, never absolute comparability to IDs from another namespace.
var uuidNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// ChunkUUID derives the stable point identity from (repoPath, relpath,
// start_line, end_line, index), sanitizing path separators, per §6.
// Re-indexing the same file produces identical keys, so re-upsert is a true
// update rather than a duplicate insert. repoPath is folded into the key (not
// just carried as a separate payload field) so two repositories that happen
// to share a relative path, start/end line, and index never collide on the
// same point — the single collection this server keys into is shared across
// every repo_path ever indexed into it.
func ChunkUUID(repoPath, relpath string, startLine, endLine, index int) string {
	key := fmt.Sprintf("%s_%s_%d_%d_%d", pathutil.SanitizeForKey(repoPath), pathutil.SanitizeForKey(relpath), startLine, endLine, index)
	return uuid.NewSHA1(uuidNamespace, []byte(key)).String()
}

// Client is the Qdrant-backed Vector Store.
type Client struct {
	config     *config.VectorDBConfig
	client     *qdrant.Client
	collection string
}

// NewClient connects to Qdrant over gRPC.
func NewClient(cfg *config.VectorDBConfig) (*Client, error) {
	qdrantConfig := &qdrant.Config{
		Host:   "localhost",
		Port:   6334,
		UseTLS: false,
	}

	client, err := qdrant.NewClient(qdrantConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	return &Client{
		config:     cfg,
		client:     client,
		collection: cfg.CollectionName,
	}, nil
}

// Initialize creates the collection if it does not already exist.
func (c *Client) Initialize(ctx context.Context) error {
	log.Printf("Initializing Qdrant collection: %s", c.collection)

	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		log.Printf("Collection %s already exists", c.collection)
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(c.config.VectorSize),
					Distance: c.getDistanceMetric(),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("Created collection %s with %d dimensions", c.collection, c.config.VectorSize)
	return nil
}

// UpsertChunks inserts or updates chunks keyed by their stable identity
// (`INSERT ... ON CONFLICT (uuid) DO UPDATE SET content, metadata,
// embedding` semantics — Qdrant's Upsert is itself an upsert on point ID).
// path must already be relativized by the caller (the Indexer owns base
// resolution, per §4.5). repoPath scopes every point's identity and payload
// to one repository within the shared collection (§11/DESIGN.md).
func (c *Client) UpsertChunks(ctx context.Context, repoPath, path, cachekey string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload, err := c.buildPayload(repoPath, path, cachekey, chunk)
		if err != nil {
			return fmt.Errorf("build payload for %s#%d: %w", path, chunk.Index, err)
		}

		pointID := ChunkUUID(repoPath, path, chunk.StartLine, chunk.EndLine, chunk.Index)

		vector := make([]float32, len(chunk.Embedding))
		copy(vector, chunk.Embedding)

		points[i] = &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: pointID},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vector},
				},
			},
			Payload: payload,
		}
	}

	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	log.Printf("upserted %d chunks for %s", len(chunks), path)
	return nil
}

func (c *Client) buildPayload(repoPath, path, cachekey string, chunk models.Chunk) (map[string]*qdrant.Value, error) {
	payload := map[string]*qdrant.Value{
		"repo_path":  qdrant.NewValueString(repoPath),
		"path":       qdrant.NewValueString(path),
		"cachekey":   qdrant.NewValueString(cachekey),
		"content":    qdrant.NewValueString(chunk.Content),
		"start_line": qdrant.NewValueInt(int64(chunk.StartLine)),
		"end_line":   qdrant.NewValueInt(int64(chunk.EndLine)),
		"index":      qdrant.NewValueInt(int64(chunk.Index)),
	}

	if chunk.Metadata != nil {
		raw, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return nil, err
		}
		payload["metadata"] = qdrant.NewValueString(string(raw))

		if chunk.Metadata.SymbolType != "" {
			payload["symbol_type"] = qdrant.NewValueString(string(chunk.Metadata.SymbolType))
		}
		if chunk.Metadata.SymbolName != "" {
			payload["symbol_name"] = qdrant.NewValueString(chunk.Metadata.SymbolName)
		}
	}

	return payload, nil
}

// SearchFilter narrows a kNN query with SQL-style conjunctions: repository
// scope, path equality, and approximate containment on a metadata field
// (§4.6). RepoPath should always be set by callers querying on behalf of one
// repository — the collection is shared across every repository ever
// indexed into this server, and repo_path is the only field that scopes a
// query to one of them.
type SearchFilter struct {
	RepoPath      string
	Path          string
	MetadataField string
	MetadataValue string
}

// Search issues a cosine-distance kNN query and rehydrates matching rows
// into chunks, deserializing metadata. A failed metadata deserialization is
// logged and the chunk is returned with metadata omitted, never fatal.
func (c *Client) Search(ctx context.Context, embedding []float32, filter SearchFilter, limit int) ([]models.Chunk, []float64, error) {
	if limit <= 0 {
		limit = 5
	}
	limitUint := uint64(limit)

	queryPoints := &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limitUint,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	}

	if conditions := buildConditions(filter); len(conditions) > 0 {
		queryPoints.Filter = &qdrant.Filter{Must: conditions}
	}

	results, err := c.client.Query(ctx, queryPoints)
	if err != nil {
		log.Printf("vector search failed: %v", err)
		return []models.Chunk{}, []float64{}, nil
	}
	if len(results) == 0 {
		return []models.Chunk{}, []float64{}, nil
	}

	chunks := make([]models.Chunk, len(results))
	scores := make([]float64, len(results))
	for i, result := range results {
		scores[i] = float64(result.Score)
		chunks[i] = chunkFromPayload(result.Payload)
	}

	return chunks, scores, nil
}

func buildConditions(filter SearchFilter) []*qdrant.Condition {
	var conditions []*qdrant.Condition
	if filter.RepoPath != "" {
		conditions = append(conditions, keywordCondition("repo_path", filter.RepoPath))
	}
	if filter.Path != "" {
		conditions = append(conditions, keywordCondition("path", filter.Path))
	}
	if filter.MetadataField != "" && filter.MetadataValue != "" {
		conditions = append(conditions, keywordCondition(filter.MetadataField, filter.MetadataValue))
	}
	return conditions
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func chunkFromPayload(payload map[string]*qdrant.Value) models.Chunk {
	chunk := models.Chunk{
		FilePath:  payload["path"].GetStringValue(), // relative; repo_path scoping is applied by the caller (Searcher.Search)
		Digest:    payload["cachekey"].GetStringValue(),
		Content:   payload["content"].GetStringValue(),
		StartLine: int(payload["start_line"].GetIntegerValue()),
		EndLine:   int(payload["end_line"].GetIntegerValue()),
		Index:     int(payload["index"].GetIntegerValue()),
	}

	if raw := payload["metadata"].GetStringValue(); raw != "" {
		var meta models.ChunkMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			log.Printf("metadata deserialization failed for %s: %v", chunk.FilePath, err)
		} else {
			chunk.Metadata = &meta
		}
	}

	return chunk
}

// DeleteByPath removes every chunk whose repo_path and path payload fields
// match repoPath and path, leaving every other repository's chunks at the
// same relative path untouched.
func (c *Client) DeleteByPath(ctx context.Context, repoPath, path string) error {
	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{Must: []*qdrant.Condition{
					keywordCondition("repo_path", repoPath),
					keywordCondition("path", path),
				}},
			},
		},
	})
	return err
}

// CountByPath returns the number of chunks stored for path within repoPath.
func (c *Client) CountByPath(ctx context.Context, repoPath, path string) (int, error) {
	count, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.collection,
		Filter: &qdrant.Filter{Must: []*qdrant.Condition{
			keywordCondition("repo_path", repoPath),
			keywordCondition("path", path),
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

// Stats reports the indexed chunk count for a repository, filtering on the
// repo_path payload field so one server process indexing many repositories
// into the shared collection reports each repository's own count.
func (c *Client) Stats(ctx context.Context, repoPath string) (*models.RepoIndex, error) {
	count, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.collection,
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{keywordCondition("repo_path", repoPath)}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count points: %w", err)
	}

	return &models.RepoIndex{
		RepoPath:    repoPath,
		TotalChunks: int(count),
		Languages:   make(map[string]int),
		Status:      models.IndexStatusCompleted,
	}, nil
}

// Close closes the Qdrant client connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) getDistanceMetric() qdrant.Distance {
	switch c.config.DistanceMetric {
	case "cosine":
		return qdrant.Distance_Cosine
	case "dot":
		return qdrant.Distance_Dot
	case "euclidean":
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}
