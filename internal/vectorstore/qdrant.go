package vectorstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var tracer = otel.Tracer("searchd.vectorstore.qdrant")

// collectionNamePattern validates collection names: lowercase letters,
// numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// Payload field names. Query filters and result mapping depend on these.
const (
	payloadProjectID  = "project_id"
	payloadDocumentID = "document_id"
	payloadChunkIndex = "chunk_index"
	payloadCategory   = "category"
	payloadContent    = "content"
)

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname. Default: "localhost".
	Host string

	// Port is the Qdrant gRPC port (6334, not the 6333 REST port).
	Port int

	// CollectionName is the single collection holding all tenants' chunks.
	CollectionName string

	// VectorSize is the embedding dimensionality. Hard contract: must match
	// the embedding provider's output exactly.
	VectorSize uint64

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// APIKey authenticates against a secured Qdrant deployment. Optional.
	APIKey string

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB.
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if !collectionNamePattern.MatchString(c.CollectionName) {
		return fmt.Errorf("%w: invalid collection name %q", ErrInvalidConfig, c.CollectionName)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
//
// No retry or circuit breaking happens here: a failed call is surfaced to the
// orchestrator as an upstream failure for that request only. Retries belong
// to the calling transport layer.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
}

// NewQdrantStore creates a QdrantStore with the given configuration.
func NewQdrantStore(config QdrantConfig) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		APIKey: config.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return &QdrantStore{client: client, config: config}, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Healthy reports Qdrant reachability.
func (s *QdrantStore) Healthy(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// EnsureCollection creates the configured collection if absent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.EnsureCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", s.config.CollectionName))

	exists, err := s.collectionExists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if exists {
		span.SetStatus(codes.Ok, "exists")
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.config.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", s.config.CollectionName, err)
	}

	span.SetStatus(codes.Ok, "created")
	return nil
}

func (s *QdrantStore) collectionExists(ctx context.Context) (bool, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.config.CollectionName)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("checking collection %s: %w", s.config.CollectionName, err)
	}
	return info != nil, nil
}

// UpsertPoints writes chunk vectors with their payloads.
func (s *QdrantStore) UpsertPoints(ctx context.Context, points []Point) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.UpsertPoints")
	defer span.End()
	span.SetAttributes(
		attribute.Int("point_count", len(points)),
		attribute.String("collection", s.config.CollectionName),
	)

	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		if uint64(len(p.Vector)) != s.config.VectorSize {
			err := fmt.Errorf("%w: chunk %s has %d dimensions, collection expects %d",
				ErrBadVector, p.ChunkID, len(p.Vector), s.config.VectorSize)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		payload := map[string]*qdrant.Value{
			payloadProjectID:  {Kind: &qdrant.Value_StringValue{StringValue: p.ProjectID.String()}},
			payloadDocumentID: {Kind: &qdrant.Value_StringValue{StringValue: p.DocumentID.String()}},
			payloadChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
			payloadCategory:   {Kind: &qdrant.Value_StringValue{StringValue: p.Category}},
			payloadContent:    {Kind: &qdrant.Value_StringValue{StringValue: p.Content}},
		}

		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ChunkID.String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.CollectionName,
		Points:         qpoints,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query returns the project's nearest chunks to the query vector.
func (s *QdrantStore) Query(ctx context.Context, projectID uuid.UUID, vector []float32, limit int, category string) ([]Candidate, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Query")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", s.config.CollectionName),
		attribute.String("project_id", projectID.String()),
		attribute.Int("limit", limit),
	)

	if uint64(len(vector)) != s.config.VectorSize {
		err := fmt.Errorf("%w: query vector has %d dimensions, collection expects %d",
			ErrBadVector, len(vector), s.config.VectorSize)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if limit <= 0 {
		return []Candidate{}, nil
	}

	conditions := []*qdrant.Condition{matchKeyword(payloadProjectID, projectID.String())}
	if category != "" {
		conditions = append(conditions, matchKeyword(payloadCategory, category))
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         &qdrant.Filter{Must: conditions},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.CollectionName, err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, point := range results {
		c, err := candidateFromPoint(point)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		candidates = append(candidates, c)
	}

	span.SetAttributes(attribute.Int("results_count", len(candidates)))
	span.SetStatus(codes.Ok, "success")
	return candidates, nil
}

// DeleteDocument removes every point carrying the document's id.
func (s *QdrantStore) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.DeleteDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document_id", documentID.String()))

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.config.CollectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{matchKeyword(payloadDocumentID, documentID.String())},
				},
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting document points: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

func matchKeyword(key, value string) *qdrant.Condition {
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

func candidateFromPoint(point *qdrant.ScoredPoint) (Candidate, error) {
	c := Candidate{Score: float64(point.Score)}
	if c.Score < 0 {
		c.Score = 0
	}

	id := point.Id.GetUuid()
	chunkID, err := uuid.Parse(id)
	if err != nil {
		return Candidate{}, fmt.Errorf("parsing point id %q: %w", id, err)
	}
	c.ChunkID = chunkID

	payload := point.Payload
	if v := payload[payloadContent]; v != nil {
		c.Content = v.GetStringValue()
	}
	if v := payload[payloadChunkIndex]; v != nil {
		c.ChunkIndex = int(v.GetIntegerValue())
	}
	if v := payload[payloadDocumentID]; v != nil {
		docID, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return Candidate{}, fmt.Errorf("parsing document id payload: %w", err)
		}
		c.DocumentID = docID
	}
	return c, nil
}
