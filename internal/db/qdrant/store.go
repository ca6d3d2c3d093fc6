// Package qdrant implements the vector index over Qdrant's gRPC API.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/domain/point"
)

// Compile-time check: Store implements point.Index.
var _ point.Index = (*Store)(nil)

// PointsAPI is the subset of pb.PointsClient the store calls.
type PointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	CreateFieldIndex(
		ctx context.Context, in *pb.CreateFieldIndexCollection, opts ...grpc.CallOption,
	) (*pb.PointsOperationResponse, error)
}

// CollectionsAPI is the subset of pb.CollectionsClient the store calls.
type CollectionsAPI interface {
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// HealthAPI is the subset of pb.QdrantClient the store calls.
type HealthAPI interface {
	HealthCheck(ctx context.Context, in *pb.HealthCheckRequest, opts ...grpc.CallOption) (*pb.HealthCheckReply, error)
}

// Config holds connection and HNSW parameters.
type Config struct {
	Addr            string
	HNSWM           int
	HNSWEFConstruct int
}

// Store is the sole owner of Qdrant calls.
type Store struct {
	conn        *grpc.ClientConn
	points      PointsAPI
	collections CollectionsAPI
	health      HealthAPI
	hnswM       uint64
	hnswEF      uint64
}

// NewStore connects to Qdrant at cfg.Addr. The connection is established lazily.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("qdrant addr is required")
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", cfg.Addr, err)
	}
	s := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), pb.NewQdrantClient(conn))
	s.conn = conn
	s.hnswM = uint64(max(cfg.HNSWM, 0))
	s.hnswEF = uint64(max(cfg.HNSWEFConstruct, 0))
	return s, nil
}

// NewWithClients builds a store over explicit clients.
func NewWithClients(points PointsAPI, collections CollectionsAPI, health HealthAPI) *Store {
	return &Store{points: points, collections: collections, health: health}
}

// Close closes the underlying gRPC connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close() //nolint:wrapcheck // shutdown path
}

// Ping calls the Qdrant health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.health.HealthCheck(ctx, &pb.HealthCheckRequest{}); err != nil {
		return &db.Error{Op: db.OpHealth, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until Qdrant responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for qdrant: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Collection reports the vector size of an existing collection.
func (s *Store) Collection(ctx context.Context, name string) (point.CollectionInfo, error) {
	resp, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: name})
	if err != nil {
		if isNotFound(err) {
			return point.CollectionInfo{}, db.ErrCollectionNotFound
		}
		return point.CollectionInfo{}, &db.Error{Op: db.OpCollectionInfo, Err: err}
	}
	size := resp.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	return point.CollectionInfo{Name: name, Dimension: int(size)}, nil
}

// CreateCollection creates a cosine collection and its payload indexes.
// It returns db.ErrCollectionExists without touching indexes if the collection is there.
func (s *Store) CreateCollection(ctx context.Context, spec point.CollectionSpec) error {
	req := &pb.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(spec.Dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	}
	if s.hnswM > 0 || s.hnswEF > 0 {
		hnsw := &pb.HnswConfigDiff{}
		if s.hnswM > 0 {
			hnsw.M = &s.hnswM
		}
		if s.hnswEF > 0 {
			hnsw.EfConstruct = &s.hnswEF
		}
		req.HnswConfig = hnsw
	}

	if _, err := s.collections.Create(ctx, req); err != nil {
		if isAlreadyExists(err) {
			return db.ErrCollectionExists
		}
		return &db.Error{Op: db.OpCreateCollection, Err: err}
	}
	return s.EnsureFieldIndexes(ctx, spec)
}

// EnsureFieldIndexes creates the payload indexes of spec, tenant id first.
// Indexes that already exist are left alone, so it is safe on existing collections.
func (s *Store) EnsureFieldIndexes(ctx context.Context, spec point.CollectionSpec) error {
	fields := append([]point.FieldSpec{{Name: point.FieldTenantID, Type: point.FieldKeyword}}, spec.Fields...)
	wait := true
	for _, f := range fields {
		ft := pb.FieldType_FieldTypeKeyword
		if f.Type == point.FieldNumeric {
			ft = pb.FieldType_FieldTypeFloat
		}
		_, err := s.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: spec.Name,
			Wait:           &wait,
			FieldName:      f.Name,
			FieldType:      ft.Enum(),
		})
		if err != nil && !isAlreadyExists(err) {
			return &db.Error{Op: db.OpCreateFieldIndex, Err: fmt.Errorf("field %s: %w", f.Name, err)}
		}
	}
	return nil
}

// Upsert writes points and waits for the write to be applied.
func (s *Store) Upsert(ctx context.Context, collection string, points []point.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		structs[i] = &pb.PointStruct{
			Id: pointID(p.ID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}},
			},
			Payload: toPayload(p.Payload),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return &db.Error{Op: db.OpUpsert, Err: fmt.Errorf("%d points: %w", len(points), err)}
	}
	return nil
}

// Search runs a filtered KNN query. Results come back ordered by descending score.
func (s *Store) Search(ctx context.Context, collection string, req point.SearchRequest) ([]point.Candidate, error) {
	if req.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	sreq := &pb.SearchPoints{
		CollectionName: collection,
		Vector:         req.Vector,
		Limit:          uint64(req.Limit),
		Filter:         toFilter(req.Filter),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}

	resp, err := s.points.Search(ctx, sreq)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	out := make([]point.Candidate, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		out = append(out, point.Candidate{
			ID:      idString(r.GetId()),
			Score:   float64(r.GetScore()),
			Payload: fromPayload(r.GetPayload()),
		})
	}
	return out, nil
}

// Delete removes points matching the selector. IDs and filter combine with AND.
func (s *Store) Delete(ctx context.Context, collection string, sel point.Selector) error {
	if sel.IsEmpty() {
		return db.ErrUnsupportedSelector
	}

	f := toFilter(sel.Filter)
	if f == nil {
		f = &pb.Filter{}
	}
	if len(sel.IDs) > 0 {
		f.Must = append([]*pb.Condition{hasID(sel.IDs)}, f.Must...)
	}

	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: f},
		},
	})
	if err != nil {
		return &db.Error{Op: db.OpDelete, Err: err}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	if status.Code(err) == codes.AlreadyExists {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func isNotFound(err error) bool {
	if status.Code(err) == codes.NotFound {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
