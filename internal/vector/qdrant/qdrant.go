package qdrant

import (
	"context"
	"fmt"

	"github.com/askbase/knowledge-backend/internal/vector"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Collection implements vector.Collection using Qdrant over gRPC.
type Collection struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	name        string
	dimension   int
}

// New connects to Qdrant. The collection itself is created lazily by
// EnsureCollection.
func New(host string, port int, name string, dimension int) (*Collection, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &Collection{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		name:        name,
		dimension:   dimension,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet.
func (c *Collection) EnsureCollection(ctx context.Context) error {
	exists, err := c.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{
		CollectionName: c.name,
	})
	if err != nil {
		return fmt.Errorf("qdrant collection exists: %w", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}

	_, err = c.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: c.name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(c.dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	return nil
}

func (c *Collection) Upsert(ctx context.Context, points []vector.Point) error {
	pbPoints := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		pbPoints[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: p.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}}},
			Payload: encodePayload(p.Payload),
		}
	}

	wait := true
	_, err := c.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: c.name,
		Points:         pbPoints,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (c *Collection) Query(ctx context.Context, vec []float32, topK int) ([]vector.SearchResult, error) {
	resp, err := c.points.Search(ctx, &pb.SearchPoints{
		CollectionName: c.name,
		Vector:         vec,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]vector.SearchResult, len(resp.Result))
	for i, pt := range resp.Result {
		results[i] = vector.SearchResult{
			ID:      pt.Id.GetUuid(),
			Score:   pt.Score,
			Payload: decodePayload(pt.Payload),
		}
	}
	return results, nil
}

func (c *Collection) DeleteBySource(ctx context.Context, source string) (int, error) {
	filter := &pb.Filter{
		Must: []*pb.Condition{{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key:   "source",
					Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: source}},
				},
			},
		}},
	}

	count, err := c.points.Count(ctx, &pb.CountPoints{
		CollectionName: c.name,
		Filter:         filter,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}

	wait := true
	_, err = c.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: c.name,
		Points:         &pb.PointsSelector{PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: filter}},
		Wait:           &wait,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant delete: %w", err)
	}

	return int(count.GetResult().GetCount()), nil
}

func (c *Collection) Close() error {
	return c.conn.Close()
}

func encodePayload(p vector.Payload) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"text":        {Kind: &pb.Value_StringValue{StringValue: p.Text}},
		"source":      {Kind: &pb.Value_StringValue{StringValue: p.Source}},
		"source_type": {Kind: &pb.Value_StringValue{StringValue: p.SourceType}},
		"chunk_index": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
	}
	if p.DocumentID != nil {
		payload["document_id"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: *p.DocumentID}}
	}
	if p.URL != nil {
		payload["url"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: *p.URL}}
	}
	if p.StartTime != nil {
		payload["start_time"] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: *p.StartTime}}
	}
	if p.EndTime != nil {
		payload["end_time"] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: *p.EndTime}}
	}
	return payload
}

func decodePayload(raw map[string]*pb.Value) vector.Payload {
	p := vector.Payload{}
	if v, ok := raw["text"]; ok {
		p.Text = v.GetStringValue()
	}
	if v, ok := raw["source"]; ok {
		p.Source = v.GetStringValue()
	}
	if v, ok := raw["source_type"]; ok {
		p.SourceType = v.GetStringValue()
	}
	if v, ok := raw["chunk_index"]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := raw["document_id"]; ok {
		s := v.GetStringValue()
		p.DocumentID = &s
	}
	if v, ok := raw["url"]; ok {
		s := v.GetStringValue()
		p.URL = &s
	}
	if v, ok := raw["start_time"]; ok {
		f := v.GetDoubleValue()
		p.StartTime = &f
	}
	if v, ok := raw["end_time"]; ok {
		f := v.GetDoubleValue()
		p.EndTime = &f
	}
	return p
}

var _ vector.Collection = (*Collection)(nil)
