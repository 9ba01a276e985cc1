package vectorstore

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantIndex implements Index against a Qdrant instance over gRPC.
// Collections use cosine distance, so query scores are cosine
// similarities in [-1, 1].
type QdrantIndex struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// NewQdrant connects to a Qdrant instance.
func NewQdrant(host string, port int) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return &QdrantIndex{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

func (q *QdrantIndex) EnsureIndex(ctx context.Context, name string, dimension int) error {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant list collections: %w", err)
	}
	for _, c := range list.Collections {
		if c.Name == name {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", name, err)
	}
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, name string, ids []string, vectors [][]float32, metadata []Metadata) error {
	if len(ids) != len(vectors) || len(ids) != len(metadata) {
		return fmt.Errorf("ids, vectors and metadata must be positionally aligned")
	}

	points := make([]*pb.PointStruct, len(ids))
	for i := range ids {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: ids[i]}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
			Payload: payloadFromMetadata(metadata[i]),
		}
	}

	wait := true
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, name string, vector []float32, topK int, filter *Filter) ([]Match, error) {
	req := &pb.SearchPoints{
		CollectionName: name,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if filter != nil {
		var must []*pb.Condition
		if filter.DatasetName != "" {
			must = append(must, &pb.Condition{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key:   "dataset_name",
						Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: filter.DatasetName}},
					},
				},
			})
		}
		if len(filter.Categories) > 0 {
			must = append(must, &pb.Condition{
				ConditionOneOf: &pb.Condition_Field{
					Field: &pb.FieldCondition{
						Key: "categories",
						Match: &pb.Match{MatchValue: &pb.Match_Keywords{
							Keywords: &pb.RepeatedStrings{Strings: filter.Categories},
						}},
					},
				},
			})
		}
		if len(must) > 0 {
			req.Filter = &pb.Filter{Must: must}
		}
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	matches := make([]Match, len(resp.Result))
	for i, pt := range resp.Result {
		matches[i] = Match{
			ID:       pt.Id.GetUuid(),
			Score:    pt.Score,
			Metadata: metadataFromPayload(pt.Payload),
		}
	}
	return matches, nil
}

func (q *QdrantIndex) DeleteWhere(ctx context.Context, name, field, value string) error {
	wait := true
	_, err := q.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: name,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{{
						ConditionOneOf: &pb.Condition_Field{
							Field: &pb.FieldCondition{
								Key:   field,
								Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
							},
						},
					}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant delete where %s=%s: %w", field, value, err)
	}
	return nil
}

func (q *QdrantIndex) SetCategories(ctx context.Context, name, id string, categories []string) error {
	wait := true
	_, err := q.points.SetPayload(ctx, &pb.SetPayloadPoints{
		CollectionName: name,
		Wait:           &wait,
		Payload:        map[string]*pb.Value{"categories": stringListValue(categories)},
		PointsSelector: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{
					{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
				}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant set payload: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Close() error { return q.conn.Close() }

func payloadFromMetadata(m Metadata) map[string]*pb.Value {
	return map[string]*pb.Value{
		"id":           {Kind: &pb.Value_StringValue{StringValue: m.ID}},
		"dataset_name": {Kind: &pb.Value_StringValue{StringValue: m.DatasetName}},
		"node_set":     stringListValue(m.NodeSet),
		"categories":   stringListValue(m.Categories),
		"text":         {Kind: &pb.Value_StringValue{StringValue: m.Text}},
	}
}

func metadataFromPayload(payload map[string]*pb.Value) Metadata {
	m := Metadata{}
	if v, ok := payload["id"]; ok {
		m.ID = v.GetStringValue()
	}
	if v, ok := payload["dataset_name"]; ok {
		m.DatasetName = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		m.Text = v.GetStringValue()
	}
	m.NodeSet = stringListFromValue(payload["node_set"])
	m.Categories = stringListFromValue(payload["categories"])
	return m
}

func stringListValue(items []string) *pb.Value {
	values := make([]*pb.Value, len(items))
	for i, s := range items {
		values[i] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
	}
	return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
}

func stringListFromValue(v *pb.Value) []string {
	if v == nil {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.Values))
	for _, item := range list.Values {
		out = append(out, item.GetStringValue())
	}
	return out
}

var _ Index = (*QdrantIndex)(nil)
