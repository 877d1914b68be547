package run

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nlquery/internal/domain"
	"github.com/kailas-cloud/nlquery/internal/domain/query"
)

type findCall struct {
	collection      string
	filter          any
	projection      any
	sort            any
	limit           int
	caseInsensitive bool
}

type aggregateCall struct {
	collection string
	pipeline   []any
}

type mockRepo struct {
	findCalls      []findCall
	aggregateCalls []aggregateCall
	docs           []bson.M
	err            error
}

func (m *mockRepo) Find(
	_ context.Context, collection string,
	filter, projection, sort any, limit int, caseInsensitive bool,
) ([]bson.M, error) {
	m.findCalls = append(m.findCalls, findCall{
		collection:      collection,
		filter:          filter,
		projection:      projection,
		sort:            sort,
		limit:           limit,
		caseInsensitive: caseInsensitive,
	})
	return m.docs, m.err
}

func (m *mockRepo) Aggregate(_ context.Context, collection string, pipeline []any) ([]bson.M, error) {
	m.aggregateCalls = append(m.aggregateCalls, aggregateCall{collection: collection, pipeline: pipeline})
	return m.docs, m.err
}

func newService(repo *mockRepo) *Service {
	return New(repo, zap.NewNop())
}

func TestRun_FindPassesThrough(t *testing.T) {
	oid := primitive.NewObjectID()
	repo := &mockRepo{docs: []bson.M{{"_id": oid, "name": "Jens"}}}
	svc := newService(repo)

	spec := query.NewFind(
		map[string]any{"name": "Jens"},
		map[string]any{"name": 1},
		map[string]any{"name": 1},
		25,
	)
	docs, err := svc.Run(context.Background(), Request{
		Collection:      "users",
		Spec:            spec,
		CaseInsensitive: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(repo.findCalls) != 1 {
		t.Fatalf("expected 1 find call, got %d", len(repo.findCalls))
	}
	call := repo.findCalls[0]
	if call.collection != "users" {
		t.Errorf("collection = %q", call.collection)
	}
	if call.limit != 25 {
		t.Errorf("limit = %d, want 25", call.limit)
	}
	if !call.caseInsensitive {
		t.Error("caseInsensitive flag not forwarded")
	}
	if !reflect.DeepEqual(call.filter, map[string]any{"name": "Jens"}) {
		t.Errorf("filter = %#v", call.filter)
	}

	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0]["_id"] != oid.Hex() {
		t.Errorf("_id = %v, want hex string %q", docs[0]["_id"], oid.Hex())
	}
}

func TestRun_FindDecodesExtendedJSON(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	spec := query.NewFind(
		map[string]any{"_id": map[string]any{"$oid": "507f1f77bcf86cd799439011"}},
		nil, nil, 0,
	)
	if _, err := svc.Run(context.Background(), Request{Collection: "users", Spec: spec}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want, _ := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
	got := repo.findCalls[0].filter.(map[string]any)["_id"]
	if got != want {
		t.Errorf("decoded _id = %#v, want %v", got, want)
	}
}

func TestRun_FindFuzzy(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	spec := query.NewFind(map[string]any{"name": "O'Brien"}, nil, nil, 0)
	if _, err := svc.Run(context.Background(), Request{
		Collection: "users",
		Spec:       spec,
		Fuzzy:      true,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := repo.findCalls[0].filter.(map[string]any)["name"]
	clause, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("name clause = %#v, want regex clause", got)
	}
	if clause["$options"] != "i" {
		t.Errorf("$options = %v, want i", clause["$options"])
	}
	if clause["$regex"] != `O'Brien` {
		t.Errorf("$regex = %v", clause["$regex"])
	}
}

func TestRun_FindRejectsDangerousOperator(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	spec := query.NewFind(map[string]any{"$where": "this.a == 1"}, nil, nil, 0)
	_, err := svc.Run(context.Background(), Request{Collection: "users", Spec: spec})
	if !errors.Is(err, domain.ErrDangerousOperator) {
		t.Fatalf("err = %v, want ErrDangerousOperator", err)
	}
	if len(repo.findCalls) != 0 {
		t.Error("blocked query must not reach the store")
	}
}

func TestRun_FindEmptyAfterSanitization(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	// The only clause is a malformed regex; removing it empties the filter.
	spec := query.NewFind(map[string]any{"$regex": ""}, nil, nil, 0)
	_, err := svc.Run(context.Background(), Request{Collection: "users", Spec: spec})
	if !errors.Is(err, domain.ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
	if len(repo.findCalls) != 0 {
		t.Error("emptied query must not reach the store")
	}
}

func TestRun_FindEmptyFilterAllowed(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	// An intentionally empty filter lists everything up to the limit.
	spec := query.NewFind(map[string]any{}, nil, nil, 0)
	if _, err := svc.Run(context.Background(), Request{Collection: "users", Spec: spec}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.findCalls) != 1 {
		t.Fatal("expected the empty filter to execute")
	}
	if repo.findCalls[0].limit != query.DefaultLimit {
		t.Errorf("limit = %d, want %d", repo.findCalls[0].limit, query.DefaultLimit)
	}
}

func TestRun_FindStoreError(t *testing.T) {
	repo := &mockRepo{err: errors.New("server selection timeout")}
	svc := newService(repo)

	spec := query.NewFind(map[string]any{"name": "Jens"}, nil, nil, 0)
	_, err := svc.Run(context.Background(), Request{Collection: "users", Spec: spec})
	if !errors.Is(err, domain.ErrExecution) {
		t.Fatalf("err = %v, want ErrExecution", err)
	}
}

func TestRun_AggregateAppendsLimit(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	spec := query.NewAggregate([]any{map[string]any{"$match": map[string]any{}}}, 10)
	if _, err := svc.Run(context.Background(), Request{Collection: "orders", Spec: spec}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(repo.aggregateCalls) != 1 {
		t.Fatalf("expected 1 aggregate call, got %d", len(repo.aggregateCalls))
	}
	pipeline := repo.aggregateCalls[0].pipeline
	if len(pipeline) != 2 {
		t.Fatalf("pipeline length = %d, want 2", len(pipeline))
	}
	last, ok := pipeline[len(pipeline)-1].(map[string]any)
	if !ok || !reflect.DeepEqual(last, map[string]any{"$limit": 10}) {
		t.Errorf("terminal stage = %#v, want {$limit: 10}", pipeline[len(pipeline)-1])
	}
}

func TestRun_AggregateLimitAppendedAfterModelLimit(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	// Even when the model already emitted a $limit stage, the cap is
	// still appended so the final stage is always ours.
	spec := query.NewAggregate([]any{
		map[string]any{"$limit": float64(5000)},
	}, 10)
	if _, err := svc.Run(context.Background(), Request{Collection: "orders", Spec: spec}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pipeline := repo.aggregateCalls[0].pipeline
	last := pipeline[len(pipeline)-1].(map[string]any)
	if !reflect.DeepEqual(last, map[string]any{"$limit": 10}) {
		t.Errorf("terminal stage = %#v", last)
	}
}

func TestRun_AggregateFuzzyKeepsFieldPaths(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	spec := query.NewAggregate([]any{
		map[string]any{"$match": map[string]any{"name": "ada"}},
		map[string]any{"$group": map[string]any{
			"_id":   "$name",
			"total": map[string]any{"$sum": 1.0},
		}},
	}, 10)
	if _, err := svc.Run(context.Background(), Request{
		Collection: "orders",
		Spec:       spec,
		Fuzzy:      true,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pipeline := repo.aggregateCalls[0].pipeline
	match := pipeline[0].(map[string]any)["$match"].(map[string]any)
	if _, ok := match["name"].(map[string]any); !ok {
		t.Errorf("match literal not fuzzified: %v", match["name"])
	}
	group := pipeline[1].(map[string]any)["$group"].(map[string]any)
	if group["_id"] != "$name" {
		t.Errorf("group key expression changed: %v", group["_id"])
	}
}

func TestRun_AggregateRejectsDangerousOperator(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo)

	spec := query.NewAggregate([]any{
		map[string]any{"$group": map[string]any{
			"_id":   nil,
			"total": map[string]any{"$accumulator": map[string]any{}},
		}},
	}, 0)
	_, err := svc.Run(context.Background(), Request{Collection: "orders", Spec: spec})
	if !errors.Is(err, domain.ErrDangerousOperator) {
		t.Fatalf("err = %v, want ErrDangerousOperator", err)
	}
	if len(repo.aggregateCalls) != 0 {
		t.Error("blocked pipeline must not reach the store")
	}
}

func TestRun_AggregateEmptyPipeline(t *testing.T) {
	svc := newService(&mockRepo{})

	spec := query.NewAggregate(nil, 0)
	_, err := svc.Run(context.Background(), Request{Collection: "orders", Spec: spec})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRun_MissingCollection(t *testing.T) {
	svc := newService(&mockRepo{})

	spec := query.NewFind(map[string]any{}, nil, nil, 0)
	_, err := svc.Run(context.Background(), Request{Spec: spec})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRun_EncodesResultDocuments(t *testing.T) {
	created, err := time.Parse(time.RFC3339, "2024-03-01T12:00:00Z")
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	repo := &mockRepo{docs: []bson.M{{"created_at": primitive.NewDateTimeFromTime(created), "n": int64(3)}}}
	svc := newService(repo)

	spec := query.NewFind(map[string]any{}, nil, nil, 0)
	docs, runErr := svc.Run(context.Background(), Request{Collection: "users", Spec: spec})
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if docs[0]["created_at"] != "2024-03-01T12:00:00Z" {
		t.Errorf("created_at = %v", docs[0]["created_at"])
	}
}
