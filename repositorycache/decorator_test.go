package repositorycache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/invalidation"
	"github.com/goliatone/go-inventory-cache/pkg/testsupport"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var sellerID = uuid.MustParse("6f1c1a2e-8d4b-4b7a-9c1e-2f3a4b5c6d7e")

// testSeller represents a test entity
type testSeller struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// mockRepository records calls to the methods the decorator exercises. The
// embedded interface is nil, so any other method panics if reached.
type mockRepository[T any] struct {
	repository.Repository[T]

	mu            sync.Mutex
	calls         []string
	getResult     T
	getByIDResult T
	getByIDError  error
	listRecords   []T
	listTotal     int
	listError     error
	countResult   int
	identResult   T
	writeResult   T
	writeError    error
}

func (m *mockRepository[T]) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

func (m *mockRepository[T]) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockRepository[T]) clearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("Get")
	return m.getResult, nil
}

func (m *mockRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByID")
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	m.recordCall("List")
	return m.listRecords, m.listTotal, m.listError
}

func (m *mockRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	m.recordCall("Count")
	return m.countResult, nil
}

func (m *mockRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIdentifier")
	return m.identResult, nil
}

func (m *mockRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	m.recordCall("GetByIDTx")
	return m.getByIDResult, m.getByIDError
}

func (m *mockRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	m.recordCall("Create")
	return m.writeResult, m.writeError
}

func (m *mockRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Update")
	return m.writeResult, m.writeError
}

func (m *mockRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	m.recordCall("Upsert")
	return m.writeResult, m.writeError
}

func (m *mockRepository[T]) Delete(ctx context.Context, record T) error {
	m.recordCall("Delete")
	return m.writeError
}

func (m *mockRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	m.recordCall("DeleteWhere")
	return m.writeError
}

func newTestStore(t *testing.T) cache.Store {
	t.Helper()

	cfg := cache.DefaultConfig()
	cfg.DefaultTTL = 0

	store, err := cache.NewStore(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return store
}

func newTestRepo(t *testing.T, base *mockRepository[*testSeller]) (*CachedRepository[*testSeller], cache.Store) {
	t.Helper()

	store := newTestStore(t)
	svc := invalidation.NewService(store, nil)
	return New[*testSeller](base, store, svc, "Seller"), store
}

func TestNew(t *testing.T) {
	cached, _ := newTestRepo(t, &mockRepository[*testSeller]{})

	if cached == nil {
		t.Fatal("New() returned nil")
	}
	if cached.Entity() != "Seller" {
		t.Errorf("expected entity Seller, got %s", cached.Entity())
	}

	var repo repository.Repository[*testSeller] = cached
	if repo == nil {
		t.Error("CachedRepository does not satisfy Repository interface")
	}
}

func TestCachedReadMethods_CacheMissThenHit(t *testing.T) {
	seller := &testSeller{ID: sellerID, Name: "ana"}

	tests := []struct {
		name   string
		key    string
		method string
		call   func(c *CachedRepository[*testSeller]) (any, error)
	}{
		{
			name:   "GetByID",
			key:    "sellers:id:" + sellerID.String(),
			method: "GetByID",
			call: func(c *CachedRepository[*testSeller]) (any, error) {
				return c.GetByID(context.Background(), sellerID.String())
			},
		},
		{
			name:   "GetByIdentifier",
			key:    "sellers:id:identifier:ana",
			method: "GetByIdentifier",
			call: func(c *CachedRepository[*testSeller]) (any, error) {
				return c.GetByIdentifier(context.Background(), "ana")
			},
		},
		{
			name:   "Get",
			key:    "sellers:list:first",
			method: "Get",
			call: func(c *CachedRepository[*testSeller]) (any, error) {
				return c.Get(context.Background())
			},
		},
		{
			name:   "List",
			key:    "sellers:list:all",
			method: "List",
			call: func(c *CachedRepository[*testSeller]) (any, error) {
				records, _, err := c.List(context.Background())
				return records, err
			},
		},
		{
			name:   "Count",
			key:    "sellers:list:count",
			method: "Count",
			call: func(c *CachedRepository[*testSeller]) (any, error) {
				return c.Count(context.Background())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &mockRepository[*testSeller]{
				getResult:     seller,
				getByIDResult: seller,
				identResult:   seller,
				listRecords:   []*testSeller{seller},
				listTotal:     1,
				countResult:   1,
			}
			cached, store := newTestRepo(t, base)

			first, err := tt.call(cached)
			if err != nil {
				t.Fatalf("first call failed: %v", err)
			}
			if !store.Has(tt.key) {
				t.Fatalf("expected key %s to be cached, have %v", tt.key, store.Keys())
			}

			second, err := tt.call(cached)
			if err != nil {
				t.Fatalf("second call failed: %v", err)
			}

			if !reflect.DeepEqual(first, second) {
				t.Error("results from cache hit should match results from cache miss")
			}
			calls := base.getCalls()
			if len(calls) != 1 || calls[0] != tt.method {
				t.Errorf("expected a single %s call, got %v", tt.method, calls)
			}
		})
	}
}

func TestCachedRead_ErrorNotCached(t *testing.T) {
	base := &mockRepository[*testSeller]{getByIDError: errors.New("not found")}
	cached, store := newTestRepo(t, base)

	for i := 0; i < 2; i++ {
		if _, err := cached.GetByID(context.Background(), "missing"); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	if store.Has("sellers:id:missing") {
		t.Error("expected failed read not to be cached")
	}
	if calls := base.getCalls(); len(calls) != 2 {
		t.Errorf("expected base to be called twice, got %v", calls)
	}
}

func TestCachedRead_CriteriaWithoutQualifierBypasses(t *testing.T) {
	base := &mockRepository[*testSeller]{listRecords: []*testSeller{{Name: "ana"}}, listTotal: 1}
	cached, store := newTestRepo(t, base)

	active := func(q *bun.SelectQuery) *bun.SelectQuery { return q }

	cached.List(context.Background(), active)
	cached.List(context.Background(), active)

	if calls := base.getCalls(); len(calls) != 2 {
		t.Errorf("expected both reads to reach the base repository, got %v", calls)
	}
	if size := store.Stats().Size; size != 0 {
		t.Errorf("expected nothing cached, got %v", store.Keys())
	}
}

func TestCachedRead_CriteriaWithQualifier(t *testing.T) {
	base := &mockRepository[*testSeller]{listRecords: []*testSeller{{Name: "ana"}}, listTotal: 1}
	cached, store := newTestRepo(t, base)

	ctx := WithQualifier(context.Background(), "active", 2)
	active := func(q *bun.SelectQuery) *bun.SelectQuery { return q }

	cached.List(ctx, active)
	cached.List(ctx, active)

	if calls := base.getCalls(); len(calls) != 1 {
		t.Errorf("expected a single base call, got %v", calls)
	}
	if !store.Has("sellers:list:active:2") {
		t.Errorf("expected qualified key, have %v", store.Keys())
	}
}

func TestTxReadsBypassCache(t *testing.T) {
	base := &mockRepository[*testSeller]{getByIDResult: &testSeller{ID: sellerID}}
	cached, store := newTestRepo(t, base)

	cached.GetByIDTx(context.Background(), nil, sellerID.String())
	cached.GetByIDTx(context.Background(), nil, sellerID.String())

	if calls := base.getCalls(); len(calls) != 2 {
		t.Errorf("expected both reads to reach the base repository, got %v", calls)
	}
	if size := store.Stats().Size; size != 0 {
		t.Errorf("expected nothing cached, got %v", store.Keys())
	}
}

type writeScenario struct {
	Name      string   `json:"name"`
	Operation string   `json:"operation"`
	Related   []string `json:"related"`
	Removed   []string `json:"removed"`
	Kept      []string `json:"kept"`
}

type writeFixtures struct {
	Seed      []string        `json:"seed"`
	Scenarios []writeScenario `json:"scenarios"`
}

func TestWriteInvalidation_WithFixtures(t *testing.T) {
	var fixtures writeFixtures
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("write_invalidation.json"), &fixtures)

	record := &testSeller{ID: sellerID, Name: "ana"}

	for _, sc := range fixtures.Scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			base := &mockRepository[*testSeller]{writeResult: record}
			cached, store := newTestRepo(t, base)

			for _, key := range fixtures.Seed {
				store.Set(key, "seed")
			}

			ctx := WithRelatedEntities(context.Background(), sc.Related...)

			var err error
			switch sc.Operation {
			case "Create":
				_, err = cached.Create(ctx, record)
			case "Update":
				_, err = cached.Update(ctx, record)
			case "Upsert":
				_, err = cached.Upsert(ctx, record)
			case "Delete":
				err = cached.Delete(ctx, record)
			case "DeleteWhere":
				err = cached.DeleteWhere(ctx)
			default:
				t.Fatalf("unknown operation %s", sc.Operation)
			}
			if err != nil {
				t.Fatalf("%s failed: %v", sc.Operation, err)
			}

			for _, key := range sc.Removed {
				if store.Has(key) {
					t.Errorf("expected %s to be invalidated", key)
				}
			}
			for _, key := range sc.Kept {
				if !store.Has(key) {
					t.Errorf("expected %s to survive", key)
				}
			}
		})
	}
}

func TestWriteError_SkipsInvalidation(t *testing.T) {
	base := &mockRepository[*testSeller]{writeError: errors.New("unique violation")}
	cached, store := newTestRepo(t, base)

	store.Set("sellers:list:all", "seed")

	if _, err := cached.Create(context.Background(), &testSeller{Name: "ana"}); err == nil {
		t.Fatal("expected write error to propagate")
	}
	if !store.Has("sellers:list:all") {
		t.Error("expected cache to be untouched after a failed write")
	}
}

func TestReadAfterWrite_Refetches(t *testing.T) {
	before := &testSeller{ID: sellerID, Name: "ana"}
	after := &testSeller{ID: sellerID, Name: "ana maria"}

	base := &mockRepository[*testSeller]{getByIDResult: before, writeResult: after}
	cached, _ := newTestRepo(t, base)

	got, _ := cached.GetByID(context.Background(), sellerID.String())
	if got.Name != "ana" {
		t.Fatalf("expected ana, got %s", got.Name)
	}

	cached.Update(context.Background(), after)
	base.getByIDResult = after
	base.clearCalls()

	got, _ = cached.GetByID(context.Background(), sellerID.String())
	if got.Name != "ana maria" {
		t.Errorf("expected refreshed record, got %s", got.Name)
	}
	if calls := base.getCalls(); len(calls) != 1 || calls[0] != "GetByID" {
		t.Errorf("expected a refetch after update, got %v", calls)
	}
}

func TestWarmMasters(t *testing.T) {
	other := uuid.MustParse("0b9f5c1e-1111-4a2b-9c3d-4e5f6a7b8c9d")
	records := []*testSeller{{ID: sellerID, Name: "ana"}, {ID: other, Name: "luis"}}

	base := &mockRepository[*testSeller]{listRecords: records, listTotal: 2}
	cached, store := newTestRepo(t, base)

	count, err := cached.WarmMasters(context.Background(), 0)
	if err != nil {
		t.Fatalf("WarmMasters() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 entries, got %d", count)
	}

	for _, key := range []string{"masters:sellers:all", "sellers:id:" + sellerID.String(), "sellers:id:" + other.String()} {
		if !store.Has(key) {
			t.Errorf("expected %s to be warmed", key)
		}
	}

	base.clearCalls()
	got, err := cached.GetByID(context.Background(), other.String())
	if err != nil || got.Name != "luis" {
		t.Errorf("expected warmed record, got %v (%v)", got, err)
	}
	if calls := base.getCalls(); len(calls) != 0 {
		t.Errorf("expected warmed read to skip the base repository, got %v", calls)
	}
}

func TestWarmMasters_SourceError(t *testing.T) {
	dbErr := errors.New("connection refused")
	base := &mockRepository[*testSeller]{listError: dbErr}
	cached, store := newTestRepo(t, base)

	if _, err := cached.WarmMasters(context.Background(), 0); !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if size := store.Stats().Size; size != 0 {
		t.Errorf("expected empty store, got %v", store.Keys())
	}
}

func TestExtractID(t *testing.T) {
	if id, err := extractID(&testSeller{ID: sellerID}); err != nil || id != sellerID.String() {
		t.Errorf("expected %s, got %s (%v)", sellerID, id, err)
	}
	if _, err := extractID((*testSeller)(nil)); err == nil {
		t.Error("expected error for nil record")
	}
	if _, err := extractID("plain"); err == nil {
		t.Error("expected error for non struct record")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRelatedEntities(context.Background(), "Order", "")
	ctx = WithRelatedEntities(ctx, "Order", "Reference")

	got := relatedEntitiesFromContext(ctx)
	if !reflect.DeepEqual(got, []string{"Order", "Reference"}) {
		t.Errorf("expected deduped related entities, got %v", got)
	}

	if parts := qualifierFromContext(WithQualifier(context.Background())); parts != nil {
		t.Errorf("expected no qualifier, got %v", parts)
	}
}
