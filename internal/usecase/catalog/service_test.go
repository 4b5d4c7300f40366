package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/suwonbread/bready/internal/domain"
)

type mockStore struct {
	bakeries  map[string]domain.Bakery
	createErr error
	updateErr error
	deleteErr error
}

func newMockStore() *mockStore {
	return &mockStore{bakeries: make(map[string]domain.Bakery)}
}

func (m *mockStore) Create(_ context.Context, b domain.Bakery) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.bakeries[b.ID] = b
	return nil
}

func (m *mockStore) GetByID(_ context.Context, id string) (domain.Bakery, error) {
	b, ok := m.bakeries[id]
	if !ok {
		return domain.Bakery{}, domain.ErrBakeryNotFound
	}
	return b, nil
}

func (m *mockStore) List(_ context.Context, _ domain.BakeryFilter) ([]domain.Bakery, error) {
	var out []domain.Bakery
	for _, b := range m.bakeries {
		out = append(out, b)
	}
	return out, nil
}

func (m *mockStore) TopRated(_ context.Context, _ int) ([]domain.Bakery, error) {
	return m.List(context.Background(), domain.BakeryFilter{})
}

func (m *mockStore) SearchByName(_ context.Context, _ string, _ int) ([]domain.Bakery, error) {
	return m.List(context.Background(), domain.BakeryFilter{})
}

func (m *mockStore) Update(_ context.Context, b domain.Bakery) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.bakeries[b.ID]; !ok {
		return domain.ErrBakeryNotFound
	}
	m.bakeries[b.ID] = b
	return nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.bakeries[id]; !ok {
		return domain.ErrBakeryNotFound
	}
	delete(m.bakeries, id)
	return nil
}

func (m *mockStore) ListTags(_ context.Context) ([]domain.BreadTag, error) {
	return []domain.BreadTag{{ID: 1, Name: "소금빵"}}, nil
}

func (m *mockStore) GetByTag(_ context.Context, _ string, _ int) ([]domain.Bakery, error) {
	return m.List(context.Background(), domain.BakeryFilter{})
}

type mockIndexer struct {
	indexed  []string
	removed  []string
	indexErr error
}

func (m *mockIndexer) IndexBakery(_ context.Context, b domain.Bakery) error {
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, b.ID)
	return nil
}

func (m *mockIndexer) RemoveBakery(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return nil
}

func valid() domain.Bakery {
	return domain.Bakery{Name: "행궁베이커리", Address: "수원시 팔달구", Rating: 4.5}
}

func TestCreate_AssignsIDAndIndexes(t *testing.T) {
	store := newMockStore()
	idx := &mockIndexer{}
	svc := New(store, idx)

	created, err := svc.Create(context.Background(), valid())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("created bakery has no id")
	}
	if len(idx.indexed) != 1 || idx.indexed[0] != created.ID {
		t.Errorf("indexed = %v, want the created id", idx.indexed)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := New(newMockStore(), &mockIndexer{})
	ctx := context.Background()

	cases := []struct {
		name string
		mod  func(*domain.Bakery)
	}{
		{"empty name", func(b *domain.Bakery) { b.Name = " " }},
		{"empty address", func(b *domain.Bakery) { b.Address = "" }},
		{"rating too high", func(b *domain.Bakery) { b.Rating = 5.1 }},
		{"negative rating", func(b *domain.Bakery) { b.Rating = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := valid()
			tc.mod(&b)
			if _, err := svc.Create(ctx, b); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreate_IndexFailureDoesNotFail(t *testing.T) {
	store := newMockStore()
	idx := &mockIndexer{indexErr: errors.New("index down")}
	svc := New(store, idx)

	created, err := svc.Create(context.Background(), valid())
	if err != nil {
		t.Fatalf("Create() error = %v, index failure must not surface", err)
	}
	if _, ok := store.bakeries[created.ID]; !ok {
		t.Error("row not committed")
	}
}

func TestUpdate_RequiresID(t *testing.T) {
	svc := New(newMockStore(), &mockIndexer{})

	_, err := svc.Update(context.Background(), valid())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := New(newMockStore(), &mockIndexer{})

	b := valid()
	b.ID = "ghost"
	_, err := svc.Update(context.Background(), b)
	if !errors.Is(err, domain.ErrBakeryNotFound) {
		t.Fatalf("error = %v, want ErrBakeryNotFound", err)
	}
}

func TestUpdate_ReindexesAfterCommit(t *testing.T) {
	store := newMockStore()
	idx := &mockIndexer{}
	svc := New(store, idx)

	created, err := svc.Create(context.Background(), valid())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created.Name = "새이름"
	updated, err := svc.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "새이름" {
		t.Errorf("Name = %q, want updated", updated.Name)
	}
	if len(idx.indexed) != 2 {
		t.Errorf("indexed %d times, want create + update", len(idx.indexed))
	}
}

func TestDelete_RemovesFromIndex(t *testing.T) {
	store := newMockStore()
	idx := &mockIndexer{}
	svc := New(store, idx)

	created, err := svc.Create(context.Background(), valid())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(idx.removed) != 1 || idx.removed[0] != created.ID {
		t.Errorf("removed = %v, want the deleted id", idx.removed)
	}
}

func TestSearchByName_EmptyQuery(t *testing.T) {
	svc := New(newMockStore(), &mockIndexer{})

	_, err := svc.SearchByName(context.Background(), "  ", 10)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestByTag_EmptyTag(t *testing.T) {
	svc := New(newMockStore(), &mockIndexer{})

	_, err := svc.ByTag(context.Background(), "", 10)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
