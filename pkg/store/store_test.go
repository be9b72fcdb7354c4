package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/toucan4life/gamemap/pkg/viewer"
)

func testSnapshot() viewer.Snapshot {
	return viewer.Snapshot{
		Root:        13,
		State:       "settled",
		Steps:       400,
		ScaleFactor: 100,
		Nodes: []viewer.SnapshotNode{
			{ID: 13, Label: "Catan", Pinned: true},
			{ID: 822, Label: "Carcassonne", X: 12.5, Y: -3, Lng: 0.125, Lat: -0.03},
		},
	}
}

// exercise runs the shared contract against any backend.
func exercise(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	a, err := st.Save(ctx, Record{Cluster: 42, Depth: 2, Snapshot: testSnapshot()})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.ID == "" || a.CreatedAt.IsZero() {
		t.Fatalf("Save did not stamp record: %+v", a)
	}
	b, err := st.Save(ctx, Record{Cluster: 42, Snapshot: testSnapshot()})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := st.Save(ctx, Record{Cluster: 7, Snapshot: testSnapshot()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.ID == b.ID {
		t.Fatal("ids are not unique")
	}

	got, err := st.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Cluster != 42 || got.Depth != 2 || len(got.Snapshot.Nodes) != 2 {
		t.Errorf("Get = %+v", got)
	}
	if n, ok := got.Snapshot.Position(822); !ok || n.Lng != 0.125 {
		t.Errorf("Position(822) = %+v, %v", n, ok)
	}

	list, err := st.List(ctx, 42, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List(42) returned %d records, want 2", len(list))
	}
	if list, _ := st.List(ctx, 42, 1); len(list) != 1 {
		t.Errorf("List(42, 1) returned %d records, want 1", len(list))
	}

	if err := st.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Get(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete: err = %v, want ErrNotFound", err)
	}
	if err := st.Delete(ctx, a.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestMemoryStoreCopiesSnapshots(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	rec, _ := st.Save(ctx, Record{Cluster: 1, Snapshot: testSnapshot()})

	rec.Snapshot.Nodes[0].Label = "changed"
	got, _ := st.Get(ctx, rec.ID)
	if got.Snapshot.Nodes[0].Label != "Catan" {
		t.Errorf("stored snapshot was mutated through returned record")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestGetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"default", Options{}, nil},
		{"memory", Options{Backend: BackendMemory}, nil},
		{"unknown", Options{Backend: "sqlite"}, ErrUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Open(context.Background(), tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil {
				defer st.Close(context.Background())
			}
		})
	}
}

func TestOpenMongoRequiresSettings(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: BackendMongo})
	if err == nil {
		t.Fatal("expected error for empty mongo settings")
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("GAMEMAP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GAMEMAP_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	st, err := NewMongoStore(ctx, uri, "gamemap_test", "snapshots_"+t.Name())
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	t.Cleanup(func() {
		_ = st.coll.Drop(ctx)
		_ = st.Close(ctx)
	})
	exercise(t, st)
}
