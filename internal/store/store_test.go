package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pl018/project-manager-cli/internal/tags"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func mustRegister(t *testing.T, s *Store, id, name, root string) *Project {
	t.Helper()
	p, err := s.UpsertProject(context.Background(), id, Update{
		Name:     Str(name),
		RootPath: Str(root),
	})
	if err != nil {
		t.Fatalf("UpsertProject(%s) failed: %v", id, err)
	}
	return p
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := testStore(t)

	// A fresh store lists nothing and already carries the starter tags.
	projects, err := s.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("expected empty store, got %d projects", len(projects))
	}

	catalog, err := s.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(catalog) != len(tags.Starter()) {
		t.Errorf("expected %d starter tags, got %d", len(tags.Starter()), len(catalog))
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	want := mustRegister(t, s, "uuid-1", "alpha", "/home/u/alpha")

	// Re-running migration and re-opening must preserve every row unchanged.
	for i := 0; i < 3; i++ {
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate run %d failed: %v", i, err)
		}
	}
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := s2.Get(ctx, "uuid-1")
	if err != nil {
		t.Fatalf("Get after migrate failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("project changed across migrations (-want +got):\n%s", diff)
	}
}

func TestMigrate_AddsMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")

	// Simulate a database created by an older release that predates the
	// ai_* and color columns.
	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	_, err = conn.Exec(`
		CREATE TABLE projects (
			uuid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			root_path TEXT NOT NULL,
			tags TEXT,
			favorite INTEGER NOT NULL DEFAULT 0,
			open_count INTEGER NOT NULL DEFAULT 0,
			date_added TEXT NOT NULL DEFAULT '',
			last_updated TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1
		);
		INSERT INTO projects (uuid, name, root_path, tags)
		VALUES ('old-1', 'legacy', '/srv/legacy', '["go"]');
	`)
	if err != nil {
		t.Fatalf("seed old schema: %v", err)
	}
	conn.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on old schema failed: %v", err)
	}

	p, err := s.Get(context.Background(), "old-1")
	if err != nil {
		t.Fatalf("Get legacy row failed: %v", err)
	}
	if p.Name != "legacy" || p.RootPath != "/srv/legacy" {
		t.Errorf("legacy row mutated: %+v", p)
	}
	if diff := cmp.Diff([]string{"go"}, p.Tags); diff != "" {
		t.Errorf("legacy tags mutated (-want +got):\n%s", diff)
	}
	if p.Color != "blue" {
		t.Errorf("added color column default = %q, want blue", p.Color)
	}
}

func TestUpsertProject_InsertDefaults(t *testing.T) {
	s := testStore(t)
	p := mustRegister(t, s, "uuid-1", "alpha", "/home/u/alpha")

	if p.Favorite {
		t.Error("new project should not be favorite")
	}
	if p.OpenCount != 0 {
		t.Errorf("new project open_count = %d, want 0", p.OpenCount)
	}
	if !p.Enabled || p.State() != LifecycleActive {
		t.Errorf("new project state = %s, want active", p.State())
	}
	if p.DateAdded.IsZero() || p.LastUpdated.IsZero() {
		t.Error("timestamps not stamped")
	}
	if p.Color == "" {
		t.Error("color default missing")
	}
}

func TestUpsertProject_RequiresNameAndPath(t *testing.T) {
	s := testStore(t)
	_, err := s.UpsertProject(context.Background(), "uuid-1", Update{Name: Str("alpha")})
	if err == nil {
		t.Fatal("expected error inserting without root path")
	}
}

func TestUpsertProject_PartialUpdateUnknownUUID(t *testing.T) {
	s := testStore(t)

	// A partial update against a UUID that was never registered reports the
	// missing row, not an insert validation failure.
	_, err := s.UpsertProject(context.Background(), "uuid-stale", Update{Notes: Str("n")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertProject_NilTagsStaysEmptySlice(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Inserting without tags must not store a JSON null that reads back as
	// a nil slice.
	mustRegister(t, s, "uuid-1", "alpha", "/home/u/alpha")

	for _, get := range []func() (*Project, error){
		func() (*Project, error) { return s.Get(ctx, "uuid-1") },
		func() (*Project, error) {
			all, err := s.List(ctx, Filter{})
			if err != nil || len(all) != 1 {
				t.Fatalf("List returned %d projects, err=%v", len(all), err)
			}
			return all[0], err
		},
	} {
		p, err := get()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if p.Tags == nil {
			t.Error("Tags is nil, want empty slice")
		}
	}
}

func TestUpsertProject_PartialUpdatePreservesHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := mustRegister(t, s, "uuid-1", "alpha", "/home/u/alpha")
	if err := s.RecordOpen(ctx, "uuid-1"); err != nil {
		t.Fatalf("RecordOpen failed: %v", err)
	}
	if _, err := s.ToggleFavorite(ctx, "uuid-1"); err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}

	// A rename must not touch history fields.
	updated, err := s.UpsertProject(ctx, "uuid-1", Update{Name: Str("alpha-renamed")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "alpha-renamed" {
		t.Errorf("name = %q, want alpha-renamed", updated.Name)
	}
	if updated.OpenCount != 1 {
		t.Errorf("open_count = %d, want 1 after update", updated.OpenCount)
	}
	if !updated.Favorite {
		t.Error("favorite lost across update")
	}
	if !updated.DateAdded.Equal(first.DateAdded) {
		t.Errorf("date_added changed: %v != %v", updated.DateAdded, first.DateAdded)
	}
	if !updated.LastUpdated.After(first.LastUpdated) {
		t.Error("last_updated not advanced")
	}
}

func TestUpsertProject_NormalizesTags(t *testing.T) {
	s := testStore(t)
	p, err := s.UpsertProject(context.Background(), "uuid-1", Update{
		Name:     Str("alpha"),
		RootPath: Str("/home/u/alpha"),
		Tags:     TagList([]string{"Machine Learning", "C++", "machinelearning", "!!!"}),
	})
	if err != nil {
		t.Fatalf("UpsertProject failed: %v", err)
	}
	if diff := cmp.Diff([]string{"machinelearning", "c"}, p.Tags); diff != "" {
		t.Errorf("tags not normalized (-want +got):\n%s", diff)
	}
}

func TestUpsertProject_DuplicatePath(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustRegister(t, s, "uuid-1", "alpha", "/home/u/shared")

	_, err := s.UpsertProject(ctx, "uuid-2", Update{
		Name:     Str("beta"),
		RootPath: Str("/home/u/shared"),
	})
	var dup *DuplicatePathError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicatePathError, got %v", err)
	}
	if dup.ExistingUUID != "uuid-1" {
		t.Errorf("ExistingUUID = %q, want uuid-1", dup.ExistingUUID)
	}
	if dup.RootPath != "/home/u/shared" {
		t.Errorf("RootPath = %q", dup.RootPath)
	}

	// The rejected row must not exist.
	if _, err := s.Get(ctx, "uuid-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rejected project was persisted: %v", err)
	}
}

func TestUpsertProject_ReRegisterAfterArchive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustRegister(t, s, "uuid-1", "alpha", "/home/u/shared")

	if err := s.Archive(ctx, "uuid-1"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	// The archived row no longer blocks the path.
	p, err := s.UpsertProject(ctx, "uuid-2", Update{
		Name:     Str("beta"),
		RootPath: Str("/home/u/shared"),
	})
	if err != nil {
		t.Fatalf("re-register after archive failed: %v", err)
	}
	if p.UUID != "uuid-2" {
		t.Errorf("unexpected UUID %q", p.UUID)
	}
}

func TestLifecycle_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("archive then restore", func(t *testing.T) {
		s := testStore(t)
		mustRegister(t, s, "uuid-1", "alpha", "/a")
		if err := s.Archive(ctx, "uuid-1"); err != nil {
			t.Fatalf("Archive failed: %v", err)
		}
		if err := s.Restore(ctx, "uuid-1"); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		p, err := s.Get(ctx, "uuid-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if p.State() != LifecycleActive {
			t.Errorf("state = %s, want active", p.State())
		}
	})

	t.Run("archive twice rejected", func(t *testing.T) {
		s := testStore(t)
		mustRegister(t, s, "uuid-1", "alpha", "/a")
		if err := s.Archive(ctx, "uuid-1"); err != nil {
			t.Fatalf("Archive failed: %v", err)
		}
		if err := s.Archive(ctx, "uuid-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("second Archive error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("restore active rejected", func(t *testing.T) {
		s := testStore(t)
		mustRegister(t, s, "uuid-1", "alpha", "/a")
		if err := s.Restore(ctx, "uuid-1"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Restore on active error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("restore blocked by new occupant", func(t *testing.T) {
		s := testStore(t)
		mustRegister(t, s, "uuid-1", "alpha", "/shared")
		if err := s.Archive(ctx, "uuid-1"); err != nil {
			t.Fatalf("Archive failed: %v", err)
		}
		mustRegister(t, s, "uuid-2", "beta", "/shared")

		var dup *DuplicatePathError
		if err := s.Restore(ctx, "uuid-1"); !errors.As(err, &dup) {
			t.Fatalf("Restore error = %v, want DuplicatePathError", err)
		}
		if dup.ExistingUUID != "uuid-2" {
			t.Errorf("ExistingUUID = %q, want uuid-2", dup.ExistingUUID)
		}
	})

	t.Run("purge from archived", func(t *testing.T) {
		s := testStore(t)
		mustRegister(t, s, "uuid-1", "alpha", "/a")
		if err := s.Archive(ctx, "uuid-1"); err != nil {
			t.Fatalf("Archive failed: %v", err)
		}
		if err := s.Purge(ctx, "uuid-1"); err != nil {
			t.Fatalf("Purge failed: %v", err)
		}
		if _, err := s.Get(ctx, "uuid-1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("purged row still readable: %v", err)
		}
	})
}

func TestPurge_CascadesToolConfigs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustRegister(t, s, "uuid-1", "alpha", "/a")

	if err := s.SetToolConfig(ctx, "uuid-1", "vscode", `{"newWindow":true}`); err != nil {
		t.Fatalf("SetToolConfig failed: %v", err)
	}
	if err := s.Purge(ctx, "uuid-1"); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, err := s.GetToolConfig(ctx, "uuid-1", "vscode"); !errors.Is(err, ErrNotFound) {
		t.Errorf("tool config survived purge: %v", err)
	}
}

func TestRecordOpen(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustRegister(t, s, "uuid-1", "alpha", "/a")

	for i := 0; i < 3; i++ {
		if err := s.RecordOpen(ctx, "uuid-1"); err != nil {
			t.Fatalf("RecordOpen failed: %v", err)
		}
	}
	p, err := s.Get(ctx, "uuid-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.OpenCount != 3 {
		t.Errorf("open_count = %d, want 3", p.OpenCount)
	}
	if p.LastOpened == nil {
		t.Error("last_opened not stamped")
	}

	if err := s.RecordOpen(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RecordOpen(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetByPath(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustRegister(t, s, "uuid-1", "alpha", "/home/u/alpha")

	p, err := s.GetByPath(ctx, "/home/u/alpha")
	if err != nil {
		t.Fatalf("GetByPath failed: %v", err)
	}
	if p.UUID != "uuid-1" {
		t.Errorf("UUID = %q, want uuid-1", p.UUID)
	}

	if err := s.Archive(ctx, "uuid-1"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if _, err := s.GetByPath(ctx, "/home/u/alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("archived row visible via GetByPath: %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seed := func(id, name, root string, tagNames []string) {
		if _, err := s.UpsertProject(ctx, id, Update{
			Name:     Str(name),
			RootPath: Str(root),
			Tags:     TagList(tagNames),
		}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	seed("u1", "web-app", "/p/web", []string{"web", "frontend"})
	seed("u2", "api-server", "/p/api", []string{"web", "backend"})
	seed("u3", "scratch", "/p/scratch", nil)
	if _, err := s.ToggleFavorite(ctx, "u2"); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	if err := s.Archive(ctx, "u3"); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	uuids := func(ps []*Project) []string {
		if len(ps) == 0 {
			return nil
		}
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.UUID
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"default excludes archived, favorites first", Filter{}, []string{"u2", "u1"}},
		{"include archived", Filter{IncludeArchived: true}, []string{"u2", "u3", "u1"}},
		{"favorites only", Filter{FavoritesOnly: true}, []string{"u2"}},
		{"query matches name", Filter{Query: "WEB"}, []string{"u2", "u1"}},
		{"query matches path", Filter{Query: "/p/api"}, []string{"u2"}},
		{"tag any", Filter{Tags: []string{"frontend", "backend"}}, []string{"u2", "u1"}},
		{"tag all", Filter{Tags: []string{"web", "backend"}, Mode: TagModeAll}, []string{"u2"}},
		{"tag all no match", Filter{Tags: []string{"frontend", "backend"}, Mode: TagModeAll}, nil},
		{"tag input normalized", Filter{Tags: []string{"Front-End"}}, []string{"u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, uuids(got)); diff != "" {
				t.Errorf("List mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnsureTags(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	got, err := s.EnsureTags(ctx, []string{"Rust", "rust", "Embedded Systems", ""})
	if err != nil {
		t.Fatalf("EnsureTags failed: %v", err)
	}
	if diff := cmp.Diff([]string{"rust", "embeddedsystems"}, got); diff != "" {
		t.Errorf("normalized names mismatch (-want +got):\n%s", diff)
	}

	catalog, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	byName := make(map[string]tags.Tag, len(catalog))
	for _, tag := range catalog {
		byName[tag.Name] = tag
	}
	for _, name := range got {
		tag, ok := byName[name]
		if !ok {
			t.Errorf("tag %q not in catalog", name)
			continue
		}
		if tag.Color != tags.ColorFor(name) {
			t.Errorf("tag %q color = %q, want deterministic %q", name, tag.Color, tags.ColorFor(name))
		}
		if tag.Icon != tags.DefaultIcon {
			t.Errorf("tag %q icon = %q", name, tag.Icon)
		}
	}

	// Ensuring again must not disturb the catalog.
	if _, err := s.EnsureTags(ctx, []string{"rust"}); err != nil {
		t.Fatalf("second EnsureTags failed: %v", err)
	}
	again, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	if len(again) != len(catalog) {
		t.Errorf("catalog grew on repeat ensure: %d -> %d", len(catalog), len(again))
	}
}

func TestUpsertTag_OverridesDefaults(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.UpsertTag(ctx, tags.Tag{Name: "Infra!", Color: "#123456", Icon: "🚀"}); err != nil {
		t.Fatalf("UpsertTag failed: %v", err)
	}
	catalog, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	for _, tag := range catalog {
		if tag.Name == "infra" {
			if tag.Color != "#123456" || tag.Icon != "🚀" {
				t.Errorf("custom attributes lost: %+v", tag)
			}
			return
		}
	}
	t.Error("tag infra not found in catalog")
}

func TestStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	seed := func(id, name string, tagNames []string) {
		if _, err := s.UpsertProject(ctx, id, Update{
			Name:     Str(name),
			RootPath: Str("/p/" + id),
			Tags:     TagList(tagNames),
		}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	seed("u1", "one", []string{"go", "cli"})
	seed("u2", "two", []string{"go"})
	seed("u3", "three", []string{"web"})
	if _, err := s.ToggleFavorite(ctx, "u1"); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := s.RecordOpen(ctx, "u2"); err != nil {
			t.Fatalf("RecordOpen: %v", err)
		}
	}
	if err := s.Archive(ctx, "u3"); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalProjects != 2 {
		t.Errorf("TotalProjects = %d, want 2 (archived excluded)", stats.TotalProjects)
	}
	if stats.Favorites != 1 {
		t.Errorf("Favorites = %d, want 1", stats.Favorites)
	}
	wantTags := []TagCount{{Name: "go", Count: 2}, {Name: "cli", Count: 1}}
	if diff := cmp.Diff(wantTags, stats.TopTags); diff != "" {
		t.Errorf("TopTags mismatch (-want +got):\n%s", diff)
	}
	wantOpened := []OpenedProject{{UUID: "u2", Name: "two", OpenCount: 2}}
	if diff := cmp.Diff(wantOpened, stats.MostOpened); diff != "" {
		t.Errorf("MostOpened mismatch (-want +got):\n%s", diff)
	}
}

func TestToolConfig_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	mustRegister(t, s, "uuid-1", "alpha", "/a")

	if err := s.SetToolConfig(ctx, "uuid-1", "vscode", `{"newWindow":true}`); err != nil {
		t.Fatalf("SetToolConfig failed: %v", err)
	}
	// Replacing is allowed.
	if err := s.SetToolConfig(ctx, "uuid-1", "vscode", `{"newWindow":false}`); err != nil {
		t.Fatalf("SetToolConfig replace failed: %v", err)
	}
	tc, err := s.GetToolConfig(ctx, "uuid-1", "vscode")
	if err != nil {
		t.Fatalf("GetToolConfig failed: %v", err)
	}
	if tc.Config != `{"newWindow":false}` {
		t.Errorf("config = %q", tc.Config)
	}

	if err := s.SetToolConfig(ctx, "missing", "vscode", "{}"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetToolConfig for missing project error = %v, want ErrNotFound", err)
	}

	all, err := s.ListToolConfigs(ctx, "uuid-1")
	if err != nil {
		t.Fatalf("ListToolConfigs failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListToolConfigs returned %d rows, want 1", len(all))
	}
}
