package migration

import (
	"io/fs"
	"sort"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}

	versions := make([]string, 0, len(ups))
	for v := range ups {
		if !downs[v] {
			t.Fatalf("migration %s has no down file", v)
		}
		versions = append(versions, v)
	}
	sort.Strings(versions)
	if len(versions) != 5 || !strings.HasPrefix(versions[0], "000001_") {
		t.Fatalf("unexpected migration set: %v", versions)
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	if err := RunMigrations(nil, nil); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
