package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/phishscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %s", db.Path())
		}
		if runtime.GOOS != "windows" {
			info, err := os.Stat(dbDir)
			if err != nil {
				t.Fatal(err)
			}
			if perm := info.Mode().Perm(); perm&0o077 != 0 {
				t.Errorf("directory mode = %o, want no group or other access", perm)
			}
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("unexpected error message: %v", err)
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created")
		}
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := db1.Put(context.Background(), "k", "v"); err != nil {
			t.Fatal(err)
		}
		_ = db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db2.Close()

		got, err := db2.Get(context.Background(), "k")
		if err != nil || got != "v" {
			t.Errorf("Get() = %q, %v; want v, nil", got, err)
		}
	})
}

func TestKV(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	if _, err := db.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := db.Put(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.Put(ctx, "a", "2"); err != nil {
		t.Fatal(err)
	}
	if got, _ := db.Get(ctx, "a"); got != "2" {
		t.Errorf("Get(a) = %q, want 2", got)
	}

	if err := db.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
	if err := db.Delete(ctx, "a"); err != nil {
		t.Errorf("Delete(absent) error = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	t.Run("absent key", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := setupTestDB(t)

		err := db.Update(ctx, "counter", func(current string, found bool) (string, error) {
			if found {
				t.Errorf("found = true for absent key (current %q)", current)
			}
			return "1", nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if got, _ := db.Get(ctx, "counter"); got != "1" {
			t.Errorf("Get() = %q, want 1", got)
		}
	})

	t.Run("callback error writes nothing", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := setupTestDB(t)
		if err := db.Put(ctx, "k", "old"); err != nil {
			t.Fatal(err)
		}

		boom := errors.New("boom")
		err := db.Update(ctx, "k", func(string, bool) (string, error) {
			return "new", boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("Update() error = %v, want boom", err)
		}
		if got, _ := db.Get(ctx, "k"); got != "old" {
			t.Errorf("Get() = %q, want old", got)
		}
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		db := setupTestDB(t)

		const workers = 20
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := db.Update(ctx, "counter", func(current string, found bool) (string, error) {
					n := 0
					if found {
						n, _ = strconv.Atoi(current)
					}
					return strconv.Itoa(n + 1), nil
				})
				if err != nil {
					t.Errorf("Update() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if got, _ := db.Get(ctx, "counter"); got != strconv.Itoa(workers) {
			t.Errorf("counter = %s, want %d", got, workers)
		}
	})
}

func TestAnalyses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	if a, err := db.LatestAnalysis(ctx, "http://none.test"); err != nil || a != nil {
		t.Errorf("LatestAnalysis(none) = %v, %v; want nil, nil", a, err)
	}

	first := model.NewAnalysis("http://a.test")
	first.Score = 0.2
	first.Tier = "Likely safe"
	second := model.NewAnalysis("http://a.test")
	second.AnalyzedAt = first.AnalyzedAt.Add(time.Second)
	second.Score = 0.8
	second.Tier = "Unsafe"
	other := model.NewAnalysis("http://b.test")
	other.Score = 0.4

	for _, a := range []*model.Analysis{first, second, other} {
		if err := db.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("SaveAnalysis() error = %v", err)
		}
	}

	latest, err := db.LatestAnalysis(ctx, "http://a.test")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Score != 0.8 {
		t.Errorf("LatestAnalysis() = %+v, want score 0.8", latest)
	}

	all, err := db.History(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("History(all) len = %d, want 3", len(all))
	}
	if all[0].URL != "http://b.test" {
		t.Errorf("History()[0].URL = %s, want newest first", all[0].URL)
	}
	if all[1].Tier != "Unsafe" {
		t.Errorf("History()[1].Tier = %q, want Unsafe", all[1].Tier)
	}
	if all[1].Timestamp.IsZero() {
		t.Error("History() timestamp was not parsed")
	}

	limited, err := db.History(ctx, "http://a.test", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Score != 0.8 {
		t.Errorf("History(a, 1) = %+v", limited)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		zero  bool
	}{
		{"2024-01-02 03:04:05", false},
		{"2024-01-02T03:04:05Z", false},
		{"2024-01-02T03:04:05.123456789Z", false},
		{"not a time", true},
	}
	for _, tt := range tests {
		if got := parseTimestamp(tt.input); got.IsZero() != tt.zero {
			t.Errorf("parseTimestamp(%q) = %v, zero want %v", tt.input, got, tt.zero)
		}
	}
}
