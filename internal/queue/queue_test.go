package queue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nao1215/phishscan/internal/collector"
	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/model"
)

// fakeUploader records uploads and can fail or run a hook mid-upload.
type fakeUploader struct {
	mu     sync.Mutex
	calls  int
	sent   [][]model.Report
	err    error
	during func()
}

func (f *fakeUploader) Upload(_ context.Context, _ string, reports []model.Report) (int, error) {
	f.mu.Lock()
	f.calls++
	f.sent = append(f.sent, reports)
	f.mu.Unlock()

	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return 0, f.err
	}
	return len(reports), nil
}

func setupQueue(t *testing.T, up Uploader) (*Queue, *database.DB) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, up), db
}

func newReport(t *testing.T, url string) model.Report {
	t.Helper()

	r, err := model.NewReport(url, 0.6, model.ReportExtra{})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func urls(reports []model.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.URL
	}
	return out
}

func TestAppendAndList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q, _ := setupQueue(t, &fakeUploader{})

	got, err := q.List(ctx)
	if err != nil || len(got) != 0 || got == nil {
		t.Fatalf("List() on fresh queue = %v, %v; want empty non-nil", got, err)
	}

	for _, u := range []string{"http://1.test", "http://2.test", "http://3.test"} {
		if err := q.Append(ctx, newReport(t, u)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err = q.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(urls(got)) != "[http://3.test http://2.test http://1.test]" {
		t.Errorf("List() = %v, want newest first", urls(got))
	}

	if err := q.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := q.List(ctx); len(got) != 0 {
		t.Errorf("List() after Clear = %v", urls(got))
	}
}

func TestConcurrentAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q, _ := setupQueue(t, &fakeUploader{})

	const n = 25
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.Append(ctx, newReport(t, fmt.Sprintf("http://%d.test", i))); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := q.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Errorf("List() len = %d, want %d", len(got), n)
	}
}

func TestCorruptStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("not an array", func(t *testing.T) {
		t.Parallel()

		q, db := setupQueue(t, &fakeUploader{})
		if err := db.Put(ctx, Key, "{broken"); err != nil {
			t.Fatal(err)
		}
		got, err := q.List(ctx)
		if err != nil || len(got) != 0 {
			t.Errorf("List() = %v, %v; want empty", got, err)
		}

		if err := q.Append(ctx, newReport(t, "http://a.test")); err != nil {
			t.Fatal(err)
		}
		if got, _ := q.List(ctx); len(got) != 1 {
			t.Errorf("List() after Append = %v", urls(got))
		}
	})

	t.Run("bad entries are skipped", func(t *testing.T) {
		t.Parallel()

		q, db := setupQueue(t, &fakeUploader{})
		stored := `[{"id":"a","ts":"2024-01-01T00:00:00Z","url":"http://ok.test","score":0.5,"extra":{}},` +
			`{"id":"b","ts":"yesterday","url":"http://bad.test"}, 7]`
		if err := db.Put(ctx, Key, stored); err != nil {
			t.Fatal(err)
		}
		got, err := q.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].URL != "http://ok.test" {
			t.Errorf("List() = %v, want only the valid report", urls(got))
		}
	})

	t.Run("null", func(t *testing.T) {
		t.Parallel()

		q, db := setupQueue(t, &fakeUploader{})
		if err := db.Put(ctx, Key, "null"); err != nil {
			t.Fatal(err)
		}
		if got, err := q.List(ctx); err != nil || len(got) != 0 {
			t.Errorf("List() = %v, %v; want empty", got, err)
		}
	})
}

func TestUploadAndPurge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("blank endpoint touches nothing", func(t *testing.T) {
		t.Parallel()

		up := &fakeUploader{}
		q, _ := setupQueue(t, up)
		if err := q.Append(ctx, newReport(t, "http://a.test")); err != nil {
			t.Fatal(err)
		}

		for _, endpoint := range []string{"", "   "} {
			if _, err := q.UploadAndPurge(ctx, endpoint); !errors.Is(err, ErrNoEndpoint) {
				t.Errorf("UploadAndPurge(%q) error = %v, want ErrNoEndpoint", endpoint, err)
			}
		}
		if up.calls != 0 {
			t.Errorf("uploader called %d times, want 0", up.calls)
		}
		if got, _ := q.List(ctx); len(got) != 1 {
			t.Errorf("queue changed: %v", urls(got))
		}
	})

	t.Run("empty queue makes no request", func(t *testing.T) {
		t.Parallel()

		up := &fakeUploader{}
		q, _ := setupQueue(t, up)

		n, err := q.UploadAndPurge(ctx, "http://collector.test/report")
		if err != nil || n != 0 {
			t.Errorf("UploadAndPurge() = %d, %v; want 0, nil", n, err)
		}
		if up.calls != 0 {
			t.Errorf("uploader called %d times, want 0", up.calls)
		}
	})

	t.Run("success purges the queue", func(t *testing.T) {
		t.Parallel()

		up := &fakeUploader{}
		q, _ := setupQueue(t, up)
		for _, u := range []string{"http://1.test", "http://2.test", "http://3.test"} {
			if err := q.Append(ctx, newReport(t, u)); err != nil {
				t.Fatal(err)
			}
		}

		n, err := q.UploadAndPurge(ctx, "http://collector.test/report")
		if err != nil || n != 3 {
			t.Fatalf("UploadAndPurge() = %d, %v; want 3, nil", n, err)
		}
		if up.calls != 1 || len(up.sent[0]) != 3 {
			t.Errorf("uploader calls = %d, sent = %d reports; want 1 call with 3", up.calls, len(up.sent[0]))
		}
		if got, _ := q.List(ctx); len(got) != 0 {
			t.Errorf("List() after upload = %v, want empty", urls(got))
		}
	})

	t.Run("failure leaves the queue intact", func(t *testing.T) {
		t.Parallel()

		uploadErr := &collector.UploadError{StatusCode: http.StatusInternalServerError, Detail: "boom"}
		up := &fakeUploader{err: uploadErr}
		q, _ := setupQueue(t, up)
		if err := q.Append(ctx, newReport(t, "http://a.test")); err != nil {
			t.Fatal(err)
		}

		_, err := q.UploadAndPurge(ctx, "http://collector.test/report")
		var got *collector.UploadError
		if !errors.As(err, &got) || got.StatusCode != http.StatusInternalServerError {
			t.Errorf("UploadAndPurge() error = %v, want UploadError 500", err)
		}
		if up.calls != 1 {
			t.Errorf("uploader called %d times, want 1 (no retry)", up.calls)
		}
		if reports, _ := q.List(ctx); len(reports) != 1 {
			t.Errorf("List() = %v, want the report kept", urls(reports))
		}
	})

	t.Run("report appended during upload survives", func(t *testing.T) {
		t.Parallel()

		up := &fakeUploader{}
		q, _ := setupQueue(t, up)
		if err := q.Append(ctx, newReport(t, "http://old.test")); err != nil {
			t.Fatal(err)
		}
		up.during = func() {
			if err := q.Append(ctx, newReport(t, "http://late.test")); err != nil {
				t.Errorf("Append() during upload error = %v", err)
			}
		}

		n, err := q.UploadAndPurge(ctx, "http://collector.test/report")
		if err != nil || n != 1 {
			t.Fatalf("UploadAndPurge() = %d, %v; want 1, nil", n, err)
		}
		got, _ := q.List(ctx)
		if len(got) != 1 || got[0].URL != "http://late.test" {
			t.Errorf("List() = %v, want [http://late.test]", urls(got))
		}
	})

	t.Run("collector answering ok false keeps the queue", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":false,"error":"disk full"}`))
		}))
		defer srv.Close()

		q, _ := setupQueue(t, collector.NewClient(collector.WithHTTPClient(srv.Client())))
		if err := q.Append(ctx, newReport(t, "http://kept.test")); err != nil {
			t.Fatal(err)
		}

		n, err := q.UploadAndPurge(ctx, srv.URL+"/report")
		var upErr *collector.UploadError
		if !errors.As(err, &upErr) || n != 0 {
			t.Fatalf("UploadAndPurge() = %d, %v; want 0, *UploadError", n, err)
		}
		if upErr.Detail != "disk full" {
			t.Errorf("UploadError.Detail = %q, want disk full", upErr.Detail)
		}
		got, _ := q.List(ctx)
		if len(got) != 1 || got[0].URL != "http://kept.test" {
			t.Errorf("List() = %v, want [http://kept.test]", urls(got))
		}
	})

	t.Run("end to end with the collector", func(t *testing.T) {
		t.Parallel()

		store, err := collector.NewFileStore(t.TempDir() + "/reports.json")
		if err != nil {
			t.Fatal(err)
		}
		srv := httptest.NewServer(collector.NewServer(store).Handler())
		defer srv.Close()

		q, _ := setupQueue(t, collector.NewClient(collector.WithHTTPClient(srv.Client())))
		for _, u := range []string{"http://1.test", "http://2.test"} {
			if err := q.Append(ctx, newReport(t, u)); err != nil {
				t.Fatal(err)
			}
		}

		n, err := q.UploadAndPurge(ctx, srv.URL+"/report")
		if err != nil || n != 2 {
			t.Fatalf("UploadAndPurge() = %d, %v; want 2, nil", n, err)
		}
		stored, _ := store.List(ctx, 0)
		if len(stored) != 2 {
			t.Errorf("collector stored %d reports, want 2", len(stored))
		}
		if got, _ := q.List(ctx); len(got) != 0 {
			t.Errorf("local queue = %v, want empty", urls(got))
		}
	})
}
