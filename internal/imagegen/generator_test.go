package imagegen_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chengmaomao/sendblessings/internal/config"
	"github.com/chengmaomao/sendblessings/internal/imagegen"
)

// recordingServer captures the bearer key of every request and answers with
// a scripted status per key.
type recordingServer struct {
	mu       sync.Mutex
	keysSeen []string
	respond  func(key string, w http.ResponseWriter)
}

func (s *recordingServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		s.keysSeen = append(s.keysSeen, key)
		s.mu.Unlock()
		s.respond(key, w)
	}
}

func (s *recordingServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keysSeen...)
}

func respondError(status int, message string) func(string, http.ResponseWriter) {
	return func(_ string, w http.ResponseWriter) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"message":%q}}`, message)
	}
}

const dataURIResponse = `{"choices":[{"message":{"images":[{"image_url":{"url":"data:image/png;base64,aGVsbG8="}}]}}]}`

func testConfig(baseURL, dir string, maxAttempts int) config.ImageConfig {
	return config.ImageConfig{
		Enabled:          true,
		BaseURL:          baseURL,
		Model:            "google/gemini-2.5-flash-image",
		MaxRetryAttempts: maxAttempts,
		RequestTimeout:   5 * time.Second,
		ImagesDir:        dir,
		MaxAge:           15 * time.Minute,
	}
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestGenerateExhaustsKeysInOrder(t *testing.T) {
	t.Parallel()

	srv := &recordingServer{respond: respondError(http.StatusInternalServerError, "boom")}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	pool, err := imagegen.NewKeyPool([]string{"k1", "k2", "k3"})
	if err != nil {
		t.Fatal(err)
	}
	gen := imagegen.NewGenerator(testConfig(ts.URL, t.TempDir(), 2), pool, nil, nil,
		imagegen.WithSleep(noSleep))

	_, err = gen.Generate(context.Background(), "春节", nil)
	if !errors.Is(err, imagegen.ErrKeysExhausted) {
		t.Fatalf("Generate() error = %v, want ErrKeysExhausted", err)
	}

	want := []string{"k1", "k1", "k2", "k2", "k3", "k3"}
	got := srv.seen()
	if len(got) != len(want) {
		t.Fatalf("request count = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("request %d used key %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenerateBackoffIncreasesStrictly(t *testing.T) {
	t.Parallel()

	srv := &recordingServer{respond: respondError(http.StatusInternalServerError, "boom")}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	pool, err := imagegen.NewKeyPool([]string{"k1"})
	if err != nil {
		t.Fatal(err)
	}

	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	gen := imagegen.NewGenerator(testConfig(ts.URL, t.TempDir(), 4), pool, nil, nil,
		imagegen.WithSleep(sleep))

	if _, err := gen.Generate(context.Background(), "元旦", nil); err == nil {
		t.Fatal("Generate() succeeded against a failing server")
	}

	// 4 attempts on one key means 3 waits between them.
	if len(delays) != 3 {
		t.Fatalf("recorded %d delays, want 3: %v", len(delays), delays)
	}
	for i := 1; i < len(delays); i++ {
		if delays[i] <= delays[i-1] {
			t.Errorf("delay %d (%v) not greater than delay %d (%v)", i, delays[i], i-1, delays[i-1])
		}
	}
}

func TestGenerateQuotaRotatesWithoutRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		message string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, message: "rate limited"},
		{name: "out of credits", status: http.StatusPaymentRequired, message: "Insufficient credits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := &recordingServer{respond: respondError(tt.status, tt.message)}
			ts := httptest.NewServer(srv.handler())
			defer ts.Close()

			pool, err := imagegen.NewKeyPool([]string{"k1", "k2"})
			if err != nil {
				t.Fatal(err)
			}

			var slept int
			sleep := func(_ context.Context, _ time.Duration) error {
				slept++
				return nil
			}
			gen := imagegen.NewGenerator(testConfig(ts.URL, t.TempDir(), 3), pool, nil, nil,
				imagegen.WithSleep(sleep))

			_, err = gen.Generate(context.Background(), "中秋节", nil)
			if !errors.Is(err, imagegen.ErrKeysExhausted) {
				t.Fatalf("Generate() error = %v, want ErrKeysExhausted", err)
			}

			// One request per key, no backoff waits.
			if got := srv.seen(); len(got) != 2 {
				t.Errorf("request count = %d, want 2: %v", len(got), got)
			}
			if slept != 0 {
				t.Errorf("slept %d times, want 0", slept)
			}
		})
	}
}

func TestGenerateFallsOverToNextKey(t *testing.T) {
	t.Parallel()

	srv := &recordingServer{}
	srv.respond = func(key string, w http.ResponseWriter) {
		if key == "k1" {
			respondError(http.StatusInternalServerError, "boom")(key, w)
			return
		}
		fmt.Fprint(w, dataURIResponse)
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	pool, err := imagegen.NewKeyPool([]string{"k1", "k2"})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	gen := imagegen.NewGenerator(testConfig(ts.URL, dir, 1), pool, nil, nil,
		imagegen.WithSleep(noSleep))

	asset, err := gen.Generate(context.Background(), "端午节", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	defer gen.Release(asset)

	if base := filepath.Base(asset.LocalPath); !strings.HasPrefix(base, "blessing_image_") || !strings.HasSuffix(base, ".png") {
		t.Errorf("asset file name = %q, want blessing_image_*.png", base)
	}
	data, err := os.ReadFile(asset.LocalPath)
	if err != nil {
		t.Fatalf("reading asset: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("asset contents = %q, want decoded base64 payload", data)
	}
	if asset.Path() != asset.LocalPath {
		t.Errorf("Path() = %q, want local path with no relay", asset.Path())
	}
}

type fakeRelay struct {
	remote string
	err    error
}

func (f *fakeRelay) Send(_ context.Context, _ string) (string, error) {
	return f.remote, f.err
}

func TestGenerateUsesRelayRemotePath(t *testing.T) {
	t.Parallel()

	srv := &recordingServer{respond: func(_ string, w http.ResponseWriter) {
		fmt.Fprint(w, dataURIResponse)
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	pool, err := imagegen.NewKeyPool([]string{"k1"})
	if err != nil {
		t.Fatal(err)
	}
	relay := &fakeRelay{remote: "/srv/images/remote.png"}
	gen := imagegen.NewGenerator(testConfig(ts.URL, t.TempDir(), 1), pool, relay, nil,
		imagegen.WithSleep(noSleep))

	asset, err := gen.Generate(context.Background(), "国庆节", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	defer gen.Release(asset)

	if asset.Path() != "/srv/images/remote.png" {
		t.Errorf("Path() = %q, want relay remote path", asset.Path())
	}
	if asset.LocalPath == "" {
		t.Error("LocalPath empty, want saved local file")
	}
}

func TestCleanupSweepSkipsInflightAndFreshFiles(t *testing.T) {
	t.Parallel()

	srv := &recordingServer{respond: func(_ string, w http.ResponseWriter) {
		fmt.Fprint(w, dataURIResponse)
	}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	dir := t.TempDir()
	pool, err := imagegen.NewKeyPool([]string{"k1"})
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	clock := func() time.Time { return now }
	gen := imagegen.NewGenerator(testConfig(ts.URL, dir, 1), pool, nil, nil,
		imagegen.WithSleep(noSleep), imagegen.WithClock(clock))

	asset, err := gen.Generate(context.Background(), "清明节", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// An unrelated expired file and a fresh one.
	expired := filepath.Join(dir, "blessing_image_20260101_080000_deadbeef.png")
	if err := os.WriteFile(expired, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := now.Add(-time.Hour)
	if err := os.Chtimes(expired, old, old); err != nil {
		t.Fatal(err)
	}
	fresh := filepath.Join(dir, "blessing_image_20260101_090000_cafebabe.png")
	if err := os.WriteFile(fresh, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Age the delivered asset past the cutoff too; only its in-flight mark
	// should protect it.
	if err := os.Chtimes(asset.LocalPath, old, old); err != nil {
		t.Fatal(err)
	}

	removed, err := gen.CleanupSweep(context.Background())
	if err != nil {
		t.Fatalf("CleanupSweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("CleanupSweep() removed = %d, want 1", removed)
	}
	if _, err := os.Stat(asset.LocalPath); err != nil {
		t.Errorf("in-flight asset removed: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file removed: %v", err)
	}
	if _, err := os.Stat(expired); err == nil {
		t.Error("expired file survived the sweep")
	}

	// After release the asset is fair game.
	gen.Release(asset)
	removed, err = gen.CleanupSweep(context.Background())
	if err != nil {
		t.Fatalf("CleanupSweep() after release error = %v", err)
	}
	if removed != 1 {
		t.Errorf("CleanupSweep() after release removed = %d, want 1", removed)
	}
}
