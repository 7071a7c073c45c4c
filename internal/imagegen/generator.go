package imagegen

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chengmaomao/sendblessings/internal/config"
)

// ErrKeysExhausted is the terminal error for one generation attempt: every
// key in the pool failed after its retry budget.
var ErrKeysExhausted = errors.New("all image api keys exhausted")

// ErrNoImage is returned when the API answered successfully but the response
// carried no image payload.
var ErrNoImage = errors.New("response contained no image data")

// Asset is a generated image file. RemotePath is set when the file was
// relayed through a NAP server, in which case deliveries should reference
// the remote path.
type Asset struct {
	LocalPath  string
	RemotePath string
	CreatedAt  time.Time
}

// Path returns the reference message delivery should use.
func (a *Asset) Path() string {
	if a.RemotePath != "" {
		return a.RemotePath
	}
	return a.LocalPath
}

// Relay pushes a local file to a remote host and returns the path the file
// is reachable under there.
type Relay interface {
	Send(ctx context.Context, path string) (string, error)
}

// Generator calls the image generation API and manages the resulting files.
type Generator struct {
	cfg    config.ImageConfig
	pool   *KeyPool
	relay  Relay
	client *http.Client
	log    *slog.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time

	// inflight guards generated files against the cleanup sweep until the
	// dispatcher releases them after delivery.
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// Option customizes a Generator.
type Option func(*Generator)

// WithSleep overrides the backoff sleep for deterministic tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Generator) { g.sleep = sleep }
}

// WithClock overrides the generator's notion of "now".
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates an image generator. relay may be nil when no NAP
// server is configured.
func NewGenerator(cfg config.ImageConfig, pool *KeyPool, relay Relay, log *slog.Logger, opts ...Option) *Generator {
	if log == nil {
		log = slog.Default()
	}
	g := &Generator{
		cfg:      cfg,
		pool:     pool,
		relay:    relay,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		log:      log.With("component", "image_generator"),
		sleep:    sleepContext,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay returns the wait before retry n (n >= 1) for the same key.
// Delays double each retry so they are strictly increasing.
func backoffDelay(n int) time.Duration {
	return time.Duration(1<<n) * time.Second
}

// Generate produces one image for the prompt. referenceImages are data-URI
// encoded images embedded into the request. Each key in the pool is tried up
// to MaxRetryAttempts times with exponential backoff; quota and rate-limit
// responses rotate to the next key immediately. When every key is exhausted
// the returned error wraps ErrKeysExhausted.
func (g *Generator) Generate(ctx context.Context, prompt string, referenceImages []string) (*Asset, error) {
	for tried := 0; tried < g.pool.Len(); tried++ {
		idx, key := g.pool.Current()
		log := g.log.With("key_index", idx+1)

		for attempt := 1; attempt <= g.cfg.MaxRetryAttempts; attempt++ {
			if attempt > 1 {
				delay := backoffDelay(attempt - 1)
				log.InfoContext(ctx, "Retrying image generation", "attempt", attempt, "max_attempts", g.cfg.MaxRetryAttempts, "delay", delay)
				if err := g.sleep(ctx, delay); err != nil {
					return nil, err
				}
			}

			asset, err := g.attempt(ctx, key, prompt, referenceImages)
			if err == nil {
				log.InfoContext(ctx, "Image generated", "path", asset.LocalPath, "remote_path", asset.RemotePath)
				return asset, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			var qe *quotaError
			if errors.As(err, &qe) {
				// Quota or rate limit: retrying the same key is pointless.
				log.WarnContext(ctx, "Key quota exhausted or rate limited, rotating", "status", qe.status, "error", err)
				break
			}
			log.WarnContext(ctx, "Image generation attempt failed", "attempt", attempt, "error", err)
		}

		g.pool.Rotate()
	}

	g.log.ErrorContext(ctx, "Image generation failed on all keys", "keys", g.pool.Len(), "attempts_per_key", g.cfg.MaxRetryAttempts)
	return nil, fmt.Errorf("%w after trying %d keys", ErrKeysExhausted, g.pool.Len())
}

// quotaError marks responses that should rotate keys without retrying.
type quotaError struct {
	status  int
	message string
}

func (e *quotaError) Error() string {
	return fmt.Sprintf("image api quota error (status %d): %s", e.status, e.message)
}

// saveImage writes image bytes into the scoped images directory and marks
// the file in-flight so the cleanup sweep leaves it alone until released.
func (g *Generator) saveImage(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(g.cfg.ImagesDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return "", fmt.Errorf("failed to generate file suffix: %w", err)
	}

	name := fmt.Sprintf("blessing_image_%s_%s.%s", g.now().Format("20060102_150405"), hex.EncodeToString(suffix[:]), ext)
	path := filepath.Join(g.cfg.ImagesDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	g.inflightMu.Lock()
	g.inflight[abs] = struct{}{}
	g.inflightMu.Unlock()

	return abs, nil
}

// finishAsset relays the saved file when a relay is configured and wraps it
// into an Asset. Relay failures fall back to the local path.
func (g *Generator) finishAsset(ctx context.Context, localPath string) *Asset {
	asset := &Asset{LocalPath: localPath, CreatedAt: g.now()}

	if g.relay != nil {
		remote, err := g.relay.Send(ctx, localPath)
		if err != nil {
			g.log.WarnContext(ctx, "NAP relay failed, using local path", "path", localPath, "error", err)
		} else {
			asset.RemotePath = remote
		}
	}
	return asset
}

// Release marks an asset as consumed so the cleanup sweep may delete it.
func (g *Generator) Release(asset *Asset) {
	if asset == nil {
		return
	}
	g.inflightMu.Lock()
	delete(g.inflight, asset.LocalPath)
	g.inflightMu.Unlock()
}

func (g *Generator) isInflight(path string) bool {
	g.inflightMu.Lock()
	defer g.inflightMu.Unlock()
	_, ok := g.inflight[path]
	return ok
}

func normalizeExt(format string) string {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	switch format {
	case "jpeg", "jpg":
		return "jpg"
	case "webp":
		return "webp"
	default:
		return "png"
	}
}
