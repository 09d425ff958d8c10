package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/image-hub/internal/transform"
)

func TestLoaderMemoizesWithinTTL(t *testing.T) {
	backend, err := NewMemoryBackend(Options{TTL: 150 * time.Millisecond, Capacity: 16})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	loader := newTestLoader(t, backend)

	var computes int32
	compute := func(context.Context) (transform.Artifact, error) {
		n := atomic.AddInt32(&computes, 1)
		return transform.Artifact{Body: []byte{byte(n)}, MIMEType: "image/png"}, nil
	}

	ctx := context.Background()
	first, hit, err := loader.GetOrCompute(ctx, "photos/cat.jpg?w=100", compute)
	if err != nil || hit {
		t.Fatalf("first call should miss, hit=%v err=%v", hit, err)
	}
	second, hit, err := loader.GetOrCompute(ctx, "photos/cat.jpg?w=100", compute)
	if err != nil || !hit {
		t.Fatalf("second call should hit, hit=%v err=%v", hit, err)
	}
	if !bytes.Equal(first.Body, second.Body) {
		t.Fatalf("cached output should be byte-identical")
	}
	if atomic.LoadInt32(&computes) != 1 {
		t.Fatalf("compute should run once within ttl, ran %d", computes)
	}

	time.Sleep(300 * time.Millisecond)
	if _, hit, _ := loader.GetOrCompute(ctx, "photos/cat.jpg?w=100", compute); hit {
		t.Fatalf("expired entry must not be served")
	}
	if atomic.LoadInt32(&computes) != 2 {
		t.Fatalf("expiry should trigger a recompute, ran %d", computes)
	}
}

func TestLoaderDoesNotStoreFailures(t *testing.T) {
	backend, err := NewMemoryBackend(Options{TTL: time.Minute, Capacity: 16})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	loader := newTestLoader(t, backend)

	boom := errors.New("decode failed")
	_, _, err = loader.GetOrCompute(context.Background(), "k", func(context.Context) (transform.Artifact, error) {
		return transform.Artifact{Body: []byte("partial")}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if backend.Len() != 0 {
		t.Fatalf("failed compute must not publish an entry")
	}

	var computes int32
	_, hit, err := loader.GetOrCompute(context.Background(), "k", func(context.Context) (transform.Artifact, error) {
		atomic.AddInt32(&computes, 1)
		return transform.Artifact{Body: []byte("ok")}, nil
	})
	if err != nil || hit || computes != 1 {
		t.Fatalf("retry after failure should compute, hit=%v err=%v computes=%d", hit, err, computes)
	}
}

func TestLoaderCollapsesConcurrentMisses(t *testing.T) {
	backend, err := NewMemoryBackend(Options{TTL: time.Minute, Capacity: 16})
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	loader := newTestLoader(t, backend)

	var computes int32
	release := make(chan struct{})
	compute := func(context.Context) (transform.Artifact, error) {
		atomic.AddInt32(&computes, 1)
		<-release
		return transform.Artifact{Body: []byte("shared")}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			artifact, _, err := loader.GetOrCompute(context.Background(), "same", compute)
			if err != nil || string(artifact.Body) != "shared" {
				t.Errorf("unexpected result %q err=%v", artifact.Body, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&computes); got != 1 {
		t.Fatalf("concurrent misses should compute once, got %d", got)
	}
}

func TestLoaderDegradesOnBackendErrors(t *testing.T) {
	logBuf := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logBuf)

	loader, err := NewLoader(failingBackend{}, logger)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	artifact, hit, err := loader.GetOrCompute(context.Background(), "k", func(context.Context) (transform.Artifact, error) {
		return transform.Artifact{Body: []byte("fresh")}, nil
	})
	if err != nil || hit || string(artifact.Body) != "fresh" {
		t.Fatalf("backend failure should degrade to miss, hit=%v err=%v", hit, err)
	}
	logs := logBuf.String()
	if !strings.Contains(logs, "cache_get_failed") || !strings.Contains(logs, "cache_set_failed") {
		t.Fatalf("backend failures should be logged, got %s", logs)
	}
}

func TestNewLoaderRequiresBackend(t *testing.T) {
	if _, err := NewLoader(nil, nil); err == nil {
		t.Fatalf("nil backend should fail")
	}
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (transform.Artifact, bool, error) {
	return transform.Artifact{}, false, errors.New("connection refused")
}

func (failingBackend) Set(context.Context, string, transform.Artifact) error {
	return errors.New("connection refused")
}

func (failingBackend) Name() string { return "failing" }

func (failingBackend) Close() error { return nil }

func newTestLoader(t *testing.T, backend Backend) *Loader {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	loader, err := NewLoader(backend, logger)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	t.Cleanup(func() { _ = loader.Close() })
	return loader
}
