package llm

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Loader produces a ready-to-use backend handle for a named model, e.g.
// warming an Ollama model or opening a local weights file.
type Loader func(ctx context.Context, model string) (any, error)

// ModelContainer caches loaded model handles with an LRU eviction policy
// and guarantees at most one concurrent load per model name: concurrent
// requests for the same not-yet-loaded model block on the single in-flight
// load instead of each starting their own.
type ModelContainer struct {
	cache *lru.Cache[string, any]
	load  Loader

	mu       sync.Mutex
	inflight map[string]*loadResult
}

type loadResult struct {
	done   chan struct{}
	handle any
	err    error
}

// NewModelContainer builds a container holding up to size loaded models.
func NewModelContainer(size int, load Loader) (*ModelContainer, error) {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("llm: new model cache: %w", err)
	}
	return &ModelContainer{cache: cache, load: load, inflight: make(map[string]*loadResult)}, nil
}

// Get returns the cached handle for model, loading it if necessary. Callers
// racing for the same uncached model share one load.
func (c *ModelContainer) Get(ctx context.Context, model string) (any, error) {
	if handle, ok := c.cache.Get(model); ok {
		return handle, nil
	}

	c.mu.Lock()
	if handle, ok := c.cache.Get(model); ok {
		c.mu.Unlock()
		return handle, nil
	}
	if res, ok := c.inflight[model]; ok {
		c.mu.Unlock()
		<-res.done
		return res.handle, res.err
	}
	res := &loadResult{done: make(chan struct{})}
	c.inflight[model] = res
	c.mu.Unlock()

	handle, err := c.load(ctx, model)
	if err == nil {
		c.cache.Add(model, handle)
	}
	res.handle, res.err = handle, err
	close(res.done)

	c.mu.Lock()
	delete(c.inflight, model)
	c.mu.Unlock()

	return handle, err
}

// Len reports the number of currently cached model handles.
func (c *ModelContainer) Len() int { return c.cache.Len() }

// Keys reports the model names currently cached, for /v1/models.
func (c *ModelContainer) Keys() []string { return c.cache.Keys() }

// cachingGenerator gates every generation call through the model
// container before delegating to the wrapped backend, so concurrent first
// requests for the same unloaded model coalesce onto a single load instead
// of each racing their own.
type cachingGenerator struct {
	inner     Generator
	container *ModelContainer
}

// NewCachingGenerator wraps inner so each call's model is resolved through
// container first. Backends with nothing to warm still benefit from the
// cache/coalescing bookkeeping; container's Loader determines what, if
// anything, actually happens on a cache miss.
func NewCachingGenerator(inner Generator, container *ModelContainer) Generator {
	return &cachingGenerator{inner: inner, container: container}
}

func (g *cachingGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	if req.Model != "" {
		if _, err := g.container.Get(ctx, req.Model); err != nil {
			return fmt.Errorf("llm: warm model %q: %w", req.Model, err)
		}
	}
	return g.inner.Generate(ctx, req, consumer)
}

// LoaderFor returns a Loader that warms gen's model via ModelLoader if gen
// implements it, or a no-op pass-through otherwise.
func LoaderFor(gen Generator) Loader {
	ml, ok := gen.(ModelLoader)
	if !ok {
		return func(_ context.Context, model string) (any, error) { return model, nil }
	}
	return func(ctx context.Context, model string) (any, error) {
		if err := ml.EnsureLoaded(ctx, model); err != nil {
			return nil, err
		}
		return model, nil
	}
}
