package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultCacheTTL = 5 * time.Minute
	envPrefix       = "SECRET_"
)

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret references against Google Secret Manager with a
// short-lived cache and an environment-variable fallback for local runs.
type Fetcher struct {
	client    secretManagerClient
	projectID string
	ttl       time.Duration
	logger    *zap.Logger
	clock     func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value     string
	fetchedAt time.Time
}

// Option customises the Fetcher.
type Option func(*Fetcher)

// WithLogger installs the logger used for warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithCacheTTL overrides the secret cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(f *Fetcher) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// WithClock injects a clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(f *Fetcher) {
		if clock != nil {
			f.clock = clock
		}
	}
}

// WithClient injects a Secret Manager client, bypassing the default factory.
func WithClient(client secretManagerClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher constructs a Fetcher bound to the given project. An empty
// project disables remote lookups; only the env fallback is consulted.
func NewFetcher(ctx context.Context, projectID string, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		projectID: strings.TrimSpace(projectID),
		ttl:       defaultCacheTTL,
		logger:    zap.NewNop(),
		clock:     time.Now,
		cache:     make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil && f.projectID != "" {
		client, err := secretManagerClientFactory(ctx)
		if err != nil {
			return nil, fmt.Errorf("secrets: create client: %w", err)
		}
		f.client = client
	}
	return f, nil
}

// Close releases the underlying client.
func (f *Fetcher) Close() error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// Resolve returns the latest value for the named secret. Resolution order:
// cache, Secret Manager, then the SECRET_<NAME> environment fallback.
func (f *Fetcher) Resolve(ctx context.Context, name string) (string, error) {
	if f == nil {
		return "", errors.New("secrets: fetcher is nil")
	}
	key := strings.TrimSpace(name)
	if key == "" {
		return "", errors.New("secrets: secret name is required")
	}

	if value, ok := f.lookupCache(key); ok {
		return value, nil
	}

	if f.client != nil && f.projectID != "" {
		value, err := f.fetchRemote(ctx, key)
		if err == nil {
			f.storeCache(key, value)
			return value, nil
		}
		f.logger.Warn("secrets: remote fetch failed, trying env fallback",
			zap.String("secret", key), zap.Error(err))
	}

	if value, ok := f.lookupEnv(key); ok {
		f.storeCache(key, value)
		return value, nil
	}
	return "", fmt.Errorf("secrets: %q not found", key)
}

// Invalidate drops a cached secret so the next Resolve refetches it.
func (f *Fetcher) Invalidate(name string) {
	key := strings.TrimSpace(name)
	if key == "" {
		return
	}
	f.mu.Lock()
	delete(f.cache, key)
	f.mu.Unlock()
}

func (f *Fetcher) fetchRemote(ctx context.Context, name string) (string, error) {
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", f.projectID, name)
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Payload == nil {
		return "", errors.New("secrets: empty payload")
	}
	return string(resp.Payload.Data), nil
}

func (f *Fetcher) lookupCache(key string) (string, bool) {
	f.mu.RLock()
	entry, ok := f.cache[key]
	f.mu.RUnlock()
	if !ok {
		return "", false
	}
	if f.clock().Sub(entry.fetchedAt) > f.ttl {
		return "", false
	}
	return entry.value, true
}

func (f *Fetcher) storeCache(key, value string) {
	f.mu.Lock()
	f.cache[key] = cacheEntry{value: value, fetchedAt: f.clock()}
	f.mu.Unlock()
}

func (f *Fetcher) lookupEnv(key string) (string, bool) {
	normalized := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", "/", "_").Replace(key))
	value, ok := os.LookupEnv(envPrefix + normalized)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}
