package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
)

type stubSecretClient struct {
	values map[string]string
	err    error
	calls  int
}

func (s *stubSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	value, ok := s.values[req.GetName()]
	if !ok {
		return nil, errors.New("not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (s *stubSecretClient) Close() error { return nil }

func TestFetcherResolveCachesValue(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{
		"projects/demo/secrets/razorpay-key/versions/latest": "rzp_test_123",
	}}
	f, err := NewFetcher(context.Background(), "demo", WithClient(client))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := f.Resolve(context.Background(), "razorpay-key")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if got != "rzp_test_123" {
			t.Fatalf("Resolve = %q, want rzp_test_123", got)
		}
	}
	if client.calls != 1 {
		t.Fatalf("client calls = %d, want 1", client.calls)
	}
}

func TestFetcherCacheExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	client := &stubSecretClient{values: map[string]string{
		"projects/demo/secrets/stripe-key/versions/latest": "sk_test",
	}}
	f, err := NewFetcher(context.Background(), "demo",
		WithClient(client),
		WithCacheTTL(time.Minute),
		WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	if _, err := f.Resolve(context.Background(), "stripe-key"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := f.Resolve(context.Background(), "stripe-key"); err != nil {
		t.Fatalf("Resolve after expiry: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("client calls = %d, want 2", client.calls)
	}
}

func TestFetcherEnvFallback(t *testing.T) {
	t.Setenv("SECRET_WEBHOOK_SECRET", "whsec_local")
	client := &stubSecretClient{err: errors.New("unavailable")}
	f, err := NewFetcher(context.Background(), "demo", WithClient(client))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	got, err := f.Resolve(context.Background(), "webhook-secret")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "whsec_local" {
		t.Fatalf("Resolve = %q, want whsec_local", got)
	}
}

func TestFetcherMissingSecret(t *testing.T) {
	f, err := NewFetcher(context.Background(), "", WithClock(time.Now))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if _, err := f.Resolve(context.Background(), "absent"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}

func TestFetcherInvalidate(t *testing.T) {
	client := &stubSecretClient{values: map[string]string{
		"projects/demo/secrets/cod-limit/versions/latest": "100000",
	}}
	f, err := NewFetcher(context.Background(), "demo", WithClient(client))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if _, err := f.Resolve(context.Background(), "cod-limit"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	f.Invalidate("cod-limit")
	if _, err := f.Resolve(context.Background(), "cod-limit"); err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("client calls = %d, want 2", client.calls)
	}
}
