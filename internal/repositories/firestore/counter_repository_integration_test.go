//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"sync"
	"testing"
	"time"

	pconfig "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/config"
	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
	"github.com/rparit-stacks/sara-backend-ecom-sub001/internal/repositories"
)

// Simulates concurrent checkouts all asking for an order number at once:
// every worker must get a distinct value and the final sequence must be
// gapless.
func TestCounterHandsOutUniqueOrderNumbers(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })
	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "counter-test",
		EmulatorHost: endpoint,
	})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewCounterRepository(provider)
	if err != nil {
		t.Fatalf("new counter repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const checkouts = 16
	numbers := make([]int64, checkouts)
	var wg sync.WaitGroup
	wg.Add(checkouts)
	for i := 0; i < checkouts; i++ {
		go func(idx int) {
			defer wg.Done()
			value, err := repo.Next(ctx, "orders", 1)
			if err != nil {
				t.Errorf("checkout %d: %v", idx, err)
				return
			}
			numbers[idx] = value
		}(i)
	}
	wg.Wait()

	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, value := range numbers {
		if want := int64(i + 1); value != want {
			t.Fatalf("sequence has a gap or duplicate: position %d holds %d, want %d (%v)", i, value, want, numbers)
		}
	}

	// A bounded counter must refuse to run past its ceiling.
	ceiling := int64(3)
	start := int64(0)
	if err := repo.Configure(ctx, "test-runs", repositories.CounterConfig{
		Step:         1,
		MaxValue:     &ceiling,
		InitialValue: &start,
	}); err != nil {
		t.Fatalf("configure counter: %v", err)
	}
	for i := int64(1); i <= ceiling; i++ {
		value, err := repo.Next(ctx, "test-runs", 0)
		if err != nil {
			t.Fatalf("bounded increment %d: %v", i, err)
		}
		if value != i {
			t.Fatalf("bounded counter returned %d, want %d", value, i)
		}
	}

	_, err = repo.Next(ctx, "test-runs", 0)
	var counterErr *repositories.CounterError
	if !errors.As(err, &counterErr) {
		t.Fatalf("expected a counter error past the ceiling, got %T %v", err, err)
	}
	if counterErr.Code != repositories.CounterErrorExhausted {
		t.Fatalf("expected exhausted code, got %s", counterErr.Code)
	}
}
