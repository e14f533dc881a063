package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/domain"
)

func TestHealthReportAllDependenciesHealthy(t *testing.T) {
	fixed := time.Date(2026, time.February, 10, 8, 0, 0, 0, time.UTC)

	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore", Check: func(ctx context.Context) error {
			select {
			case <-time.After(10 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
		{Name: "razorpay", Check: func(context.Context) error { return nil }},
	}, WithDependencyClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected ok, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected both checks in the report, got %d", len(report.Checks))
	}
	for name, check := range report.Checks {
		if check.Status != domain.HealthStatusOK {
			t.Fatalf("check %s: expected ok, got %s", name, check.Status)
		}
		if !check.CheckedAt.Equal(fixed) {
			t.Fatalf("check %s: checkedAt %s, want %s", name, check.CheckedAt, fixed)
		}
	}
	if !report.GeneratedAt.Equal(fixed) {
		t.Fatalf("generatedAt %s, want %s", report.GeneratedAt, fixed)
	}
}

func TestHealthReportDegradesOnDependencyError(t *testing.T) {
	gatewayDown := errors.New("gateway unreachable")

	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "razorpay", Check: func(context.Context) error { return gatewayDown }},
		{Name: "firestore", Check: func(context.Context) error { return nil }},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	check := report.Checks["razorpay"]
	if check.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected razorpay degraded, got %s", check.Status)
	}
	if check.Error != gatewayDown.Error() {
		t.Fatalf("expected error %q, got %q", gatewayDown, check.Error)
	}
	if report.Checks["firestore"].Status != domain.HealthStatusOK {
		t.Fatal("a failing gateway must not mark firestore unhealthy")
	}
}

func TestHealthReportTimesOutSlowDependency(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{
			Name:    "pubsub",
			Timeout: 5 * time.Millisecond,
			Check: func(ctx context.Context) error {
				select {
				case <-time.After(20 * time.Millisecond):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status, got %s", report.Status)
	}
	check := report.Checks["pubsub"]
	if check.Detail != "timeout" {
		t.Fatalf("expected timeout detail, got %q", check.Detail)
	}
}

func TestHealthRepositoryRejectsInvalidChecks(t *testing.T) {
	if _, err := NewDependencyHealthRepository(nil); err == nil {
		t.Fatal("expected an error for an empty check set")
	}
	if _, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: " ", Check: func(context.Context) error { return nil }},
	}); err == nil {
		t.Fatal("expected an error for a nameless check")
	}
	if _, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "firestore"},
	}); err == nil {
		t.Fatal("expected an error for a check without a probe function")
	}
}
