//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pconfig "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/config"
	pfirestore "github.com/rparit-stacks/sara-backend-ecom-sub001/internal/platform/firestore"
)

const emulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

type couponDoc struct {
	Code        string `firestore:"code"`
	Redemptions int    `firestore:"redemptions"`
}

// Exercises the provider, generic repository and transaction helper against
// a real emulator: the same path coupon redemption takes in production.
func TestProviderRoundTripAgainstEmulator(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	requireDockerDaemon(t)

	port := reservePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	container := runEmulator(t, port)
	defer stopEmulator(container)
	awaitEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{
		ProjectID:    "integration-project",
		EmulatorHost: endpoint,
	})
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if _, err := provider.Client(ctx); err != nil {
		t.Fatalf("dial emulator: %v", err)
	}

	repo := pfirestore.NewBaseRepository[couponDoc](provider, "coupons", nil, nil)

	if _, err := repo.Set(ctx, "SAVE10", couponDoc{Code: "SAVE10", Redemptions: 0}); err != nil {
		t.Fatalf("set coupon: %v", err)
	}

	doc, err := repo.Get(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if doc.ID != "SAVE10" || doc.Data.Code != "SAVE10" {
		t.Fatalf("unexpected document: %#v", doc)
	}
	if doc.UpdateTime.IsZero() {
		t.Fatal("expected update time from server")
	}

	if _, err := repo.Update(ctx, "SAVE10", []firestore.Update{{Path: "redemptions", Value: 1}}); err != nil {
		t.Fatalf("update coupon: %v", err)
	}
	doc, err = repo.Get(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if doc.Data.Redemptions != 1 {
		t.Fatalf("expected 1 redemption, got %d", doc.Data.Redemptions)
	}

	docs, err := repo.Query(ctx, nil)
	if err != nil {
		t.Fatalf("query coupons: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected one coupon, got %d", len(docs))
	}

	_, err = repo.Get(ctx, "DOES-NOT-EXIST")
	if err == nil {
		t.Fatal("expected a not-found error")
	}
	var classified interface{ IsNotFound() bool }
	if !errors.As(err, &classified) || !classified.IsNotFound() {
		t.Fatalf("expected not-found classification, got %v", err)
	}

	// Transactional increment, the pattern the coupon repository relies on.
	err = provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := repo.DocumentRef(ctx, "SAVE10")
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var coupon couponDoc
		if err := snap.DataTo(&coupon); err != nil {
			return err
		}
		coupon.Redemptions++
		return tx.Set(ref, coupon)
	})
	if err != nil {
		t.Fatalf("transactional redemption: %v", err)
	}
	doc, err = repo.Get(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("get after transaction: %v", err)
	}
	if doc.Data.Redemptions != 2 {
		t.Fatalf("expected 2 redemptions, got %d", doc.Data.Redemptions)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	err = provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error {
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func reservePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func runEmulator(t *testing.T, port int) string {
	t.Helper()
	out, err := exec.Command("docker",
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		emulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	).CombinedOutput()
	if err != nil {
		t.Fatalf("start emulator: %v - %s", err, out)
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatal("docker returned an empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func stopEmulator(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(ctx, "docker", "stop", id).Run()
}

func awaitEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		lastErr = err
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("emulator never became reachable: %v", lastErr)
}

func requireDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, "docker", "info").Run(); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}
}
