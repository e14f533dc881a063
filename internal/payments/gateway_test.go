package payments

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type fakeGateway struct {
	name    string
	lastOp  string
	created CreatePaymentResult
	event   WebhookEvent
	refund  RefundResult
	err     error
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResult, error) {
	f.lastOp = "create"
	return f.created, f.err
}

func (f *fakeGateway) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error {
	f.lastOp = "verify"
	return f.err
}

func (f *fakeGateway) ParseWebhookEvent(ctx context.Context, body []byte, headers http.Header) (WebhookEvent, error) {
	f.lastOp = "webhook"
	return f.event, f.err
}

func (f *fakeGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	f.lastOp = "refund"
	return f.refund, f.err
}

func TestRegistryResolvesNamedGateway(t *testing.T) {
	razorpay := &fakeGateway{name: "razorpay"}
	cod := &fakeGateway{name: "cod"}

	reg, err := NewRegistry([]Gateway{razorpay, cod})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	gw, err := reg.Resolve("cod")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gw.Name() != "cod" {
		t.Fatalf("expected cod gateway, got %q", gw.Name())
	}
}

func TestRegistryFallsBackToDefault(t *testing.T) {
	razorpay := &fakeGateway{name: "razorpay"}
	stripe := &fakeGateway{name: "stripe"}

	reg, err := NewRegistry([]Gateway{razorpay, stripe}, WithDefaultGateway("stripe"))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	gw, err := reg.Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gw.Name() != "stripe" {
		t.Fatalf("expected default stripe gateway, got %q", gw.Name())
	}
}

func TestRegistryUnknownGateway(t *testing.T) {
	reg, err := NewRegistry([]Gateway{&fakeGateway{name: "razorpay"}})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if _, err := reg.Resolve("paypal"); !errors.Is(err, ErrUnsupportedGateway) {
		t.Fatalf("expected ErrUnsupportedGateway, got %v", err)
	}
}

func TestRegistryValidatesRegistrations(t *testing.T) {
	if _, err := NewRegistry(nil); err == nil {
		t.Fatal("expected error for empty gateway list")
	}
	if _, err := NewRegistry([]Gateway{&fakeGateway{name: "cod"}, &fakeGateway{name: "cod"}}); err == nil {
		t.Fatal("expected error for duplicate gateway")
	}
	if _, err := NewRegistry([]Gateway{&fakeGateway{name: "cod"}}, WithDefaultGateway("razorpay")); err == nil {
		t.Fatal("expected error for unregistered default")
	}
}

func TestRegistryAvailableMethods(t *testing.T) {
	razorpay := &fakeGateway{name: "razorpay"}
	cod := NewCODGateway(CODGatewayConfig{MaxOrderValue: 500_000})

	reg, err := NewRegistry([]Gateway{razorpay, cod})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	methods := reg.AvailableMethods("IN", 600_000)
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
	if methods[0].Name != "razorpay" || !methods[0].Available {
		t.Fatalf("expected razorpay available, got %+v", methods[0])
	}
	if methods[1].Name != "cod" || methods[1].Available {
		t.Fatalf("expected cod unavailable above cap, got %+v", methods[1])
	}
	if methods[1].Reason == "" {
		t.Fatal("expected a reason for unavailable cod")
	}

	methods = reg.AvailableMethods("", 400_000)
	if !methods[1].Available {
		t.Fatalf("expected cod available below cap with the default country, got %+v", methods[1])
	}

	methods = reg.AvailableMethods("US", 400_000)
	if methods[1].Available {
		t.Fatalf("expected cod unavailable outside the home market, got %+v", methods[1])
	}
}
