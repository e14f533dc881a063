package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Payments.DefaultGateway != "razorpay" {
		t.Errorf("expected default gateway razorpay, got %s", cfg.Payments.DefaultGateway)
	}
	if cfg.Payments.GatewayTimeout != 10*time.Second {
		t.Errorf("expected 10s gateway timeout, got %s", cfg.Payments.GatewayTimeout)
	}
	if !cfg.Payments.COD.Enabled {
		t.Error("expected COD enabled by default")
	}
	if cfg.Checkout.DefaultCountry != "IN" {
		t.Errorf("expected default country IN, got %s", cfg.Checkout.DefaultCountry)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Errorf("unexpected idempotency header %s", cfg.Idempotency.Header)
	}
}

func TestLoadEnvOverridesAndSecrets(t *testing.T) {
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "razorpay-key-secret" {
			return "resolved-secret", nil
		}
		return "", errors.New("unknown secret")
	})

	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_SERVER_PORT":                  "9090",
			"API_PAYMENTS_DEFAULT_GATEWAY":     "stripe",
			"API_PAYMENTS_RAZORPAY_KEY_SECRET": "secret://razorpay-key-secret",
			"API_PAYMENTS_COD_MAX_ORDER_VALUE": "500000",
		}),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Payments.DefaultGateway != "stripe" {
		t.Errorf("expected gateway stripe, got %s", cfg.Payments.DefaultGateway)
	}
	if cfg.Payments.Razorpay.KeySecret != "resolved-secret" {
		t.Errorf("secret not resolved, got %q", cfg.Payments.Razorpay.KeySecret)
	}
	if cfg.Payments.COD.MaxOrderValue != 500000 {
		t.Errorf("expected COD max 500000, got %d", cfg.Payments.COD.MaxOrderValue)
	}
}

func TestLoadRejectsUnknownGateway(t *testing.T) {
	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{"API_PAYMENTS_DEFAULT_GATEWAY": "paytm"}),
	)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadSecretResolverFailure(t *testing.T) {
	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{"API_PAYMENTS_STRIPE_API_KEY": "secret://missing"}),
	)
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
}
