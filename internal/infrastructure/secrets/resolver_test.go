package secrets

import (
	"context"
	"errors"
	"testing"

	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
)

type fakeAccessor struct {
	values    map[string]string
	requested []string
}

func (f *fakeAccessor) AccessSecretVersion(_ context.Context, req *smpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*smpb.AccessSecretVersionResponse, error) {
	f.requested = append(f.requested, req.GetName())
	v, ok := f.values[req.GetName()]
	if !ok {
		return nil, errors.New("not found")
	}
	return &smpb.AccessSecretVersionResponse{Payload: &smpb.SecretPayload{Data: []byte(v + "\n")}}, nil
}

func (f *fakeAccessor) Close() error { return nil }

func TestResolve(t *testing.T) {
	t.Parallel()

	fake := &fakeAccessor{values: map[string]string{
		"projects/p/secrets/bot/versions/latest": "123:abc",
		"projects/p/secrets/dsn/versions/3":      "postgres://db",
	}}
	r := &Resolver{client: fake}
	ctx := context.Background()

	if got, err := r.Resolve(ctx, "plain"); err != nil || got != "plain" {
		t.Fatalf("plain values pass through, got %q %v", got, err)
	}
	if got, err := r.Resolve(ctx, "secret://projects/p/secrets/bot"); err != nil || got != "123:abc" {
		t.Fatalf("unexpected resolution %q %v", got, err)
	}
	if _, err := r.Resolve(ctx, "secret://bot"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for malformed ref, got %v", err)
	}
	if _, err := r.Resolve(ctx, "secret://projects/p/secrets/missing"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing secret, got %v", err)
	}

	cfg := config.Config{}
	cfg.Storage.DSN = "secret://projects/p/secrets/dsn/versions/3"
	cfg.Sources.Telegram.BotToken = "secret://projects/p/secrets/bot"
	cfg.Sinks.Dashboard.APIKey = "literal"
	if !References(&cfg) {
		t.Fatal("expected config to reference secrets")
	}
	if err := r.ResolveConfig(ctx, &cfg); err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.Storage.DSN != "postgres://db" || cfg.Sources.Telegram.BotToken != "123:abc" || cfg.Sinks.Dashboard.APIKey != "literal" {
		t.Fatalf("unexpected resolved config %+v", cfg)
	}
	if References(&cfg) {
		t.Fatal("no references should remain")
	}
}
