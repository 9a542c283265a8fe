package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"

	"LeakScanner/internal/config"
	"LeakScanner/internal/domain"
)

// Prefix marks a config value stored in Secret Manager.
const Prefix = "secret://"

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *smpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*smpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver swaps secret:// references for their Secret Manager payloads.
type Resolver struct {
	client accessor
}

// NewResolver opens a Secret Manager client with default credentials.
func NewResolver(ctx context.Context) (*Resolver, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secret manager client: %w", err)
	}
	return &Resolver{client: client}, nil
}

// Close releases the client.
func (r *Resolver) Close() error {
	return r.client.Close()
}

// Resolve returns value unchanged unless it starts with secret://, in which
// case the rest is the full version name.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, Prefix) {
		return value, nil
	}
	name := strings.TrimPrefix(value, Prefix)
	if !strings.HasPrefix(name, "projects/") || !strings.Contains(name, "/secrets/") {
		return "", fmt.Errorf("%w: malformed secret reference %q", domain.ErrConfiguration, value)
	}
	if !strings.Contains(name, "/versions/") {
		name += "/versions/latest"
	}

	resp, err := r.client.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("%w: access %s: %v", domain.ErrConfiguration, name, err)
	}
	return strings.TrimSpace(string(resp.GetPayload().GetData())), nil
}

// References reports whether any secret-bearing field of cfg uses secret://.
func References(cfg *config.Config) bool {
	for _, field := range secretFields(cfg) {
		if strings.HasPrefix(*field, Prefix) {
			return true
		}
	}
	return false
}

// ResolveConfig resolves every secret-bearing field of cfg in place.
func (r *Resolver) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	for _, field := range secretFields(cfg) {
		resolved, err := r.Resolve(ctx, *field)
		if err != nil {
			return err
		}
		*field = resolved
	}
	return nil
}

func secretFields(cfg *config.Config) []*string {
	return []*string{
		&cfg.Storage.DSN,
		&cfg.Sources.Gist.Token,
		&cfg.Sources.Telegram.BotToken,
		&cfg.Sinks.Notify.BotToken,
		&cfg.Sinks.Notify.ChatID,
		&cfg.Sinks.Dashboard.APIKey,
	}
}
