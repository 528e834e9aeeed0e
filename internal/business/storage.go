package business

import (
	"context"
	"fmt"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/config"
	"github.com/hyperbuds/hyperbuds-client/internal/keystore"
	keystorebolt "github.com/hyperbuds/hyperbuds-client/internal/keystore/bolt"
	keystoremem "github.com/hyperbuds/hyperbuds-client/internal/keystore/memory"
	keystorevalkey "github.com/hyperbuds/hyperbuds-client/internal/keystore/valkey"
)

func initKeyStore(ctx context.Context, cfg *config.Config) (keystore.Store, error) {
	slogctx.Debug(ctx, "Opening key store", "type", cfg.Storage.Type)

	switch cfg.Storage.Type {
	case config.StorageBolt:
		store, err := keystorebolt.NewStore(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageValKey:
		client, err := newValKeyClient(cfg.ValKey)
		if err != nil {
			return nil, err
		}
		return keystorevalkey.NewStore(client, cfg.ValKey.Prefix), nil
	case config.StorageMemory:
		slogctx.Warn(ctx, "Using in-memory key store, the session is lost on exit")
		return keystoremem.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func newValKeyClient(cfg config.ValKey) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.MTLS != nil {
		tlsConfig, err := commoncfg.LoadMTLSConfig(cfg.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}
