// Package valkeytest starts a throwaway ValKey container for storage tests.
package valkeytest

import (
	"context"
	"net"

	"github.com/docker/go-connections/nat"
	"github.com/valkey-io/valkey-go"

	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"
	slogctx "github.com/veqryn/slog-context"
)

const (
	image = "valkey/valkey:8-alpine"
	port  = nat.Port("6379")
)

// Start runs a ValKey container and returns a connected client, the mapped port and
// a termination function that also closes the client.
func Start(ctx context.Context) (valkey.Client, nat.Port, func(ctx context.Context)) {
	container, err := valkeycontainer.Run(ctx, image)
	if err != nil {
		slogctx.Error(ctx, "Failed to start ValKey container", "error", err)
		panic(err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		slogctx.Error(ctx, "Failed to map a port for the ValKey container", "error", err)
		panic(err)
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{net.JoinHostPort("localhost", mapped.Port())},
	})
	if err != nil {
		slogctx.Error(ctx, "Failed to initialise a ValKey client", "error", err)
		panic(err)
	}

	terminate := func(ctx context.Context) {
		client.Close()
		if err := container.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate ValKey container", "error", err)
			panic(err)
		}
	}

	return client, mapped, terminate
}
