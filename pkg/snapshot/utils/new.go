package snapshotutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/intents/pkg/snapshot"
	"github.com/papercomputeco/intents/pkg/snapshot/file"
	"github.com/papercomputeco/intents/pkg/snapshot/postgres"
	"github.com/papercomputeco/intents/pkg/snapshot/qdrant"
	"github.com/papercomputeco/intents/pkg/snapshot/sqlite"
)

type NewSnapshotDriverOpts struct {
	ProviderType string
	Target       string
	APIKey       string
	Logger       *slog.Logger
}

func NewSnapshotDriver(ctx context.Context, o *NewSnapshotDriverOpts) (snapshot.Driver, error) {
	switch o.ProviderType {
	case "", "file":
		return file.NewDriver(file.Config{
			Path: o.Target,
		}, o.Logger)
	case "sqlite":
		return sqlite.NewDriver(sqlite.Config{
			DBPath: o.Target,
		}, o.Logger)
	case "postgres":
		return postgres.NewDriver(ctx, o.Target, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(qdrant.Config{
			Target: o.Target,
			APIKey: o.APIKey,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported snapshot provider: %s", o.ProviderType)
	}
}
