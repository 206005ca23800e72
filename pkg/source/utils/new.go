package sourceutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/intents/pkg/source"
	"github.com/papercomputeco/intents/pkg/source/postgres"
	"github.com/papercomputeco/intents/pkg/source/sqlite"
)

type NewSourceDriverOpts struct {
	ProviderType string
	Target       string
	Logger       *slog.Logger
}

// NewSourceDriver returns nil with no error when no provider is configured.
func NewSourceDriver(ctx context.Context, o *NewSourceDriverOpts) (source.Driver, error) {
	switch o.ProviderType {
	case "":
		return nil, nil
	case "postgres":
		return postgres.NewDriver(ctx, o.Target, o.Logger)
	case "sqlite":
		return sqlite.NewDriver(o.Target, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported source provider: %s", o.ProviderType)
	}
}
