package classifier

import "expvar"

const (
	metricTrains               = "trains"
	metricTrainErrors          = "train_errors"
	metricQueries              = "queries"
	metricQueryErrors          = "query_errors"
	metricPersistFailures      = "persist_failures"
	metricPublishFailures      = "publish_failures"
	metricSnapshotLoadFailures = "snapshot_load_failures"
	metricReloads              = "reloads"
	metricReloadFailures       = "reload_failures"
)

// metrics is published at /debug/vars under "intents".
var metrics = expvar.NewMap("intents")

// Counter returns the current value of a classifier counter, or 0.
func Counter(name string) int64 {
	if v, ok := metrics.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}
