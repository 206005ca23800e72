// Package qdrant provides a snapshot driver that stores the record set as
// points in a Qdrant collection. Each save writes a fresh collection and
// moves an alias onto it, so readers always resolve a complete snapshot.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/intents/pkg/intent"
	"github.com/papercomputeco/intents/pkg/snapshot"
)

const (
	// DefaultAlias is the alias readers resolve to the live collection.
	DefaultAlias = "intents"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	rawVector        = "raw"
	normalizedVector = "normalized"

	markerPayloadKey = "system_marker"

	upsertBatchSize = 256
	scrollPageSize  = 256
)

// pointNamespace seeds deterministic point IDs derived from system and
// question IDs.
var pointNamespace = uuid.MustParse("3f0c2b7e-8d6a-4f51-9b1e-5c2d7a9e4b10")

// Driver implements snapshot.Driver using Qdrant.
type Driver struct {
	client *qdrant.Client
	alias  string
	logger *slog.Logger
}

// Config holds configuration for the Qdrant snapshot driver.
type Config struct {
	// Target is "host:port" or a URL such as "https://qdrant.internal:6334".
	Target string

	// APIKey authenticates against Qdrant Cloud or secured deployments.
	APIKey string

	// Alias names the live collection. Defaults to DefaultAlias.
	Alias string
}

// NewDriver creates a Qdrant snapshot driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	cfg, err := clientConfig(c.Target)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = c.APIKey

	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	alias := c.Alias
	if alias == "" {
		alias = DefaultAlias
	}

	logger.Debug("qdrant snapshot driver initialized",
		"host", cfg.Host,
		"port", cfg.Port,
		"alias", alias,
	)

	return &Driver{
		client: client,
		alias:  alias,
		logger: logger,
	}, nil
}

func clientConfig(target string) (*qdrant.Config, error) {
	if target == "" {
		return nil, errors.New("qdrant target is required")
	}

	cfg := &qdrant.Config{Port: DefaultPort}

	hostport := target
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("parsing qdrant target: %w", err)
		}
		cfg.UseTLS = u.Scheme == "https"
		hostport = u.Host
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		cfg.Host = hostport
		return cfg, nil
	}

	cfg.Host = host
	if cfg.Port, err = strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("invalid qdrant port %q: %w", port, err)
	}
	return cfg, nil
}

// collectionName encodes the snapshot version and save time so they can be
// recovered from the alias target alone.
func collectionName(alias string, version int, savedAt time.Time) string {
	return fmt.Sprintf("%s_v%d_%d", alias, version, savedAt.UnixNano())
}

func parseCollectionName(alias, name string) (int, time.Time, error) {
	rest, ok := strings.CutPrefix(name, alias+"_v")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: collection %q does not belong to alias %q", snapshot.ErrIncompatible, name, alias)
	}

	versionPart, nanosPart, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: malformed collection name %q", snapshot.ErrIncompatible, name)
	}

	version, err := strconv.Atoi(versionPart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: malformed collection name %q", snapshot.ErrIncompatible, name)
	}
	nanos, err := strconv.ParseInt(nanosPart, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: malformed collection name %q", snapshot.ErrIncompatible, name)
	}

	return version, time.Unix(0, nanos).UTC(), nil
}

func pointID(systemID, questionID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(systemID+"\x00"+questionID)).String()
}

// Save writes snap into a new collection, then repoints the alias at it and
// drops the previous collection.
func (d *Driver) Save(ctx context.Context, snap *intent.Snapshot) error {
	if snap == nil {
		return errors.New("cannot save nil snapshot")
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	name := collectionName(d.alias, snap.Version, savedAt)

	// Cosine collections normalize vectors on insert; dot product keeps
	// the stored embeddings byte-for-byte.
	dims := dimensions(snap)
	err := d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			rawVector:        {Size: dims, Distance: qdrant.Distance_Dot},
			normalizedVector: {Size: dims, Distance: qdrant.Distance_Dot},
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	if err := d.upsert(ctx, name, snap); err != nil {
		d.dropCollection(name)
		return err
	}

	previous, err := d.resolveAlias(ctx)
	if err != nil {
		d.dropCollection(name)
		return err
	}

	ops := make([]*qdrant.AliasOperations, 0, 2)
	if previous != "" {
		ops = append(ops, &qdrant.AliasOperations{
			Action: &qdrant.AliasOperations_DeleteAlias{
				DeleteAlias: &qdrant.DeleteAlias{AliasName: d.alias},
			},
		})
	}
	ops = append(ops, &qdrant.AliasOperations{
		Action: &qdrant.AliasOperations_CreateAlias{
			CreateAlias: &qdrant.CreateAlias{CollectionName: name, AliasName: d.alias},
		},
	})

	if err := d.client.UpdateAliases(ctx, ops); err != nil {
		d.dropCollection(name)
		return fmt.Errorf("switching alias %s to %s: %w", d.alias, name, err)
	}

	if previous != "" && previous != name {
		d.dropCollection(previous)
	}

	d.logger.Debug("snapshot saved",
		"collection", name,
		"systems", len(snap.Systems),
		"records", snap.Records(),
	)

	return nil
}

func dimensions(snap *intent.Snapshot) uint64 {
	for _, records := range snap.Systems {
		for _, rec := range records {
			if len(rec.Embedding) > 0 {
				return uint64(len(rec.Embedding))
			}
		}
	}
	return 1
}

func (d *Driver) upsert(ctx context.Context, collection string, snap *intent.Snapshot) error {
	points := make([]*qdrant.PointStruct, 0, upsertBatchSize)

	flush := func() error {
		if len(points) == 0 {
			return nil
		}
		_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("upserting points into %s: %w", collection, err)
		}
		points = points[:0]
		return nil
	}

	dims := dimensions(snap)
	for systemID, records := range snap.Systems {
		// Every system gets a marker point so that an emptied system survives.
		points = append(points, markerPoint(systemID, dims))

		for questionID, rec := range records {
			vectors := map[string]*qdrant.Vector{
				rawVector: qdrant.NewVector(rec.Embedding...),
			}
			if len(rec.NormalizedEmbedding) > 0 {
				vectors[normalizedVector] = qdrant.NewVector(rec.NormalizedEmbedding...)
			}

			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(pointID(systemID, questionID)),
				Vectors: qdrant.NewVectorsMap(vectors),
				Payload: qdrant.NewValueMap(map[string]any{
					"system_id":   systemID,
					"question_id": questionID,
					"intent_id":   rec.IntentID,
				}),
			})

			if len(points) == upsertBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}

	return flush()
}

func markerPoint(systemID string, dims uint64) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id: qdrant.NewID(pointID(systemID, "")),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			rawVector: qdrant.NewVector(make([]float32, dims)...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			"system_id":      systemID,
			markerPayloadKey: true,
		}),
	}
}

// resolveAlias returns the collection the alias points at, or "".
func (d *Driver) resolveAlias(ctx context.Context) (string, error) {
	aliases, err := d.client.ListAliases(ctx)
	if err != nil {
		return "", fmt.Errorf("listing aliases: %w", err)
	}
	for _, a := range aliases {
		if a.GetAliasName() == d.alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (d *Driver) dropCollection(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.client.DeleteCollection(ctx, name); err != nil {
		d.logger.Warn("failed to delete qdrant collection", "collection", name, "error", err)
	}
}

// Load reads every point of the aliased collection.
func (d *Driver) Load(ctx context.Context) (*intent.Snapshot, error) {
	name, err := d.resolveAlias(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, snapshot.ErrNotFound
	}

	version, savedAt, err := parseCollectionName(d.alias, name)
	if err != nil {
		return nil, err
	}
	if version != intent.SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d (expected %d)", snapshot.ErrIncompatible, version, intent.SnapshotVersion)
	}

	snap := intent.NewSnapshot()
	snap.SavedAt = savedAt

	var offset *qdrant.PointId
	for {
		// One extra point is requested so its ID can serve as the next
		// page's inclusive offset.
		points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize + 1)),
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scrolling %s: %w", name, err)
		}

		page := points
		offset = nil
		if len(points) > scrollPageSize {
			page = points[:scrollPageSize]
			offset = points[scrollPageSize].GetId()
		}

		for _, p := range page {
			if err := addPoint(snap, p); err != nil {
				return nil, err
			}
		}

		if offset == nil {
			break
		}
	}

	return snap, nil
}

func addPoint(snap *intent.Snapshot, p *qdrant.RetrievedPoint) error {
	payload := p.GetPayload()
	systemID := payload["system_id"].GetStringValue()
	questionID := payload["question_id"].GetStringValue()
	if systemID != "" && payload[markerPayloadKey].GetBoolValue() {
		if _, ok := snap.Systems[systemID]; !ok {
			snap.Systems[systemID] = make(map[string]intent.Record)
		}
		return nil
	}
	if systemID == "" || questionID == "" {
		return fmt.Errorf("%w: point %s is missing its payload", snapshot.ErrIncompatible, p.GetId().GetUuid())
	}

	named := p.GetVectors().GetVectors().GetVectors()
	rec := intent.Record{
		IntentID:            payload["intent_id"].GetStringValue(),
		Embedding:           vectorData(named[rawVector]),
		NormalizedEmbedding: vectorData(named[normalizedVector]),
	}

	records, ok := snap.Systems[systemID]
	if !ok {
		records = make(map[string]intent.Record)
		snap.Systems[systemID] = records
	}
	records[questionID] = rec
	return nil
}

func vectorData(v *qdrant.VectorOutput) []float32 {
	if v == nil {
		return nil
	}
	if dense := v.GetDense(); dense != nil {
		return dense.GetData()
	}
	return v.GetData() //nolint:staticcheck // older servers only fill the flat field
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ snapshot.Driver = (*Driver)(nil)
