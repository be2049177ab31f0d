package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/emissions-globe-service/internal/config"
	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	builtAt := time.Date(2026, 4, 26, 15, 10, 0, 0, time.UTC)
	region := domain.Normalize(domain.RawDataset{
		"OWID_NOR": {DisplayName: "Norway", Values: map[string]any{"2020": 41.0, "2021": 42.5}},
	})["OWID_NOR"]

	msg, err := serializeToMessage(region, builtAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("OWID_NOR"), msg.Key)
	assert.Contains(t, string(msg.Value), `"country_code":"OWID_NOR"`)
	assert.Contains(t, string(msg.Value), `"trend":"increasing"`)

	var decoded domain.RegionTimeSeries
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, region, decoded)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "trend", msg.Headers[0].Key)
	assert.Equal(t, []byte("increasing"), msg.Headers[0].Value)
	assert.Equal(t, "built_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-04-26T15:10:00Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_BuiltAtIsUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	builtAt := time.Date(2026, 4, 26, 16, 10, 0, 0, loc)

	msg, err := serializeToMessage(domain.RegionTimeSeries{RegionCode: "OWID_NOR"}, builtAt)
	require.NoError(t, err)
	assert.Equal(t, []byte("2026-04-26T15:10:00Z"), msg.Headers[1].Value)
}

func TestWriter_PublishEmptyTableIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "unused"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	err := w.Publish(context.Background(), domain.NewTable(nil, time.Now()))
	require.NoError(t, err)
}
