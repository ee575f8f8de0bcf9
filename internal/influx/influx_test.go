package influx

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agrosync/fieldops/internal/config"
	"github.com/agrosync/fieldops/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var placedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func unreachableConfig(t *testing.T) config.InfluxConfig {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	server.Close()

	return config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       u.Hostname(),
		Port:       u.Port(),
		Org:        "agrosync",
		Bucket:     "field-activity",
		BackupPath: filepath.Join(t.TempDir(), "nested", "activity.lp.gz"),
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.Error(t, m.WritePoint(MarkerPoint(core.Marker{})))
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	cfg := unreachableConfig(t)
	m := NewManager(zerolog.Nop(), cfg)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	require.NoError(t, m.MarkerPlaced(context.Background(), core.Marker{
		UserID:    "grower-1",
		SessionID: "s-1",
		Latitude:  11.0168,
		Longitude: 76.9558,
		Order:     2,
		AreaName:  "Area 2",
		CreatedAt: placedAt,
	}))
	require.NoError(t, m.Close())

	f, err := os.Open(cfg.BackupPath)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := string(data)
	assert.Contains(t, line, "marker_placed,session_id=s-1,user_id=grower-1 ")
	assert.Contains(t, line, "marker_order=2i")
	assert.Contains(t, line, `area_name="Area 2"`)
	assert.Contains(t, line, "latitude=11.0168")
}

func TestSessionPoint(t *testing.T) {
	end := placedAt.Add(90 * time.Minute)
	p := SessionPoint(core.Session{ID: "s-1", UserID: "u", CreatedAt: placedAt, EndTime: &end}, 4)

	line := influxdb2_write.PointToLineProtocol(p, time.Second)
	assert.Contains(t, line, "session_completed,session_id=s-1,user_id=u ")
	assert.Contains(t, line, "duration_seconds=5400")
	assert.Contains(t, line, "markers=4i")
	assert.Equal(t, end, p.Time())
}

func TestSessionPoint_NoEndTime(t *testing.T) {
	p := SessionPoint(core.Session{ID: "s-1", CreatedAt: placedAt}, 0)
	assert.Equal(t, placedAt, p.Time())
	line := influxdb2_write.PointToLineProtocol(p, time.Second)
	assert.NotContains(t, line, "duration_seconds")
}

func TestClose_Idempotent(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
}
