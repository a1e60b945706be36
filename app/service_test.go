package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsync/config"
	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/factory"
	"github.com/kilianp07/evsync/core/journal"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/remote"
	"github.com/kilianp07/evsync/core/syncengine"
	journalstore "github.com/kilianp07/evsync/infra/journal"
	"github.com/kilianp07/evsync/infra/ochp"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Sync: syncengine.Config{
			AdapterID:          "app-test",
			ServiceCheckEvery:  10 * time.Millisecond,
			StatusFlushEvery:   10 * time.Millisecond,
			StatusRefreshEvery: time.Hour,
			RequestTimeout:     time.Second,
		},
		Remote: ochp.Config{BaseURL: "http://localhost:0"},
	}
	cfg.SetDefaults()
	return cfg
}

func TestServiceRunsEngine(t *testing.T) {
	client := remote.NewMockClient()
	svc, err := NewWithClient(testConfig(), client)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	ev := model.EVSE{ID: "DE*ABC*E1"}
	a, err := svc.Engine.AddStaticData(context.Background(), model.Single(ev), syncengine.Enqueue)
	require.NoError(t, err)
	assert.Equal(t, ack.KindEnqueued, a.Kind)

	_, err = svc.Engine.UpdateStatus(context.Background(), []model.EVSEStatusUpdate{{
		EVSE: ev,
		New:  model.EVSEStatus{Type: model.StatusCharging, Timestamp: time.Now()},
	}}, syncengine.Enqueue)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(client.FullSets()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(client.Statuses()) == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.NoError(t, svc.Close())
	a, err = svc.Engine.AddStaticData(context.Background(), model.Single(ev), syncengine.Enqueue)
	require.NoError(t, err)
	assert.Equal(t, ack.KindOutOfService, a.Kind)
}

func TestNewRejectsBadRemote(t *testing.T) {
	cfg := testConfig()
	cfg.Remote.BaseURL = ""
	_, err := New(cfg)
	assert.ErrorContains(t, err, "remote client")
}

func TestNewRejectsUnknownSink(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	_, err := NewWithClient(cfg, remote.NewMockClient())
	assert.ErrorContains(t, err, "outcome sinks")
}

func TestServiceWithFeedHasStatusSource(t *testing.T) {
	cfg := testConfig()
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.SetDefaults()
	svc, err := NewWithClient(cfg, remote.NewMockClient())
	require.NoError(t, err)
	defer svc.Close()

	a := svc.Engine.RefreshStatus(context.Background())
	assert.Equal(t, ack.KindNoOperation, a.Kind, "empty registry view")
}

func TestServiceJournalsOutcomes(t *testing.T) {
	cfg := testConfig()
	cfg.Journal = journalstore.Config{Backend: journalstore.BackendSQLite, Path: filepath.Join(t.TempDir(), "outcomes.db")}
	client := remote.NewMockClient()
	svc, err := NewWithClient(cfg, client)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	_, err = svc.Engine.AddStaticData(context.Background(), model.Single(model.EVSE{ID: "DE*ABC*E1"}), syncengine.Enqueue)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		entries, err := svc.journal.Query(context.Background(), journal.Query{Path: "full_set"})
		return err == nil && len(entries) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NoError(t, svc.Close())
}

func TestNewRejectsBadJournal(t *testing.T) {
	cfg := testConfig()
	cfg.Journal = journalstore.Config{Backend: "csv", Path: "x"}
	_, err := NewWithClient(cfg, remote.NewMockClient())
	assert.ErrorContains(t, err, "journal")
}
