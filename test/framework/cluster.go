package framework

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/berth/pkg/api"
	"github.com/cuemby/berth/pkg/client"
	"github.com/cuemby/berth/pkg/events"
	"github.com/cuemby/berth/pkg/reconciler"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/stretchr/testify/require"
)

// ClusterConfig tunes an in-process berth deployment
type ClusterConfig struct {
	// Backend defaults to bolt in a temporary directory
	Backend storage.Backend

	// DrainInterval enables the drain monitor when positive
	DrainInterval time.Duration
}

// Cluster is a full berth server running in the test process: a store, the
// event broker, the drain monitor and the HTTP API behind httptest
type Cluster struct {
	Store  storage.Store
	Broker *events.Broker
	Client *client.Client

	server *httptest.Server
	recon  *reconciler.Reconciler
}

// StartCluster starts a cluster and registers its teardown with t.Cleanup
func StartCluster(t testing.TB, cfg ClusterConfig) *Cluster {
	t.Helper()

	if cfg.Backend == "" {
		cfg.Backend = storage.BackendBolt
	}
	store, err := storage.Open(storage.Config{
		Backend: cfg.Backend,
		DataDir: t.TempDir(),
	})
	require.NoError(t, err)

	c := &Cluster{
		Store:  store,
		Broker: events.NewBroker(),
	}
	c.Broker.Start()

	if cfg.DrainInterval > 0 {
		c.recon = reconciler.NewReconciler(store, c.Broker, cfg.DrainInterval)
		c.recon.Start()
	}

	srv := api.NewServer(store, scheduler.NewScheduler(), c.Broker, api.Options{})
	c.server = httptest.NewServer(srv.Handler())

	c.Client, err = client.NewClient(c.server.URL)
	require.NoError(t, err)

	t.Cleanup(c.Stop)
	return c
}

// URL returns the API base URL
func (c *Cluster) URL() string {
	return c.server.URL
}

// Stop tears the cluster down in reverse start order
func (c *Cluster) Stop() {
	_ = c.Client.Close()
	c.server.Close()
	if c.recon != nil {
		c.recon.Stop()
	}
	c.Broker.Stop()
	_ = c.Store.Close()
}
