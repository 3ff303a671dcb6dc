package cmd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/peer"
	"github.com/BioHazard786/tandem/internal/server"
)

func startRelay(t *testing.T) string {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(server.New(&config.Server{SendBuffer: 16, ReadLimit: 64 * 1024}, log).Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestFetchStats(t *testing.T) {
	req := require.New(t)
	wsURL := startRelay(t)

	// Given one peer waiting in a room
	client := peer.NewClient(wsURL)
	req.NoError(client.Connect(context.Background()))
	t.Cleanup(client.Close)
	req.NoError(client.JoinRoom("calm-newt-oar"))

	select {
	case msg := <-client.Incoming():
		req.Equal("room-created", msg.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no room-created")
	}

	// Then the stats endpoint counts it as waiting
	cfg := &config.Peer{ServerURL: wsURL}
	stats, err := fetchStats(context.Background(), cfg.StatsURL())
	req.NoError(err)
	req.Equal(server.Stats{Connections: 1, Rooms: 1, Waiting: 1}, *stats)
}

func TestFetchStats_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)

	_, err := fetchStats(context.Background(), ts.URL+"/stats")
	require.ErrorContains(t, err, "unexpected status")
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["serve"])
	require.True(t, names["join"])
	require.True(t, names["stats"])
}
