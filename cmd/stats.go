package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/server"
	"github.com/BioHazard786/tandem/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how busy the relay is",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(ctx context.Context) error {
	cfg, err := loadPeerConfig(config.PeerOptions{})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stats, err := fetchStats(ctx, cfg.StatsURL())
	if err != nil {
		return err
	}

	fmt.Println(ui.StatsTableView(ui.RelayStats{
		Connections: stats.Connections,
		Rooms:       stats.Rooms,
		Waiting:     stats.Waiting,
		InCall:      stats.InCall,
	}))
	return nil
}

func fetchStats(ctx context.Context, url string) (*server.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch stats: unexpected status %s", resp.Status)
	}

	var stats server.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &stats, nil
}
