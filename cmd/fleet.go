package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/groundlink/config"
	"github.com/kilianp07/groundlink/core/model"
	"github.com/kilianp07/groundlink/pkg/export"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List known vehicles",
	RunE:  runFleetLs,
}

var fleetLsFormat string

func init() {
	fleetLsCmd.Flags().StringVarP(&fleetLsFormat, "output", "o", "table", "output format: table, json or csv")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost" + cfg.API.Addr + "/api/fleet")
	if err != nil {
		return fmt.Errorf("query fleet api: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Println("failed to close response body:", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fleet api returned %s", resp.Status)
	}
	var vehicles []model.Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&vehicles); err != nil {
		return fmt.Errorf("decode fleet response: %w", err)
	}
	return export.Write(os.Stdout, fleetLsFormat, vehicles)
}
