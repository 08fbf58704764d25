package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brovakt/canal/engine"
)

var (
	vesselsAPIAddr string
	vesselsOutput  string
)

func init() {
	vesselsCmd := &cobra.Command{
		Use:   "vessels",
		Short: "inspect vessels tracked by a running brovakt serve instance",
	}
	vesselsCmd.PersistentFlags().StringVar(&vesselsAPIAddr, "addr", "http://localhost"+DefaultHTTPAddr, "address of a running brovakt serve instance")

	lsCmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "list tracked vessels",
		RunE:    runVesselsLS,
	}
	lsCmd.Flags().StringVarP(&vesselsOutput, "output", "o", "table", "output format: table, yaml, json")
	vesselsCmd.AddCommand(lsCmd)
	CMD.AddCommand(vesselsCmd)
}

func runVesselsLS(c *cobra.Command, args []string) error {
	vessels, err := fetchVessels(vesselsAPIAddr)
	if err != nil {
		return err
	}
	switch vesselsOutput {
	case "table":
		printVesselsTable(vessels)
		return nil
	case "yaml":
		out, err := yaml.Marshal(vessels)
		if err != nil {
			return fmt.Errorf("marshal vessels as yaml: %w", err)
		}
		fmt.Print(string(out))
		return nil
	case "json":
		enc := json.NewEncoder(c.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(vessels)
	default:
		return fmt.Errorf("unknown output format: %s (use: table, yaml, json)", vesselsOutput)
	}
}

func fetchVessels(addr string) ([]engine.VesselSnapshot, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/vessels")
	if err != nil {
		return nil, fmt.Errorf("fetch vessels from %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch vessels from %s: status %s", addr, resp.Status)
	}

	var vessels []engine.VesselSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&vessels); err != nil {
		return nil, fmt.Errorf("decode vessels response: %w", err)
	}
	return vessels, nil
}

func printVesselsTable(vessels []engine.VesselSnapshot) {
	if len(vessels) == 0 {
		fmt.Println("No vessels tracked")
		return
	}

	tbl := table.New("MMSI", "Name", "Status", "SOG", "Target", "Current", "ETA (min)")
	for _, v := range vessels {
		eta := "-"
		if v.ETAMinutes != nil {
			eta = fmt.Sprintf("%.1f", *v.ETAMinutes)
		}
		name := v.Name
		if name == "" {
			name = "-"
		}
		tbl.AddRow(v.MMSI, name, string(v.Status), fmt.Sprintf("%.1f", v.SOG), v.TargetBridge, v.CurrentBridge, eta)
	}
	tbl.Print()
}
