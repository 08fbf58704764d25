package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	watchAPIAddr  string
	watchInterval time.Duration
)

func init() {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "stream bridge-text updates from a running brovakt serve instance",
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&watchAPIAddr, "addr", "http://localhost"+DefaultHTTPAddr, "address of a running brovakt serve instance")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "poll interval")
	CMD.AddCommand(watchCmd)
}

type bridgeTextResponse struct {
	Text  string `json:"bridge_text"`
	Alarm bool   `json:"alarm_generic"`
}

func runWatch(c *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	alarmColor := color.New(color.FgRed, color.Bold)
	normalColor := color.New(color.FgGreen)

	var last string
	for {
		resp, err := fetchBridgeText(ctx, client, watchAPIAddr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "watch:", err)
		} else if resp.Text != last {
			last = resp.Text
			timestamp := time.Now().Format("15:04:05")
			if resp.Alarm {
				alarmColor.Printf("[%s] %s\n", timestamp, resp.Text)
			} else {
				normalColor.Printf("[%s] %s\n", timestamp, resp.Text)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func fetchBridgeText(ctx context.Context, client *http.Client, addr string) (bridgeTextResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/bridge-text", nil)
	if err != nil {
		return bridgeTextResponse{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return bridgeTextResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return bridgeTextResponse{}, fmt.Errorf("status %s", resp.Status)
	}

	var out bridgeTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return bridgeTextResponse{}, fmt.Errorf("decode bridge-text response: %w", err)
	}
	return out, nil
}
