package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/channel-music/channel/internal/config"
	"github.com/channel-music/channel/internal/models"
)

// Prune asks the running server to remove stored files no song refers to.
func Prune(cfg *config.Config) error {
	url := fmt.Sprintf("http://%s/admin/prune", cfg.AdminAddr)
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(cfg.AdminUser, cfg.AdminPassword)

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call admin API: %w. Is the server running?", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to prune (Status: %d): %s", resp.StatusCode, string(body))
	}

	var result models.PruneResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Removed %d orphaned files\n", result.Removed)
	return nil
}
