package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jhango/pricesync/internal/pricing"
)

const settingsAssetKey = "config/settings_data.json"

// MaxDiamondSlots is the number of named diamond slots the theme carries.
const MaxDiamondSlots = 20

// ThemeSettings is the "current" section of the theme's settings_data.json.
type ThemeSettings map[string]interface{}

// GetThemeSettings fetches the current theme settings. When no theme id is
// configured the store's main theme is discovered first.
func (c *Client) GetThemeSettings(ctx context.Context) (ThemeSettings, error) {
	themeID, err := c.resolveThemeID(ctx)
	if err != nil {
		return nil, err
	}

	settings, _, err := c.fetchSettingsData(ctx, themeID)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateThemeSettings applies updates to the theme's current settings with
// a read-modify-write of the settings asset.
func (c *Client) UpdateThemeSettings(ctx context.Context, updates map[string]interface{}) error {
	themeID, err := c.resolveThemeID(ctx)
	if err != nil {
		return err
	}

	current, full, err := c.fetchSettingsData(ctx, themeID)
	if err != nil {
		return err
	}

	for key, value := range updates {
		current[key] = value
	}
	full["current"] = map[string]interface{}(current)

	value, err := json.Marshal(full)
	if err != nil {
		return fmt.Errorf("marshal settings data: %w", err)
	}

	resp, err := c.putJSON(ctx, fmt.Sprintf("/themes/%d/assets.json", themeID), map[string]interface{}{
		"asset": map[string]string{
			"key":   settingsAssetKey,
			"value": string(value),
		},
	})
	if err != nil {
		return fmt.Errorf("write theme settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: theme settings update returned %d", ErrRemoteWrite, resp.StatusCode)
	}

	c.logger.WithField("keys", len(updates)).Info("Theme settings updated")
	return nil
}

// resolveThemeID returns the configured theme id, discovering the store's
// main theme when none is set.
func (c *Client) resolveThemeID(ctx context.Context) (int64, error) {
	if c.themeID != 0 {
		return c.themeID, nil
	}

	resp, err := c.get(ctx, "/themes.json", "")
	if err != nil {
		return 0, fmt.Errorf("list themes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("list themes returned %d", resp.StatusCode)
	}

	var payload struct {
		Themes []struct {
			ID   int64  `json:"id"`
			Role string `json:"role"`
		} `json:"themes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("parse themes response: %w", err)
	}

	for _, theme := range payload.Themes {
		if theme.Role == "main" {
			c.themeID = theme.ID
			return theme.ID, nil
		}
	}
	return 0, fmt.Errorf("no main theme found")
}

// fetchSettingsData reads the settings asset, returning both the "current"
// section and the full document for read-modify-write updates.
func (c *Client) fetchSettingsData(ctx context.Context, themeID int64) (ThemeSettings, map[string]interface{}, error) {
	query := url.Values{"asset[key]": {settingsAssetKey}}.Encode()

	resp, err := c.get(ctx, fmt.Sprintf("/themes/%d/assets.json", themeID), query)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch theme settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch theme settings returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read theme settings: %w", err)
	}

	var payload struct {
		Asset struct {
			Value string `json:"value"`
		} `json:"asset"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("parse asset response: %w", err)
	}

	var full map[string]interface{}
	if err := json.Unmarshal([]byte(payload.Asset.Value), &full); err != nil {
		return nil, nil, fmt.Errorf("parse settings data: %w", err)
	}

	settings := ThemeSettings{}
	if current, ok := full["current"].(map[string]interface{}); ok {
		settings = ThemeSettings(current)
	}
	return settings, full, nil
}

// DiamondSlots extracts the named diamond price table from theme settings.
// Slots are numbered diamond_1..diamond_20; the table ends at the first
// slot without a name.
func DiamondSlots(settings ThemeSettings) []pricing.DiamondSlot {
	var slots []pricing.DiamondSlot
	for i := 1; i <= MaxDiamondSlots; i++ {
		name := settingString(settings, fmt.Sprintf("diamond_%d_name", i))
		if name == "" {
			break
		}
		slots = append(slots, pricing.DiamondSlot{
			Name:          name,
			PricePerCarat: settingFloat(settings, fmt.Sprintf("diamond_%d_price_per_carat", i)),
		})
	}
	return slots
}

// GSTPercentage reads the theme's GST rate, defaulting to 3 percent.
func GSTPercentage(settings ThemeSettings) float64 {
	if _, ok := settings["gst_percentage"]; !ok {
		return 3
	}
	return settingFloat(settings, "gst_percentage")
}

// GoldRate reads the theme's displayed gold rate.
func GoldRate(settings ThemeSettings) float64 {
	return settingFloat(settings, "gold_rate")
}

func settingString(settings ThemeSettings, key string) string {
	if s, ok := settings[key].(string); ok {
		return s
	}
	return ""
}

// settingFloat reads a numeric theme setting, which the theme editor may
// store as either a number or a string.
func settingFloat(settings ThemeSettings, key string) float64 {
	switch v := settings[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
