package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// Discord embed accent colors.
const (
	colorCreated   = 3447003  // blue
	colorDestroyed = 15105570 // orange
)

// DiscordNotifier posts instance lifecycle events to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a notifier posting to the given webhook URL.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Timestamp   string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// InstanceCreated posts a creation event.
func (n *DiscordNotifier) InstanceCreated(ctx context.Context, owner *provision.User, inst *provision.Instance) error {
	return n.send(ctx, discordEmbed{
		Title:       "DATABASE CREATED",
		Description: "New database instance created",
		Color:       colorCreated,
		Fields:      instanceFields(owner, inst),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

// InstanceDestroyed posts a deletion event.
func (n *DiscordNotifier) InstanceDestroyed(ctx context.Context, owner *provision.User, inst *provision.Instance) error {
	return n.send(ctx, discordEmbed{
		Title:       "DATABASE DELETED",
		Description: "Database instance deleted",
		Color:       colorDestroyed,
		Fields:      instanceFields(owner, inst),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func instanceFields(owner *provision.User, inst *provision.Instance) []discordField {
	user := fmt.Sprintf("%d", inst.OwnerID)
	if owner != nil {
		user = fmt.Sprintf("%s (%d)", owner.Email, owner.ID)
	}
	return []discordField{
		{Name: "Name", Value: inst.Name, Inline: true},
		{Name: "Engine", Value: string(inst.Engine), Inline: true},
		{Name: "User", Value: user, Inline: true},
	}
}

func (n *DiscordNotifier) send(ctx context.Context, embed discordEmbed) error {
	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected with status %d", resp.StatusCode)
	}
	return nil
}
