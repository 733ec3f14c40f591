package alerts

import (
	"context"
	"fmt"

	"github.com/notifoxhq/notifox/pkg/notifox"
)

// AlertSender is the part of *notifox.Client the notifier needs.
type AlertSender interface {
	SendAlert(ctx context.Context, req notifox.AlertRequest) (*notifox.AlertResponse, error)
}

// NotifoxNotifier texts budget alerts to a Notifox audience.
type NotifoxNotifier struct {
	sender   AlertSender
	audience string
	channel  string
}

// NewNotifoxNotifier creates a notifier that delivers to audience over channel
// ("" lets the API choose).
func NewNotifoxNotifier(sender AlertSender, audience, channel string) *NotifoxNotifier {
	return &NotifoxNotifier{sender: sender, audience: audience, channel: channel}
}

func (n *NotifoxNotifier) Name() string { return "notifox" }

func (n *NotifoxNotifier) Send(ctx context.Context, alert Alert) error {
	_, err := n.sender.SendAlert(ctx, notifox.AlertRequest{
		Audience: n.audience,
		Alert:    alert.Summary(),
		Channel:  n.channel,
	})
	if err != nil {
		return fmt.Errorf("send notifox alert: %w", err)
	}
	return nil
}
