package services

import (
	"context"
	"fmt"

	"festival-ledger/config"
	"festival-ledger/models"

	pubnub "github.com/pubnub/go/v7"
)

// Publisher sends a message to a realtime channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(cfg *config.Config) Publisher {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnCfg.PublishKey = cfg.PubNubPublishKey
	pnCfg.SubscribeKey = cfg.PubNubSubscribeKey
	pnCfg.SecretKey = cfg.PubNubSecretKey

	return &pubnubPublisher{pn: pubnub.NewPubNub(pnCfg)}
}

func (p *pubnubPublisher) Publish(ctx context.Context, channel string, message any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		ShouldStore(true).
		Execute()
	if err != nil {
		return fmt.Errorf("pubnub publish to %s: %w", channel, err)
	}
	return nil
}

// Notifier fans ledger events out to UIs: every event goes to the ledger
// channel, and events touching an account also go to that account's
// user-<account> channel.
type Notifier struct {
	*eventQueue
	publisher Publisher
	channel   string
}

func NewNotifier(publisher Publisher, channel string, buffer int) *Notifier {
	n := &Notifier{publisher: publisher, channel: channel}
	n.eventQueue = newEventQueue("notifier", buffer, n.Deliver)
	return n
}

// Deliver publishes one event synchronously.
func (n *Notifier) Deliver(ctx context.Context, ev models.LedgerEvent) error {
	msg := notification(ev)
	if err := n.publisher.Publish(ctx, n.channel, msg); err != nil {
		return err
	}
	for _, account := range accountsOf(ev) {
		if err := n.publisher.Publish(ctx, UserChannel(account), msg); err != nil {
			return err
		}
	}
	return nil
}

// UserChannel is the per-account channel a wallet UI subscribes to.
func UserChannel(account string) string {
	return fmt.Sprintf("user-%s", account)
}

func notification(ev models.LedgerEvent) map[string]any {
	msg := map[string]any{
		"type":        "ledger_event",
		"seq":         ev.Seq,
		"kind":        ev.Kind,
		"occurred_at": ev.OccurredAt,
	}
	if ev.FestivalID != 0 {
		msg["festival_id"] = ev.FestivalID
	}
	if ev.TicketID != 0 {
		msg["ticket_id"] = ev.TicketID
	}
	if ev.Role != "" {
		msg["role"] = ev.Role
	}
	if !ev.Amount.IsZero() {
		msg["amount"] = ev.Amount.String()
	}
	return msg
}

func accountsOf(ev models.LedgerEvent) []string {
	var out []string
	for _, a := range []string{ev.Actor, ev.From, ev.To} {
		if a == "" {
			continue
		}
		seen := false
		for _, b := range out {
			if a == b {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, a)
		}
	}
	return out
}
