package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"festival-ledger/models"

	"github.com/redis/go-redis/v9"
)

const (
	keyActiveFestivals = "festivals:active"
	keyMarket          = "market:for_sale"
	keyCommission      = "ledger:commission"
	keyLastSeq         = "ledger:last_seq"
)

func ticketKey(id uint64) string {
	return fmt.Sprintf("ticket:%d", id)
}

func festivalKey(id uint64) string {
	return fmt.Sprintf("festival:%d", id)
}

func ownerKey(account string) string {
	return fmt.Sprintf("owner:%s:tickets", account)
}

func roleKey(role string) string {
	return fmt.Sprintf("roles:%s", role)
}

// Projector maintains a Redis read model of the ledger for external
// readers. Each event is applied in one MULTI/EXEC transaction together with
// the last applied sequence number.
type Projector struct {
	*eventQueue
	Redis *redis.Client
}

func NewProjector(redisClient *redis.Client, buffer int) *Projector {
	p := &Projector{Redis: redisClient}
	p.eventQueue = newEventQueue("projector", buffer, p.Apply)
	return p
}

func (p *Projector) Apply(ctx context.Context, ev models.LedgerEvent) error {
	_, err := p.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch ev.Kind {
		case models.EventFestivalCreated:
			pipe.HSet(ctx, festivalKey(ev.FestivalID), "organizer", ev.Actor, "price", ev.Amount.String(), "issued", 0)
			pipe.SAdd(ctx, keyActiveFestivals, ev.FestivalID)

		case models.EventFestivalDeactivated:
			pipe.SRem(ctx, keyActiveFestivals, ev.FestivalID)

		case models.EventTicketMinted:
			pipe.HSet(ctx, ticketKey(ev.TicketID),
				"festival_id", ev.FestivalID,
				"owner", ev.To,
				"purchase_price", ev.Amount.String(),
				"for_sale", 0,
			)
			pipe.SAdd(ctx, ownerKey(ev.To), ev.TicketID)
			pipe.HIncrBy(ctx, festivalKey(ev.FestivalID), "issued", 1)

		case models.EventTicketTransferred:
			pipe.HSet(ctx, ticketKey(ev.TicketID), "owner", ev.To, "for_sale", 0, "selling_price", 0)
			pipe.SRem(ctx, ownerKey(ev.From), ev.TicketID)
			pipe.SAdd(ctx, ownerKey(ev.To), ev.TicketID)
			pipe.ZRem(ctx, keyMarket, ev.TicketID)

		case models.EventTicketListed:
			pipe.HSet(ctx, ticketKey(ev.TicketID), "for_sale", 1, "selling_price", ev.Amount.String())
			// NX keeps a relisted ticket at its original market position.
			pipe.ZAddNX(ctx, keyMarket, redis.Z{Score: float64(ev.Seq), Member: ev.TicketID})

		case models.EventTicketUnlisted:
			pipe.HSet(ctx, ticketKey(ev.TicketID), "for_sale", 0, "selling_price", 0)
			pipe.ZRem(ctx, keyMarket, ev.TicketID)

		case models.EventRoleGranted:
			pipe.SAdd(ctx, roleKey(ev.Role), ev.To)

		case models.EventRoleRevoked:
			pipe.SRem(ctx, roleKey(ev.Role), ev.From)

		case models.EventCommissionCredited:
			pipe.IncrBy(ctx, keyCommission, ev.Amount.IntPart())
		}

		pipe.Set(ctx, keyLastSeq, ev.Seq, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("project %s #%d: %w", ev.Kind, ev.Seq, err)
	}
	return nil
}

// LastSeq is the sequence number of the newest projected event.
func (p *Projector) LastSeq(ctx context.Context) (uint64, error) {
	v, err := p.Redis.Get(ctx, keyLastSeq).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// MarketTickets returns projected listed ticket ids in listing order.
func (p *Projector) MarketTickets(ctx context.Context) ([]uint64, error) {
	members, err := p.Redis.ZRange(ctx, keyMarket, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("market member %q: %w", m, err)
		}
		out = append(out, id)
	}
	return out, nil
}
