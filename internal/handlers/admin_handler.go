package handlers

import (
	"net/http"
	"strconv"

	"festival-ledger/internal/ledger"
	"festival-ledger/internal/services"
	"festival-ledger/models"
	"festival-ledger/utils"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

const (
	defaultEventPage = 100
	maxEventPage     = 1000
)

type AdminHandler struct {
	base
	archive   *services.Archiver
	projector *services.Projector
	redis     *redis.Client
}

// NewAdminHandler wires the ledger read side. archive, projector and
// redisClient may be nil when those sinks are disabled.
func NewAdminHandler(l *ledger.Ledger, archive *services.Archiver, projector *services.Projector, redisClient *redis.Client) *AdminHandler {
	return &AdminHandler{
		base:      newBase(l, nil),
		archive:   archive,
		projector: projector,
		redis:     redisClient,
	}
}

// Commission - Accumulated commission and the configured rate
func (h *AdminHandler) Commission(e *core.RequestEvent) error {
	return e.JSON(http.StatusOK, map[string]any{
		"total":    h.ledger.TotalCommission(),
		"rate":     h.ledger.CommissionRate(),
		"treasury": h.ledger.Treasury(),
	})
}

func eventPage(e *core.RequestEvent) (uint64, int, error) {
	q := e.Request.URL.Query()

	var after uint64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, 0, apis.NewBadRequestError("Invalid after", nil)
		}
		after = n
	}

	limit := defaultEventPage
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, apis.NewBadRequestError("Invalid limit", nil)
		}
		limit = min(n, maxEventPage)
	}
	return after, limit, nil
}

// Events - Committed ledger events after a sequence cursor
func (h *AdminHandler) Events(e *core.RequestEvent) error {
	after, limit, err := eventPage(e)
	if err != nil {
		return err
	}

	events := h.ledger.Events(after, limit)
	return e.JSON(http.StatusOK, eventsResponse(events, h.ledger.LastSeq()))
}

// ArchivedEvents - Events from the persistent archive. ?run= selects the
// events of an earlier process; the default is the current one.
func (h *AdminHandler) ArchivedEvents(e *core.RequestEvent) error {
	if h.archive == nil {
		return apis.NewNotFoundError("Event archive is disabled", nil)
	}
	after, limit, err := eventPage(e)
	if err != nil {
		return err
	}

	run := e.Request.URL.Query().Get("run")
	if run == "" {
		run = h.archive.RunID()
	}

	events, err := h.archive.Since(run, after, limit)
	if err != nil {
		return apis.NewBadRequestError("Failed to load archived events", err)
	}
	resp := eventsResponse(events, 0)
	resp["run"] = run
	return e.JSON(http.StatusOK, resp)
}

func eventsResponse(events []models.LedgerEvent, lastSeq uint64) map[string]any {
	next := uint64(0)
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	resp := map[string]any{
		"events": events,
		"next":   next,
	}
	if lastSeq > 0 {
		resp["last_seq"] = lastSeq
	}
	return resp
}

// Health - Redis reachability and read model lag
func (h *AdminHandler) Health(e *core.RequestEvent) error {
	resp := map[string]any{
		"status":   "healthy",
		"last_seq": h.ledger.LastSeq(),
	}

	if h.redis != nil {
		if err := utils.RedisHealthCheck(h.redis); err != nil {
			return e.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
	}

	if h.projector != nil {
		if projected, err := h.projector.LastSeq(e.Request.Context()); err == nil {
			resp["projected_seq"] = projected
		}
	}

	return e.JSON(http.StatusOK, resp)
}
