package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/onvent/event-booking/internal/domain"
	"github.com/onvent/event-booking/internal/ledger"
	"github.com/onvent/event-booking/internal/metrics"
	"github.com/onvent/event-booking/internal/render"
	"github.com/onvent/event-booking/internal/service"
)

// BookingAPI is the service surface the booking endpoints call. The concrete
// implementation is *service.BookingService; tests substitute a fake.
type BookingAPI interface {
	Book(ctx context.Context, in service.BookInput) (service.BookResult, error)
	Cancel(ctx context.Context, in service.CancelInput) (service.CancelResult, error)
	CheckAvailability(ctx context.Context, eventID, ticketTypeID uint64) (ledger.Availability, error)
	ListUserTickets(ctx context.Context, userID uint64) ([]domain.Ticket, error)
	ListEventTickets(ctx context.Context, callerID uint64, role domain.Role, eventID uint64) ([]domain.Ticket, error)
	GetTicketForUser(ctx context.Context, callerID uint64, role domain.Role, ticketID uint64) (domain.Ticket, domain.Event, error)
}

// Availability responses may be served from Redis for this long. The cache is
// advisory; bookings always re-check under the pool lock.
const availabilityCacheTTL = 3 * time.Second

// BookingHandler bundles dependencies for the booking endpoints. Cache may be
// nil, which disables availability caching.
type BookingHandler struct {
	Svc   BookingAPI
	Users UserStore
	Cache *redis.Client
}

func NewBookingHandler(svc BookingAPI, users UserStore, cache *redis.Client) *BookingHandler {
	return &BookingHandler{Svc: svc, Users: users, Cache: cache}
}

type bookReq struct {
	EventID      uint64 `json:"event_id"`
	TicketTypeID uint64 `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
}

type availabilityResp struct {
	EventID      uint64 `json:"event_id"`
	TicketTypeID uint64 `json:"ticket_type_id,omitempty"`
	Capacity     int    `json:"capacity"`
	Booked       int    `json:"booked"`
	Available    int    `json:"available"`
}

// Book handles POST /v1/bookings.
func (h *BookingHandler) Book(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	res, err := h.Svc.Book(c.Request().Context(), service.BookInput{
		UserID:       uid,
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		Quantity:     req.Quantity,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCapacity) {
			metrics.BookingsRejectedTotal.Inc()
		}
		return bookingError(c, err)
	}
	metrics.BookingsTotal.Inc()
	h.invalidateAvailability(c.Request().Context(), res.Ticket.EventID, res.Ticket.TicketTypeID)

	return c.JSON(http.StatusCreated, echo.Map{
		"ticket":       res.Ticket,
		"availability": res.Availability,
	})
}

// Cancel handles DELETE /v1/tickets/:id.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	res, err := h.Svc.Cancel(c.Request().Context(), service.CancelInput{
		UserID:   uid,
		Role:     callerRole(c),
		TicketID: ticketID,
	})
	if err != nil {
		return bookingError(c, err)
	}
	metrics.CancellationsTotal.Inc()
	h.invalidateAvailability(c.Request().Context(), res.Ticket.EventID, res.Ticket.TicketTypeID)

	return c.JSON(http.StatusOK, echo.Map{
		"ticket":       res.Ticket,
		"availability": res.Availability,
	})
}

// ListMine handles GET /v1/tickets.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tickets, err := h.Svc.ListUserTickets(c.Request().Context(), uid)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// ListForEvent handles GET /v1/events/:id/tickets (organizer only).
func (h *BookingHandler) ListForEvent(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	tickets, err := h.Svc.ListEventTickets(c.Request().Context(), uid, callerRole(c), eventID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// Document handles GET /v1/tickets/:id/document and returns the plain-text
// ticket confirmation for download or printing.
func (h *BookingHandler) Document(c echo.Context) error {
	uid, ok := callerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx := c.Request().Context()
	ticket, ev, err := h.Svc.GetTicketForUser(ctx, uid, callerRole(c), ticketID)
	if err != nil {
		return bookingError(c, err)
	}
	holder, err := h.Users.GetUser(ctx, ticket.UserID)
	if err != nil {
		return bookingError(c, err)
	}

	doc := render.TicketDocument{
		TicketID:      ticket.ID,
		Code:          ticket.Code,
		HolderName:    holder.Name,
		HolderEmail:   holder.Email,
		EventID:       ev.ID,
		EventTitle:    ev.Title,
		EventLocation: ev.Location,
		StartsAt:      ev.StartsAt.UTC().Format(time.RFC3339),
		Quantity:      ticket.Quantity,
		TotalCents:    ticket.TotalCents(),
		PurchasedAt:   ticket.PurchasedAt.UTC().Format(time.RFC3339),
	}
	return c.String(http.StatusOK, render.Confirmation(doc))
}

// Availability handles GET /v1/events/:id/availability with an optional
// ?ticket_type_id= query parameter. Responses may be a few seconds stale when
// the Redis cache is on.
func (h *BookingHandler) Availability(c echo.Context) error {
	eventID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var ticketTypeID uint64
	if raw := c.QueryParam("ticket_type_id"); raw != "" {
		ticketTypeID, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket_type_id"})
		}
	}

	ctx := c.Request().Context()
	key := availabilityKey(eventID, ticketTypeID)
	if h.Cache != nil {
		if cached, err := h.Cache.Get(ctx, key).Result(); err == nil {
			return c.JSONBlob(http.StatusOK, []byte(cached))
		}
	}

	avail, err := h.Svc.CheckAvailability(ctx, eventID, ticketTypeID)
	if err != nil {
		return bookingError(c, err)
	}
	resp := availabilityResp{
		EventID:      eventID,
		TicketTypeID: ticketTypeID,
		Capacity:     avail.Capacity,
		Booked:       avail.Booked,
		Available:    avail.Available,
	}
	if h.Cache != nil {
		if body, err := json.Marshal(resp); err == nil {
			h.Cache.Set(ctx, key, body, availabilityCacheTTL)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) invalidateAvailability(ctx context.Context, eventID, ticketTypeID uint64) {
	if h.Cache == nil {
		return
	}
	h.Cache.Del(ctx, availabilityKey(eventID, 0))
	if ticketTypeID != 0 {
		h.Cache.Del(ctx, availabilityKey(eventID, ticketTypeID))
	}
}

func availabilityKey(eventID, ticketTypeID uint64) string {
	return "avail:" + strconv.FormatUint(eventID, 10) + ":" + strconv.FormatUint(ticketTypeID, 10)
}

// bookingError translates the domain error taxonomy into HTTP statuses.
func bookingError(c echo.Context, err error) error {
	var capErr *domain.CapacityError
	switch {
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "insufficient_capacity",
			"message":   capErr.Error(),
			"available": capErr.Available,
			"requested": capErr.Requested,
		})
	case errors.Is(err, domain.ErrInsufficientCapacity):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient_capacity", "message": err.Error()})
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidTicketType):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": err.Error()})
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrTicketTypeNotFound),
		errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": err.Error()})
	case errors.Is(err, domain.ErrEventAlreadyOccurred):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "event_occurred", "message": err.Error()})
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already_cancelled", "message": err.Error()})
	case errors.Is(err, domain.ErrNotAuthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": err.Error()})
	case errors.Is(err, domain.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "unavailable", "message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "internal error"})
	}
}

// callerID reads the authenticated user ID set by the JWT middleware. JWT
// numeric claims decode as float64; issued tokens may also carry the subject
// as a string.
func callerID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil
	}
	return 0, false
}

func callerRole(c echo.Context) domain.Role {
	if s, ok := c.Get("role").(string); ok {
		return domain.Role(s)
	}
	return domain.RoleCustomer
}

func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
