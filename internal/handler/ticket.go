package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/raffle-service/internal/kafka"
	"github.com/psds-microservice/raffle-service/internal/model"
	"github.com/psds-microservice/raffle-service/internal/notify"
	"github.com/psds-microservice/raffle-service/internal/service"
)

type TicketHandler struct {
	allocator *service.AllocatorService
	payments  *service.PaymentService
	queries   *service.QueryService
	events    kafka.TicketEventProducer
	notify    *notify.Client
}

func NewTicketHandler(
	allocator *service.AllocatorService,
	payments *service.PaymentService,
	queries *service.QueryService,
	events kafka.TicketEventProducer,
	notifier *notify.Client,
) *TicketHandler {
	return &TicketHandler{
		allocator: allocator,
		payments:  payments,
		queries:   queries,
		events:    events,
		notify:    notifier,
	}
}

type reserveRequest struct {
	RaffleID    string `json:"raffle_id" binding:"required"`
	Numbers     []int  `json:"numbers" binding:"required"`
	ClientName  string `json:"client_name" binding:"required"`
	ClientPhone string `json:"client_phone" binding:"required"`
	ClientState string `json:"client_state"`
}

// Reserve handles POST /api/v1/tickets.
func (h *TicketHandler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	res, err := h.allocator.Reserve(c.Request.Context(), service.ReserveRequest{
		RaffleID:    req.RaffleID,
		Numbers:     req.Numbers,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ClientState: req.ClientState,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	numbers := make([]int, 0, len(res.Tickets))
	for _, t := range res.Tickets {
		numbers = append(numbers, t.TicketNumber)
		h.publishEvent("ticket.reserved", t)
	}
	h.notify.SendReservationAsync(notify.ReservationPayload{
		Event:       "ticket.reserved",
		RaffleName:  res.Raffle.Name,
		Numbers:     numbers,
		ClientName:  res.Client.Name,
		ClientPhone: res.Client.Phone,
		TotalPrice:  res.Raffle.TicketPrice * float64(len(numbers)),
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "reservation confirmed",
		"tickets": res.Tickets,
		"client":  res.Client.Name,
	})
}

// MarkPaid handles PATCH /api/v1/tickets/:id/pay.
func (h *TicketHandler) MarkPaid(c *gin.Context) {
	ticket, err := h.payments.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.publishEvent("ticket.paid", *ticket)
	if ticket.Raffle != nil && ticket.Client != nil {
		h.notify.SendReservationAsync(notify.ReservationPayload{
			Event:       "ticket.paid",
			RaffleName:  ticket.Raffle.Name,
			Numbers:     []int{ticket.TicketNumber},
			ClientName:  ticket.Client.Name,
			ClientPhone: ticket.Client.Phone,
			TotalPrice:  ticket.Raffle.TicketPrice,
		})
	}
	c.JSON(http.StatusOK, ticket)
}

// publishEvent fires the Kafka event in its own goroutine with a detached
// timeout context: the event must go out even if the request is cancelled,
// and a wedged broker must never stall the API response.
func (h *TicketHandler) publishEvent(event string, t model.Ticket) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		defer cancel()
		h.events.ProduceTicketEvent(ctx, event, map[string]interface{}{
			"ticket_id":     t.ID,
			"raffle_id":     t.RaffleID,
			"ticket_number": t.TicketNumber,
			"client_id":     t.ClientID,
			"status":        string(t.Status),
		})
	}()
}

// Occupied handles GET /api/v1/tickets/occupied/:raffleId.
func (h *TicketHandler) Occupied(c *gin.Context) {
	numbers, err := h.queries.OccupiedNumbers(c.Request.Context(), c.Param("raffleId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, numbers)
}

// ListByRaffle handles GET /api/v1/tickets/raffle/:raffleId.
func (h *TicketHandler) ListByRaffle(c *gin.Context) {
	tickets, err := h.queries.TicketsByRaffle(c.Request.Context(), c.Param("raffleId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// ticketView enriches a ticket with display fields of its raffle.
type ticketView struct {
	model.Ticket
	RaffleName  string  `json:"raffle_name"`
	RaffleSlug  string  `json:"raffle_slug"`
	TicketPrice float64 `json:"ticket_price"`
}

// SearchByPhone handles GET /api/v1/tickets/search/:phone.
func (h *TicketHandler) SearchByPhone(c *gin.Context) {
	tickets, err := h.queries.FindByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		v := ticketView{Ticket: t}
		if t.Raffle != nil {
			v.RaffleName = t.Raffle.Name
			v.RaffleSlug = t.Raffle.Slug
			v.TicketPrice = t.Raffle.TicketPrice
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, views)
}

// DailySales handles GET /api/v1/tickets/analytics/daily.
func (h *TicketHandler) DailySales(c *gin.Context) {
	buckets, err := h.queries.DailyRevenue(c.Request.Context(), 7)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}
