package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/raffle-service/internal/errs"
	"github.com/psds-microservice/raffle-service/internal/service"
)

type RaffleHandler struct {
	raffles *service.RaffleService
}

func NewRaffleHandler(raffles *service.RaffleService) *RaffleHandler {
	return &RaffleHandler{raffles: raffles}
}

type createRaffleRequest struct {
	Name         string    `json:"name" binding:"required"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	TicketPrice  float64   `json:"ticket_price" binding:"required"`
	TotalTickets int       `json:"total_tickets" binding:"required"`
	StartDate    time.Time `json:"start_date" binding:"required"`
	EndDate      time.Time `json:"end_date" binding:"required"`
}

func (h *RaffleHandler) Create(c *gin.Context) {
	var req createRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	raffle, err := h.raffles.Create(c.Request.Context(), service.CreateRaffleInput{
		Name:         req.Name,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		TicketPrice:  req.TicketPrice,
		TotalTickets: req.TotalTickets,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

func (h *RaffleHandler) List(c *gin.Context) {
	raffles, err := h.raffles.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffles)
}

// Get resolves a raffle by id, falling back to slug so the storefront can
// fetch by its friendly URL through the same route.
func (h *RaffleHandler) Get(c *gin.Context) {
	key := c.Param("id")
	raffle, err := h.raffles.GetByID(c.Request.Context(), key)
	if errors.Is(err, errs.ErrRaffleNotFound) {
		raffle, err = h.raffles.GetBySlug(c.Request.Context(), key)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, raffle)
}

func (h *RaffleHandler) Delete(c *gin.Context) {
	if err := h.raffles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "raffle deleted"})
}
