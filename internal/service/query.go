package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/raffle-service/internal/errs"
	"github.com/psds-microservice/raffle-service/internal/model"
	"gorm.io/gorm"
)

// QueryService is the read side of the allocation engine: occupied numbers,
// ticket search, revenue rollups. It never mutates ticket rows and runs
// outside the allocator's transactions, so results may trail an in-flight
// reservation; the authoritative conflict check happens at reservation
// commit, not at display time.
type QueryService struct {
	db *gorm.DB
}

func NewQueryService(db *gorm.DB) *QueryService {
	return &QueryService{db: db}
}

// OccupiedNumbers returns every ticket number with a RESERVED or PAID
// ticket for the raffle. The storefront treats these as unselectable.
func (s *QueryService) OccupiedNumbers(ctx context.Context, raffleID string) ([]int, error) {
	numbers := make([]int, 0)
	if _, err := uuid.Parse(raffleID); err != nil {
		return numbers, nil
	}
	err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("raffle_id = ? AND status IN ?", raffleID,
			[]model.TicketStatus{model.TicketStatusReserved, model.TicketStatusPaid}).
		Pluck("ticket_number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// TicketsByRaffle lists every ticket of a raffle with its client, ticket
// number ascending. Used by the admin dashboard.
func (s *QueryService) TicketsByRaffle(ctx context.Context, raffleID string) ([]model.Ticket, error) {
	tickets := make([]model.Ticket, 0)
	if _, err := uuid.Parse(raffleID); err != nil {
		return tickets, nil
	}
	err := s.db.WithContext(ctx).
		Where("raffle_id = ?", raffleID).
		Preload("Client").
		Order("ticket_number ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// FindByPhone matches tickets whose client phone contains the digits of the
// given phone. Matching is deliberately loose so that country codes and
// dashes in either the stored or the queried number still match.
func (s *QueryService) FindByPhone(ctx context.Context, phone string) ([]model.Ticket, error) {
	digits := stripNonDigits(phone)
	if digits == "" {
		return nil, errs.Validation("phone must contain at least one digit")
	}

	var tickets []model.Ticket
	err := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Joins("JOIN clients ON clients.id = tickets.client_id").
		Where("clients.phone LIKE ?", "%"+digits+"%").
		Preload("Raffle").
		Preload("Client").
		Order("tickets.ticket_number ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// RevenueBucket is one calendar day of ticket sales.
type RevenueBucket struct {
	Day   string  `json:"day"`
	Total float64 `json:"total"`
}

// DailyRevenue rolls up ticket sales per local calendar day over the
// trailing window, oldest day first, including zero-valued days. Every
// ticket counts toward revenue at its raffle's unit price regardless of
// payment status: reserved-but-unpaid tickets are included.
func (s *QueryService) DailyRevenue(ctx context.Context, windowDays int) ([]RevenueBucket, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -(windowDays - 1))

	var tickets []model.Ticket
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", start).
		Preload("Raffle").
		Order("created_at ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64, windowDays)
	buckets := make([]RevenueBucket, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		day := start.AddDate(0, 0, i).Format("02/01")
		totals[day] = 0
		buckets = append(buckets, RevenueBucket{Day: day})
	}
	for _, t := range tickets {
		day := t.CreatedAt.In(now.Location()).Format("02/01")
		if _, ok := totals[day]; ok && t.Raffle != nil {
			totals[day] += t.Raffle.TicketPrice
		}
	}
	for i := range buckets {
		buckets[i].Total = totals[buckets[i].Day]
	}
	return buckets, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
