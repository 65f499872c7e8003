package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/raffle-service/internal/errs"
	"github.com/psds-microservice/raffle-service/internal/model"
	"gorm.io/gorm"
)

// PaymentService transitions tickets RESERVED -> PAID. PAID is terminal;
// there is no cancellation or expiry path, so an abandoned RESERVED ticket
// keeps its number occupied.
type PaymentService struct {
	db *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{db: db}
}

// MarkPaid confirms payment for a single ticket. Calling it on an
// already-PAID ticket is a no-op returning the current state, so paid_at
// always records the first confirmation time. The returned ticket carries
// its raffle and client for confirmation messages.
func (s *PaymentService) MarkPaid(ctx context.Context, ticketID string) (*model.Ticket, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, errs.ErrTicketNotFound
	}
	var result *model.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket model.Ticket
		if err := tx.Preload("Raffle").Preload("Client").Take(&ticket, "id = ?", ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrTicketNotFound
			}
			return err
		}

		if ticket.Status == model.TicketStatusPaid {
			result = &ticket
			return nil
		}

		now := time.Now()
		if err := tx.Model(&ticket).Updates(map[string]any{
			"status":  model.TicketStatusPaid,
			"paid_at": now,
		}).Error; err != nil {
			return err
		}
		ticket.Status = model.TicketStatusPaid
		ticket.PaidAt = &now
		result = &ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
