package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/raffle-service/internal/errs"
	"github.com/psds-microservice/raffle-service/internal/model"
	"gorm.io/gorm"
)

// RaffleService owns raffle metadata. The allocator only ever reads raffles;
// creation, listing and deletion live here, on the management surface.
type RaffleService struct {
	db *gorm.DB
}

func NewRaffleService(db *gorm.DB) *RaffleService {
	return &RaffleService{db: db}
}

type CreateRaffleInput struct {
	Name         string
	Description  string
	ImageURL     string
	TicketPrice  float64
	TotalTickets int
	StartDate    time.Time
	EndDate      time.Time
}

func (s *RaffleService) Create(ctx context.Context, in CreateRaffleInput) (*model.Raffle, error) {
	if in.Name == "" {
		return nil, errs.Validation("raffle name is required")
	}
	if in.TotalTickets < 1 {
		return nil, errs.Validation("total tickets must be at least 1")
	}
	if in.TicketPrice < 0 {
		return nil, errs.Validation("ticket price must not be negative")
	}

	start, end := in.StartDate, in.EndDate
	raffle := &model.Raffle{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Description:  in.Description,
		ImageURL:     in.ImageURL,
		Slug:         slugify(in.Name),
		TicketPrice:  in.TicketPrice,
		TotalTickets: in.TotalTickets,
		IsActive:     true,
		StartDate:    &start,
		EndDate:      &end,
	}
	if err := s.db.WithContext(ctx).Create(raffle).Error; err != nil {
		return nil, err
	}
	return raffle, nil
}

// RaffleSummary is a raffle with its sold-or-reserved ticket count, for the
// dashboard listing.
type RaffleSummary struct {
	model.Raffle
	TicketsSold int64 `gorm:"column:tickets_sold" json:"tickets_sold"`
}

func (s *RaffleService) List(ctx context.Context) ([]RaffleSummary, error) {
	var out []RaffleSummary
	err := s.db.WithContext(ctx).Model(&model.Raffle{}).
		Select("raffles.*, (SELECT COUNT(*) FROM tickets WHERE tickets.raffle_id = raffles.id) AS tickets_sold").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RaffleService) GetByID(ctx context.Context, id string) (*model.Raffle, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errs.ErrRaffleNotFound
	}
	var raffle model.Raffle
	if err := s.db.WithContext(ctx).Take(&raffle, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRaffleNotFound
		}
		return nil, err
	}
	return &raffle, nil
}

func (s *RaffleService) GetBySlug(ctx context.Context, slug string) (*model.Raffle, error) {
	var raffle model.Raffle
	if err := s.db.WithContext(ctx).Take(&raffle, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRaffleNotFound
		}
		return nil, err
	}
	return &raffle, nil
}

// Delete removes a raffle and its tickets in one transaction. This is an
// administrative operation; in-flight reservations on the raffle may fail.
func (s *RaffleService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errs.ErrRaffleNotFound
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raffle model.Raffle
		if err := tx.Take(&raffle, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrRaffleNotFound
			}
			return err
		}
		if err := tx.Where("raffle_id = ?", id).Delete(&model.Ticket{}).Error; err != nil {
			return err
		}
		return tx.Delete(&raffle).Error
	})
}

// slugify builds a URL-friendly slug from the raffle name, suffixed with
// the creation timestamp to keep slugs unique across same-named raffles.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	return fmt.Sprintf("%s-%d", s, time.Now().UnixMilli())
}
