package service

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/raffle-service/internal/errs"
	"github.com/psds-microservice/raffle-service/internal/model"
	"gorm.io/gorm"
)

// AllocatorService reserves ticket numbers for clients. All mutual exclusion
// is delegated to the store: the pre-check inside the transaction produces an
// itemized error in the common case, and the unique index on
// (raffle_id, ticket_number) is the authoritative guard when two reservations
// race past the pre-check.
type AllocatorService struct {
	db *gorm.DB

	// beforeInsert, when set, runs inside the reservation transaction after
	// the pre-check and before the ticket insert. Tests use it to stand in
	// for a competing reservation that commits in that window.
	beforeInsert func(tx *gorm.DB)
}

func NewAllocatorService(db *gorm.DB) *AllocatorService {
	return &AllocatorService{db: db}
}

type ReserveRequest struct {
	RaffleID    string
	Numbers     []int
	ClientName  string
	ClientPhone string
	ClientState string
}

// Reservation is the result of a successful Reserve call.
type Reservation struct {
	Tickets []model.Ticket
	Client  *model.Client
	Raffle  *model.Raffle
}

func (r *ReserveRequest) validate() error {
	if r.RaffleID == "" {
		return errs.Validation("raffle id is required")
	}
	if len(r.Numbers) == 0 {
		return errs.Validation("at least one ticket number is required")
	}
	if r.ClientName == "" {
		return errs.Validation("client name is required")
	}
	if r.ClientPhone == "" {
		return errs.Validation("client phone is required")
	}
	return nil
}

// Reserve atomically claims the requested numbers for the given client.
// On a duplicate-key error at commit the whole reservation is retried once
// with a fresh pre-check, so a lost race surfaces as NumbersTakenError with
// the offending numbers instead of a raw constraint violation.
func (s *AllocatorService) Reserve(ctx context.Context, req ReserveRequest) (*Reservation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(req.RaffleID); err != nil {
		return nil, errs.ErrRaffleNotFound
	}
	numbers := dedupeSorted(req.Numbers)

	res, err := s.reserveOnce(ctx, req, numbers)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		res, err = s.reserveOnce(ctx, req, numbers)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &errs.NumbersTakenError{Numbers: numbers}
		}
	}
	if err != nil {
		if isReserveDomainError(err) {
			return nil, err
		}
		log.Printf("allocator: raffle %s numbers %v: %v", req.RaffleID, numbers, err)
		return nil, errs.ErrAllocationFailed
	}
	return res, nil
}

func (s *AllocatorService) reserveOnce(ctx context.Context, req ReserveRequest, numbers []int) (*Reservation, error) {
	var result *Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raffle model.Raffle
		if err := tx.Take(&raffle, "id = ?", req.RaffleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrRaffleNotFound
			}
			return err
		}

		if raffle.StartDate == nil || raffle.EndDate == nil {
			return errs.ErrRaffleMisconfigured
		}
		now := time.Now()
		if now.Before(*raffle.StartDate) || now.After(*raffle.EndDate) {
			return errs.ErrRaffleNotActive
		}

		var outOfRange []int
		for _, n := range numbers {
			if n < 0 || n >= raffle.TotalTickets {
				outOfRange = append(outOfRange, n)
			}
		}
		if len(outOfRange) > 0 {
			return &errs.NumberOutOfRangeError{Numbers: outOfRange}
		}

		var existing []model.Ticket
		if err := tx.Where("raffle_id = ? AND ticket_number IN ?", raffle.ID, numbers).
			Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			taken := make([]int, 0, len(existing))
			for _, t := range existing {
				taken = append(taken, t.TicketNumber)
			}
			sort.Ints(taken)
			if s.conflictMatchesPhone(tx, existing, req.ClientPhone) {
				log.Printf("allocator: raffle %s numbers %v already held by phone %s, likely a retried request",
					raffle.ID, taken, req.ClientPhone)
			}
			return &errs.NumbersTakenError{Numbers: taken}
		}

		client, err := resolveClient(tx, req.ClientPhone, req.ClientName, req.ClientState)
		if err != nil {
			return err
		}

		state := req.ClientState
		if state == "" {
			state = "Unknown"
		}
		tickets := make([]model.Ticket, 0, len(numbers))
		for _, n := range numbers {
			tickets = append(tickets, model.Ticket{
				ID:           uuid.NewString(),
				RaffleID:     raffle.ID,
				TicketNumber: n,
				ClientID:     client.ID,
				ClientState:  state,
				Status:       model.TicketStatusReserved,
			})
		}
		if s.beforeInsert != nil {
			s.beforeInsert(tx)
		}
		if err := tx.Create(&tickets).Error; err != nil {
			return err
		}

		result = &Reservation{Tickets: tickets, Client: client, Raffle: &raffle}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// conflictMatchesPhone reports whether every conflicting ticket belongs to
// the client with the requesting phone. That pattern usually means a client
// retried a reservation that already committed.
func (s *AllocatorService) conflictMatchesPhone(tx *gorm.DB, conflicts []model.Ticket, phone string) bool {
	var client model.Client
	if err := tx.Take(&client, "phone = ?", phone).Error; err != nil {
		return false
	}
	for _, t := range conflicts {
		if t.ClientID != client.ID {
			return false
		}
	}
	return true
}

func isReserveDomainError(err error) bool {
	var validation *errs.ValidationError
	var outOfRange *errs.NumberOutOfRangeError
	var taken *errs.NumbersTakenError
	return errors.Is(err, errs.ErrRaffleNotFound) ||
		errors.Is(err, errs.ErrRaffleMisconfigured) ||
		errors.Is(err, errs.ErrRaffleNotActive) ||
		errors.As(err, &validation) ||
		errors.As(err, &outOfRange) ||
		errors.As(err, &taken)
}

func dedupeSorted(nums []int) []int {
	out := make([]int, len(nums))
	copy(out, nums)
	sort.Ints(out)
	j := 0
	for i, n := range out {
		if i == 0 || n != out[j-1] {
			out[j] = n
			j++
		}
	}
	return out[:j]
}
