package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/raffle-service/internal/errs"
	"github.com/psds-microservice/raffle-service/internal/model"
	"github.com/psds-microservice/raffle-service/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestMarkPaidSetsStatusAndTimestamp(t *testing.T) {
	db := testutil.NewTestDB(t)
	raffle := activeRaffle(t, db, 10, 10)
	alloc := NewAllocatorService(db)
	payments := NewPaymentService(db)

	res, err := alloc.Reserve(context.Background(), ReserveRequest{
		RaffleID:    raffle.ID,
		Numbers:     []int{1},
		ClientName:  "Maria",
		ClientPhone: "5550001",
	})
	require.NoError(t, err)

	ticket, err := payments.MarkPaid(context.Background(), res.Tickets[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.TicketStatusPaid, ticket.Status)
	require.NotNil(t, ticket.PaidAt)

	var stored model.Ticket
	require.NoError(t, db.Take(&stored, "id = ?", ticket.ID).Error)
	require.Equal(t, model.TicketStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	raffle := activeRaffle(t, db, 10, 10)
	alloc := NewAllocatorService(db)
	payments := NewPaymentService(db)

	res, err := alloc.Reserve(context.Background(), ReserveRequest{
		RaffleID:    raffle.ID,
		Numbers:     []int{1},
		ClientName:  "Maria",
		ClientPhone: "5550001",
	})
	require.NoError(t, err)

	first, err := payments.MarkPaid(context.Background(), res.Tickets[0].ID)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	second, err := payments.MarkPaid(context.Background(), res.Tickets[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.TicketStatusPaid, second.Status)

	// paid_at keeps the first confirmation time
	require.True(t, second.PaidAt.Equal(*first.PaidAt),
		"paid_at changed on repeated MarkPaid: %v != %v", second.PaidAt, first.PaidAt)
}

func TestMarkPaidUnknownTicket(t *testing.T) {
	db := testutil.NewTestDB(t)
	payments := NewPaymentService(db)

	_, err := payments.MarkPaid(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, errs.ErrTicketNotFound)
}
