package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/psds-microservice/raffle-service/internal/handler"
	"github.com/psds-microservice/raffle-service/internal/kafka"
	"github.com/psds-microservice/raffle-service/internal/model"
	"github.com/psds-microservice/raffle-service/internal/notify"
	"github.com/psds-microservice/raffle-service/internal/router"
	"github.com/psds-microservice/raffle-service/internal/service"
	"github.com/psds-microservice/raffle-service/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*gorm.DB, http.Handler) {
	return newTestServerWith(t, kafka.NewProducer(nil, ""), notify.NewClient(""))
}

func newTestServerWith(t *testing.T, events kafka.TicketEventProducer, notifier *notify.Client) (*gorm.DB, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)
	ticketHandler := handler.NewTicketHandler(
		service.NewAllocatorService(db),
		service.NewPaymentService(db),
		service.NewQueryService(db),
		events,
		notifier,
	)
	raffleHandler := handler.NewRaffleHandler(service.NewRaffleService(db))
	return db, router.New(ticketHandler, raffleHandler)
}

func seedActiveRaffle(t *testing.T, db *gorm.DB, total int, price float64) *model.Raffle {
	t.Helper()
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(24 * time.Hour)
	raffle := &model.Raffle{
		ID:           uuid.NewString(),
		Name:         "HTTP Test Raffle",
		Slug:         "http-test-raffle-" + uuid.NewString(),
		TicketPrice:  price,
		TotalTickets: total,
		IsActive:     true,
		StartDate:    &start,
		EndDate:      &end,
	}
	require.NoError(t, db.Create(raffle).Error)
	return raffle
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestReserveEndpoint(t *testing.T) {
	db, h := newTestServer(t)
	raffle := seedActiveRaffle(t, db, 10, 10)

	w := doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{3, 4},
		"client_name":  "Maria",
		"client_phone": "5550001",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Tickets []model.Ticket `json:"tickets"`
		Client  string         `json:"client"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Tickets, 2)
	require.Equal(t, "Maria", resp.Client)
}

func TestReserveEndpointConflict(t *testing.T) {
	db, h := newTestServer(t)
	raffle := seedActiveRaffle(t, db, 10, 10)

	w := doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{3, 4},
		"client_name":  "Maria",
		"client_phone": "5550001",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{4, 5},
		"client_name":  "Pedro",
		"client_phone": "5550002",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Numbers []int `json:"numbers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, []int{4}, resp.Numbers)
}

func TestReserveEndpointBadBody(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{"numbers": []int{1}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReserveEndpointUnknownRaffle(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    uuid.NewString(),
		"numbers":      []int{1},
		"client_name":  "Maria",
		"client_phone": "5550001",
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkPaidEndpoint(t *testing.T) {
	db, h := newTestServer(t)
	raffle := seedActiveRaffle(t, db, 10, 10)

	w := doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{7},
		"client_name":  "Maria",
		"client_phone": "5550001",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Tickets []model.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	payPath := fmt.Sprintf("/api/v1/tickets/%s/pay", created.Tickets[0].ID)
	w = doJSON(t, h, http.MethodPatch, payPath, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var paid model.Ticket
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paid))
	require.Equal(t, model.TicketStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	w = doJSON(t, h, http.MethodPatch, "/api/v1/tickets/"+uuid.NewString()+"/pay", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOccupiedEndpoint(t *testing.T) {
	db, h := newTestServer(t)
	raffle := seedActiveRaffle(t, db, 10, 10)

	w := doJSON(t, h, http.MethodGet, "/api/v1/tickets/occupied/"+raffle.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())

	doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{3, 4},
		"client_name":  "Maria",
		"client_phone": "5550001",
	})

	w = doJSON(t, h, http.MethodGet, "/api/v1/tickets/occupied/"+raffle.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var numbers []int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &numbers))
	require.ElementsMatch(t, []int{3, 4}, numbers)
}

func TestSearchByPhoneEndpoint(t *testing.T) {
	db, h := newTestServer(t)
	raffle := seedActiveRaffle(t, db, 10, 25)

	doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{6},
		"client_name":  "Maria",
		"client_phone": "5215550001",
	})

	w := doJSON(t, h, http.MethodGet, "/api/v1/tickets/search/555-0001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var views []struct {
		TicketNumber int     `json:"ticket_number"`
		RaffleName   string  `json:"raffle_name"`
		RaffleSlug   string  `json:"raffle_slug"`
		TicketPrice  float64 `json:"ticket_price"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, 6, views[0].TicketNumber)
	require.Equal(t, raffle.Name, views[0].RaffleName)
	require.Equal(t, raffle.Slug, views[0].RaffleSlug)
	require.Equal(t, 25.0, views[0].TicketPrice)
}

func TestRaffleEndpoints(t *testing.T) {
	_, h := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/v1/raffles", gin.H{
		"name":          "Summer Raffle",
		"ticket_price":  50,
		"total_tickets": 100,
		"start_date":    time.Now().Format(time.RFC3339),
		"end_date":      time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var raffle model.Raffle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raffle))
	require.NotEmpty(t, raffle.ID)

	w = doJSON(t, h, http.MethodGet, "/api/v1/raffles/"+raffle.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// slug resolves through the same route
	w = doJSON(t, h, http.MethodGet, "/api/v1/raffles/"+raffle.Slug, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/v1/raffles", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/v1/raffles/"+raffle.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/v1/raffles/"+raffle.ID, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

// stalledProducer blocks every publish until released, standing in for a
// broker that stops accepting writes.
type stalledProducer struct {
	release chan struct{}
	events  chan string
}

func newStalledProducer() *stalledProducer {
	return &stalledProducer{
		release: make(chan struct{}),
		events:  make(chan string, 8),
	}
}

func (p *stalledProducer) ProduceTicketEvent(ctx context.Context, event string, payload map[string]interface{}) {
	p.events <- event
	select {
	case <-p.release:
	case <-ctx.Done():
	}
}

func (p *stalledProducer) Close() error { return nil }

func TestReserveEndpointDoesNotWaitOnEvents(t *testing.T) {
	producer := newStalledProducer()
	t.Cleanup(func() { close(producer.release) })

	db, h := newTestServerWith(t, producer, notify.NewClient(""))
	raffle := seedActiveRaffle(t, db, 10, 10)

	start := time.Now()
	w := doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{3, 4},
		"client_name":  "Maria",
		"client_phone": "5550001",
	})
	elapsed := time.Since(start)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Less(t, elapsed, time.Second, "response must not wait for the event broker")

	// the events still go out in the background
	for i := 0; i < 2; i++ {
		select {
		case event := <-producer.events:
			require.Equal(t, "ticket.reserved", event)
		case <-time.After(3 * time.Second):
			t.Fatal("reservation event was never published")
		}
	}
}

func TestMarkPaidEndpointNotifiesRelay(t *testing.T) {
	received := make(chan notify.ReservationPayload, 4)
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notifications/reservation", r.URL.Path)
		var payload notify.ReservationPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(relay.Close)

	db, h := newTestServerWith(t, kafka.NewProducer(nil, ""), notify.NewClient(relay.URL))
	raffle := seedActiveRaffle(t, db, 10, 25)

	w := doJSON(t, h, http.MethodPost, "/api/v1/tickets", gin.H{
		"raffle_id":    raffle.ID,
		"numbers":      []int{7},
		"client_name":  "Maria",
		"client_phone": "5550001",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Tickets []model.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	waitPayload := func() notify.ReservationPayload {
		t.Helper()
		select {
		case p := <-received:
			return p
		case <-time.After(3 * time.Second):
			t.Fatal("notification relay was never called")
			return notify.ReservationPayload{}
		}
	}

	reserved := waitPayload()
	require.Equal(t, "ticket.reserved", reserved.Event)
	require.Equal(t, []int{7}, reserved.Numbers)
	require.Equal(t, 25.0, reserved.TotalPrice)

	payPath := fmt.Sprintf("/api/v1/tickets/%s/pay", created.Tickets[0].ID)
	w = doJSON(t, h, http.MethodPatch, payPath, nil)
	require.Equal(t, http.StatusOK, w.Code)

	paid := waitPayload()
	require.Equal(t, "ticket.paid", paid.Event)
	require.Equal(t, raffle.Name, paid.RaffleName)
	require.Equal(t, []int{7}, paid.Numbers)
	require.Equal(t, "Maria", paid.ClientName)
	require.Equal(t, "5550001", paid.ClientPhone)
	require.Equal(t, 25.0, paid.TotalPrice)
}
