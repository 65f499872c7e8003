package model

import "time"

type TicketStatus string

const (
	TicketStatusReserved TicketStatus = "RESERVED"
	TicketStatusPaid     TicketStatus = "PAID"
)

// Raffle is a time-boxed pool of numbered tickets sold at a fixed price.
// Valid ticket numbers are 0 .. TotalTickets-1.
type Raffle struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	Description  string     `gorm:"type:text" json:"description,omitempty"`
	ImageURL     string     `gorm:"type:text" json:"image_url,omitempty"`
	Slug         string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	TicketPrice  float64    `gorm:"not null" json:"ticket_price"`
	TotalTickets int        `gorm:"not null" json:"total_tickets"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client is a buyer identity keyed by phone number, shared across raffles.
type Client struct {
	ID    string `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string `gorm:"type:varchar(255);not null" json:"name"`
	Phone string `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"`
	State string `gorm:"type:varchar(64)" json:"state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ticket is one numbered slot within a raffle. The composite unique index
// on (raffle_id, ticket_number) is the invariant that makes double-selling
// a number unrepresentable in the store.
type Ticket struct {
	ID           string       `gorm:"type:uuid;primaryKey" json:"id"`
	RaffleID     string       `gorm:"type:uuid;not null;uniqueIndex:idx_tickets_raffle_number,priority:1" json:"raffle_id"`
	TicketNumber int          `gorm:"not null;uniqueIndex:idx_tickets_raffle_number,priority:2" json:"ticket_number"`
	ClientID     string       `gorm:"type:uuid;index;not null" json:"client_id"`
	ClientState  string       `gorm:"type:varchar(64)" json:"client_state,omitempty"`
	Status       TicketStatus `gorm:"type:varchar(16);index;not null" json:"status"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`

	Raffle *Raffle `gorm:"foreignKey:RaffleID" json:"raffle,omitempty"`
	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}
