package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/psds-microservice/raffle-service/internal/model"
	"gorm.io/gorm"
)

// ClientDirectory resolves a phone number to a persistent client record,
// creating one on first contact. An existing record is returned as-is:
// name and state are never overwritten by later reservations, so one
// mistyped request cannot corrupt another buyer's stored identity.
type ClientDirectory struct {
	db *gorm.DB
}

func NewClientDirectory(db *gorm.DB) *ClientDirectory {
	return &ClientDirectory{db: db}
}

func (d *ClientDirectory) Resolve(ctx context.Context, phone, name, state string) (*model.Client, error) {
	return resolveClient(d.db.WithContext(ctx), phone, name, state)
}

// resolveClient runs against the caller's transaction handle so that the
// lookup-or-create shares the atomic unit of the ticket insert it supports.
func resolveClient(tx *gorm.DB, phone, name, state string) (*model.Client, error) {
	var client model.Client
	err := tx.Take(&client, "phone = ?", phone).Error
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	client = model.Client{
		ID:    uuid.NewString(),
		Name:  name,
		Phone: phone,
		State: state,
	}
	if err := tx.Create(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a first-contact race on the phone unique index
			if takeErr := tx.Take(&client, "phone = ?", phone).Error; takeErr == nil {
				return &client, nil
			}
		}
		return nil, err
	}
	return &client, nil
}
