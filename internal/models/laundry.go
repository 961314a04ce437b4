package models

import "time"

type Laundry struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Address     *string   `json:"address,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Lat         *Decimal  `json:"lat,omitempty"`
	Lng         *Decimal  `json:"lng,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

func (l Laundry) Clone() Laundry {
	out := l
	out.Address = clonePtr(l.Address)
	out.Phone = clonePtr(l.Phone)
	out.ImageURL = clonePtr(l.ImageURL)
	out.Lat = clonePtr(l.Lat)
	out.Lng = clonePtr(l.Lng)
	return out
}

// LaundryInput is the payload for creating or editing a laundry.
type LaundryInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Lat         Field[Decimal] `json:"lat,omitzero"`
	Lng         Field[Decimal] `json:"lng,omitzero"`
	Address     Field[string]  `json:"address,omitzero"`
	ImageURL    Field[string]  `json:"imageUrl,omitzero"`
}
