package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Item is the canonical descriptor a menu surface hands to AddItem. Loose
// upstream shapes are normalized into this type at the boundary; nothing
// deeper in the cart branches on optional-field presence.
type Item struct {
	ID        int64           `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	StallName string          `json:"stallName" validate:"required"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// Line is one cart entry. Every line in a cart belongs to the same stall.
type Line struct {
	ItemID              int64           `json:"id"`
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"`
	StallName           string          `json:"stallName"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
	NotesExpanded       bool            `json:"notesExpanded,omitempty"`
	ImageURL            string          `json:"imageUrl,omitempty"`
}

// LineUpdate carries the shallow-mergeable fields of a line. Nil fields are
// left untouched.
type LineUpdate struct {
	SpecialInstructions *string
	NotesExpanded       *bool
}

// Conflict is the pending cross-stall add awaiting a user decision. It is
// ephemeral and never persisted.
type Conflict struct {
	// Candidate is the item that triggered the conflict, already shaped as
	// the single line the cart becomes if the user confirms.
	Candidate Line
	// CurrentStall is the stall the cart holds items from.
	CurrentStall string
}

// DecodeItem normalizes a raw JSON item descriptor, tolerating the field
// drift the backend has shipped over time ("image" vs "imageUrl").
func DecodeItem(data []byte) (Item, error) {
	var raw struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Price     decimal.Decimal `json:"price"`
		StallName string          `json:"stallName"`
		ImageURL  string          `json:"imageUrl"`
		Image     string          `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Item{}, err
	}
	image := raw.ImageURL
	if image == "" {
		image = raw.Image
	}
	return Item{
		ID:        raw.ID,
		Name:      raw.Name,
		Price:     raw.Price,
		StallName: raw.StallName,
		ImageURL:  image,
	}, nil
}

func lineFromItem(item Item) Line {
	return Line{
		ItemID:    item.ID,
		Name:      item.Name,
		Price:     item.Price,
		Quantity:  1,
		StallName: item.StallName,
		ImageURL:  item.ImageURL,
	}
}
