package cart

import (
	"time"

	"github.com/imrishuroy/nursery-checkout/internal/catalog"
)

// LineItem is one cart entry. DisplayPrice is the price the client last saw;
// it is only ever used to raise PRICE_CHANGED and never feeds a total.
type LineItem struct {
	Kind         catalog.Kind `dynamodbav:"kind" json:"kind"`
	ItemID       string       `dynamodbav:"item_id" json:"item_id"`
	Name         string       `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Size         string       `dynamodbav:"size,omitempty" json:"size,omitempty"`
	Color        string       `dynamodbav:"color,omitempty" json:"color,omitempty"`
	Quantity     int64        `dynamodbav:"quantity" json:"quantity"`
	DisplayPrice int64        `dynamodbav:"display_price,omitempty" json:"display_price,omitempty"`
}

// Key returns the catalog key of the line.
func (l LineItem) Key() catalog.Key {
	return catalog.Key{Kind: l.Kind, ItemID: l.ItemID, Size: l.Size, Color: l.Color}
}

// Record is the shape persisted in the carts table.
type Record struct {
	UserID    string     `dynamodbav:"user_id"` // PK
	Items     []LineItem `dynamodbav:"items"`
	UpdatedAt time.Time  `dynamodbav:"updated_at"`
}
