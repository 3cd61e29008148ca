package catalog

import "strings"

// Kind is the sellable item family.
type Kind string

const (
	KindProduct Kind = "product"
	KindCombo   Kind = "combo"
	KindHamper  Kind = "hamper"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProduct, KindCombo, KindHamper:
		return true
	}
	return false
}

// Key identifies one stock-keeping unit. Size and Color select a product
// variant and are ignored for combos and hampers.
type Key struct {
	Kind   Kind
	ItemID string
	Size   string
	Color  string
}

// String returns the catalog table partition key, e.g. "product#p-12#s:M#c:green".
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	b.WriteByte('#')
	b.WriteString(k.ItemID)
	if k.Kind == KindProduct {
		if s := strings.TrimSpace(k.Size); s != "" {
			b.WriteString("#s:")
			b.WriteString(s)
		}
		if c := strings.TrimSpace(k.Color); c != "" {
			b.WriteString("#c:")
			b.WriteString(c)
		}
	}
	return b.String()
}

// State is the authoritative catalog view the checkout consumes. Price is in
// the smallest currency unit.
type State struct {
	ItemKey string `dynamodbav:"item_key"` // PK
	Kind    Kind   `dynamodbav:"kind"`
	ItemID  string `dynamodbav:"item_id"`
	Name    string `dynamodbav:"name,omitempty"`
	Active  bool   `dynamodbav:"active"`
	Price   int64  `dynamodbav:"price"`
	Stock   int64  `dynamodbav:"stock"`
}
