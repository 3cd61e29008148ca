package cart

import (
	"context"
	"fmt"

	"github.com/imrishuroy/nursery-checkout/internal/catalog"
)

// IssueKind classifies a cart line problem.
type IssueKind string

const (
	IssueNotFound          IssueKind = "NOT_FOUND"
	IssueInactive          IssueKind = "INACTIVE"
	IssueOutOfStock        IssueKind = "OUT_OF_STOCK"
	IssueInsufficientStock IssueKind = "INSUFFICIENT_STOCK"
	IssuePriceChanged      IssueKind = "PRICE_CHANGED"
)

// Critical reports whether the issue alone makes the cart invalid.
func (k IssueKind) Critical() bool {
	switch k {
	case IssueNotFound, IssueInactive, IssueOutOfStock:
		return true
	}
	return false
}

// Issue describes one problem with one cart line. Issues are computed on
// every call and never stored.
type Issue struct {
	ItemID    string       `json:"item_id"`
	Kind      catalog.Kind `json:"item_kind"`
	Issue     IssueKind    `json:"issue"`
	Critical  bool         `json:"critical"`
	Message   string       `json:"message"`
	Available *int64       `json:"available,omitempty"`
	Requested *int64       `json:"requested,omitempty"`
}

// ResolvedLine pairs a cart line with the catalog state it was checked against.
type ResolvedLine struct {
	Item  LineItem
	State catalog.State
}

// Result is the validator verdict. Valid is true only when no issue is critical.
// Lines holds every line that has no critical issue, in cart order.
type Result struct {
	Valid  bool           `json:"valid"`
	Issues []Issue        `json:"issues"`
	Lines  []ResolvedLine `json:"-"`
}

// HasIssue reports whether any issue of the given kind was raised.
func (r Result) HasIssue(kind IssueKind) bool {
	for _, is := range r.Issues {
		if is.Issue == kind {
			return true
		}
	}
	return false
}

// Validator reconciles cart lines against the catalog. It only reads.
type Validator struct {
	catalog catalog.Reader
}

// NewValidator creates a Validator over a catalog reader.
func NewValidator(reader catalog.Reader) *Validator {
	return &Validator{catalog: reader}
}

// Validate checks every line against current catalog state. Lines with a
// non-positive quantity are skipped. Lines sharing a catalog key are checked
// against stock by their combined quantity, and each issue kind is reported
// once per key.
func (v *Validator) Validate(ctx context.Context, items []LineItem) (Result, error) {
	res := Result{Valid: true, Issues: []Issue{}}

	demand := make(map[string]int64, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			demand[it.Key().String()] += it.Quantity
		}
	}

	states := make(map[string]*catalog.State, len(demand))
	reported := make(map[string]bool)
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		key := it.Key()
		k := key.String()
		st, seen := states[k]
		if !seen {
			var err error
			st, err = v.catalog.State(ctx, key)
			if err != nil {
				return Result{}, fmt.Errorf("validate cart item %s: %w", k, err)
			}
			states[k] = st
		}

		issues := classify(it, st, demand[k])
		for _, is := range issues {
			if is.Critical {
				res.Valid = false
			}
			if id := k + "/" + string(is.Issue); !reported[id] {
				reported[id] = true
				res.Issues = append(res.Issues, is)
			}
		}
		if len(issues) == 0 || !issues[0].Critical {
			res.Lines = append(res.Lines, ResolvedLine{Item: it, State: *st})
		}
	}
	return res, nil
}

func classify(it LineItem, st *catalog.State, requested int64) []Issue {
	base := Issue{ItemID: it.ItemID, Kind: it.Kind}
	label := it.Name
	if label == "" {
		label = it.ItemID
	}

	switch {
	case st == nil:
		return []Issue{withKind(base, IssueNotFound, fmt.Sprintf("%s is no longer available", label))}
	case !st.Active:
		return []Issue{withKind(base, IssueInactive, fmt.Sprintf("%s is currently unavailable", label))}
	case st.Stock <= 0:
		is := withKind(base, IssueOutOfStock, fmt.Sprintf("%s is out of stock", label))
		is.Available, is.Requested = int64Ptr(0), int64Ptr(requested)
		return []Issue{is}
	}

	var issues []Issue
	if st.Stock < requested {
		is := withKind(base, IssueInsufficientStock, fmt.Sprintf("only %d of %s left in stock", st.Stock, label))
		is.Available, is.Requested = int64Ptr(st.Stock), int64Ptr(requested)
		issues = append(issues, is)
	}
	if it.DisplayPrice > 0 && it.DisplayPrice != st.Price {
		issues = append(issues, withKind(base, IssuePriceChanged, fmt.Sprintf("price of %s has changed", label)))
	}
	return issues
}

func withKind(is Issue, kind IssueKind, msg string) Issue {
	is.Issue = kind
	is.Critical = kind.Critical()
	is.Message = msg
	return is
}

func int64Ptr(v int64) *int64 { return &v }
