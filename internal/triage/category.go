// Package triage classifies inbound mail into property-management categories
// and keeps the classification reflected in Gmail's label store.
package triage

import (
	"errors"
	"fmt"
)

// Category is one of the mutually-exclusive triage outcomes for a message.
type Category string

const (
	CategoryWorkOrder      Category = "WORK_ORDER"
	CategoryVendorResponse Category = "VENDOR_RESPONSE"
	CategoryApproval       Category = "APPROVAL"
	CategoryUncategorized  Category = "UNCATEGORIZED"
)

// labelNamespace prefixes every managed label so user- and provider-created
// labels are never touched.
const labelNamespace = "Dashboard"

// ErrInvalidCategory rejects any category string outside the closed set,
// before any provider call is issued.
var ErrInvalidCategory = errors.New("triage: invalid category")

// Categories returns all members of the closed set, in rule order.
func Categories() []Category {
	return []Category{
		CategoryWorkOrder,
		CategoryVendorResponse,
		CategoryApproval,
		CategoryUncategorized,
	}
}

// ParseCategory validates a caller-supplied category string.
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryWorkOrder, CategoryVendorResponse, CategoryApproval, CategoryUncategorized:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// LabelName is the total mapping from category to managed label name.
func (c Category) LabelName() string {
	return labelNamespace + "/" + string(c)
}

func (c Category) String() string { return string(c) }

// ManagedLabelNames lists the label names the synchronizer owns.
func ManagedLabelNames() []string {
	cats := Categories()
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.LabelName())
	}
	return names
}
