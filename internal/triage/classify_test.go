package triage

import (
	"testing"

	"github.com/propflow/mailtriage/internal/gmail"
)

func msgWith(subject, from string) gmail.Message {
	return gmail.Message{
		ID: "m1",
		Headers: []gmail.Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: from},
		},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		from    string
		body    string
		want    Category
	}{
		{
			name:    "work-order-subject",
			subject: "New Maintenance Request for Unit 4B",
			from:    "tenant@example.com",
			want:    CategoryWorkOrder,
		},
		{
			name: "work-order-body",
			body: "Hi, maintenance needed in the laundry room as soon as possible.",
			from: "tenant@example.com",
			want: CategoryWorkOrder,
		},
		{
			name:    "vendor-quote-subject",
			subject: "Quote for plumbing job",
			from:    "bob@example.com",
			want:    CategoryVendorResponse,
		},
		{
			name: "vendor-body",
			body: "We have completed work on the unit. Invoice attached.",
			from: "bob@example.com",
			want: CategoryVendorResponse,
		},
		{
			name:    "vendor-from-address",
			subject: "Following up",
			from:    "billing@acme-contractor.com",
			want:    CategoryVendorResponse,
		},
		{
			name:    "approval-subject",
			subject: "Authorization needed for unit 12 repairs budget",
			from:    "owner@example.com",
			want:    CategoryApproval,
		},
		{
			name: "approval-body",
			body: "The attached estimate is pending approval from the owner.",
			from: "owner@example.com",
			want: CategoryApproval,
		},
		{
			name:    "uncategorized",
			subject: "Lunch on Friday?",
			body:    "Are you free around noon?",
			from:    "friend@example.com",
			want:    CategoryUncategorized,
		},
		{
			// Rule order contract: rule 1 wins even though the subject is
			// also a reply with an invoice, which rule 2 would match.
			name:    "rule-order-work-order-beats-vendor",
			subject: "Re: Work Order #5 — Invoice attached",
			from:    "bob@example.com",
			want:    CategoryWorkOrder,
		},
		{
			// A reply that mentions approval but first matches rule 2.
			name:    "rule-order-vendor-beats-approval",
			subject: "Re: estimate for the roof",
			body:    "This quote for services is pending approval on our side.",
			from:    "roofer@example.com",
			want:    CategoryVendorResponse,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			msg := msgWith(tc.subject, tc.from)
			got := Classify(msg, tc.body)
			if got != tc.want {
				t.Fatalf("Classify() = %s, want %s", got, tc.want)
			}
			// Purity: a second evaluation of the same input cannot differ.
			if again := Classify(msg, tc.body); again != got {
				t.Fatalf("Classify() not stable: %s then %s", got, again)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(string(c))
		if err != nil {
			t.Fatalf("ParseCategory(%s): %v", c, err)
		}
		if got != c {
			t.Fatalf("ParseCategory(%s) = %s", c, got)
		}
	}
	for _, bad := range []string{"", "SPAM", "work_order", "Approval"} {
		if _, err := ParseCategory(bad); err == nil {
			t.Fatalf("ParseCategory(%q) accepted", bad)
		}
	}
}

func TestLabelNameMapping(t *testing.T) {
	want := map[Category]string{
		CategoryWorkOrder:      "Dashboard/WORK_ORDER",
		CategoryVendorResponse: "Dashboard/VENDOR_RESPONSE",
		CategoryApproval:       "Dashboard/APPROVAL",
		CategoryUncategorized:  "Dashboard/UNCATEGORIZED",
	}
	for c, name := range want {
		if got := c.LabelName(); got != name {
			t.Fatalf("LabelName(%s) = %q, want %q", c, got, name)
		}
	}
	if got := len(ManagedLabelNames()); got != len(want) {
		t.Fatalf("ManagedLabelNames() has %d entries, want %d", got, len(want))
	}
}
