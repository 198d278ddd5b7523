package triage

import (
	"regexp"

	"github.com/propflow/mailtriage/internal/gmail"
)

// Classification vocabulary. Rule evaluation is ordered and first-match-wins;
// the order is a compatibility contract with already-labeled mail, so a reply
// about a work order stays WORK_ORDER even when it also looks like a quote.
var (
	workOrderSubjectRe = regexp.MustCompile(`(?i)work order|maintenance request|repair request`)
	workOrderBodyRe    = regexp.MustCompile(`(?i)new work order|maintenance needed|please repair|service request`)

	vendorSubjectRe = regexp.MustCompile(`(?i)re: work order|quote|estimate|invoice`)
	vendorBodyRe    = regexp.MustCompile(`(?i)completed work|service completed|invoice attached|quote for services`)
	vendorFromRe    = regexp.MustCompile(`(?i)contractor|service|repair|vendor|maintenance`)

	approvalSubjectRe = regexp.MustCompile(`(?i)approval|approve work order|authorization needed`)
	approvalBodyRe    = regexp.MustCompile(`(?i)needs your approval|please approve|waiting for authorization|pending approval`)
)

// Classify assigns exactly one category from the message's Subject and From
// headers and its extracted body text. Pure: identical input always yields
// the identical category.
func Classify(msg gmail.Message, body string) Category {
	subject := msg.Header("Subject")
	from := msg.Header("From")

	if workOrderSubjectRe.MatchString(subject) || workOrderBodyRe.MatchString(body) {
		return CategoryWorkOrder
	}
	if vendorSubjectRe.MatchString(subject) || vendorBodyRe.MatchString(body) || vendorFromRe.MatchString(from) {
		return CategoryVendorResponse
	}
	if approvalSubjectRe.MatchString(subject) || approvalBodyRe.MatchString(body) {
		return CategoryApproval
	}
	return CategoryUncategorized
}
