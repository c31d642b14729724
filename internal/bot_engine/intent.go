package bot_engine

import "strings"

// Intent is the routing decision for a normalized inbound message.
type Intent int

const (
	// IntentLookup falls through to the training-store lookup.
	IntentLookup Intent = iota
	// IntentBillingTrigger starts the billing-intake workflow.
	IntentBillingTrigger
	// IntentAwaitingBillingFollowup consumes the structured follow-up
	// message while the workflow is awaiting details. It takes priority
	// over a fresh "bill" keyword appearing in the follow-up text itself.
	IntentAwaitingBillingFollowup
	// IntentNetworkStatus answers network-status questions by region.
	IntentNetworkStatus
)

// ClassifyIntent inspects a normalized (lowercased, trimmed) message and the
// current session state and decides which intent applies. Substring matching
// is deliberate: the conversational surface is narrow and deterministic, so
// keyword detection is sufficient and auditable.
func ClassifyIntent(normalized string, awaitingBillingDetails bool) Intent {
	switch {
	case awaitingBillingDetails:
		return IntentAwaitingBillingFollowup
	case strings.Contains(normalized, "bill"):
		return IntentBillingTrigger
	case strings.Contains(normalized, "network"):
		return IntentNetworkStatus
	default:
		return IntentLookup
	}
}
