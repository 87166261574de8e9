package domain

// EventType tags an event. The set is open; the constants below are the
// types the analytics engines and the request middleware rely on.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLogin      EventType = "user_login"
	EventUserUpgraded   EventType = "user_upgraded"
	EventUserLogout     EventType = "user_logout"

	EventPromptViewed    EventType = "prompt_viewed"
	EventPromptClicked   EventType = "prompt_clicked"
	EventPromptAddToCart EventType = "prompt_add_to_cart"
	EventCheckoutStarted EventType = "checkout_started"
	EventPromptPurchased EventType = "prompt_purchased"
	EventPromptUsed      EventType = "prompt_used"
	EventPromptRated     EventType = "prompt_rated"
	EventPromptCreated   EventType = "prompt_created"
	EventPromptUpdated   EventType = "prompt_updated"
	EventPromptDeleted   EventType = "prompt_deleted"

	EventSearchPerformed     EventType = "search_performed"
	EventSearchResultClicked EventType = "search_result_clicked"
	EventCategoryBrowsed     EventType = "category_browsed"

	EventPaymentInitiated EventType = "payment_initiated"
	EventPaymentCompleted EventType = "payment_completed"
	EventPaymentFailed    EventType = "payment_failed"
	EventPaymentRefunded  EventType = "payment_refunded"
)

// ParseEventTypes converts raw strings into event types, preserving order.
func ParseEventTypes(raw []string) []EventType {
	types := make([]EventType, 0, len(raw))
	for _, r := range raw {
		types = append(types, EventType(r))
	}
	return types
}
