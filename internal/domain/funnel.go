package domain

// FunnelDefinition is an ordered conversion path.
type FunnelDefinition struct {
	Name  string      `json:"name"`
	Steps []EventType `json:"steps"`
}

var (
	PurchaseFunnel = FunnelDefinition{
		Name: "purchase",
		Steps: []EventType{
			EventPromptViewed,
			EventPromptClicked,
			EventPromptAddToCart,
			EventCheckoutStarted,
			EventPaymentInitiated,
			EventPromptPurchased,
		},
	}

	SellerFunnel = FunnelDefinition{
		Name: "seller",
		Steps: []EventType{
			"seller_onboarding_started",
			"first_prompt_created",
			"prompt_published",
			"first_sale_completed",
			"seller_milestone_10_sales",
		},
	}

	SubscriptionFunnel = FunnelDefinition{
		Name: "subscription",
		Steps: []EventType{
			"subscription_page_viewed",
			"plan_selected",
			"payment_details_entered",
			"subscription_started",
			"subscription_first_renewal",
		},
	}
)

// Funnels indexes the predefined funnels by name.
var Funnels = map[string]FunnelDefinition{
	PurchaseFunnel.Name:     PurchaseFunnel,
	SellerFunnel.Name:       SellerFunnel,
	SubscriptionFunnel.Name: SubscriptionFunnel,
}
