package scenario

import "mobilepro.local/hunt-gateway/internal/billing"

var builtins = []Scenario{
	{
		ID:          "h4",
		Title:       "The Mega-Account Multi-Line Growth",
		Description: "This is a standard 5-line voice account with 5G Home Internet. Analyze the current structure. A free line is currently active (L3) and a BOGO (L5). The customer needs 5 lines for their new business. Hunt the 5.",
		PhoneNumber: "425-555-0101",
		AccountData: []billing.Line{
			{RatePlan: "Go5G Plus (L1)", MRC: billing.Amount(150), Features: 18, EIP: 35, DevicePromo: 35, Autopay: true},
			{RatePlan: "Go5G Plus (L2)", MRC: billing.Included(), Features: 18, EIP: 25, DevicePromo: 25, Autopay: true},
			{RatePlan: "Go5G Plus (L3)", MRC: billing.Amount(35), Discount: 35, Features: 18, Autopay: true},
			{RatePlan: "Go5G Plus (L4)", MRC: billing.Amount(35), Features: 18, EIP: 30, DevicePromo: 30, Autopay: true},
			{RatePlan: "Go5G Plus (L5)", MRC: billing.Amount(35), Discount: 35, Features: 18, EIP: 10, Autopay: true},
			{RatePlan: "5G Home Internet", MRC: billing.Amount(50), Discount: 20, Autopay: true},
		},
	},
	{
		ID:          "h1",
		Title:       "Value Pivot Strategy",
		Description: "Customer has 3 voice lines and a tablet. One voice line is free. They are currently paying for features on every line. Help them see the value in adding 5 lines to reach the 9+ line billing tier.",
		PhoneNumber: "206-555-9876",
		AccountData: []billing.Line{
			{RatePlan: "Go5G Plus (L1)", MRC: billing.Amount(150), Features: 18, EIP: 35, Autopay: true},
			{RatePlan: "Go5G Plus (L2)", MRC: billing.Included(), Features: 18, EIP: 35, Autopay: true},
			{RatePlan: "Go5G Plus (L3)", MRC: billing.Amount(35), Discount: 35, Features: 18, Autopay: true},
			{RatePlan: "Tablet Unl", MRC: billing.Amount(20), EIP: 15, DevicePromo: 15},
		},
	},
	{
		ID:          "h2",
		Title:       "Legacy Consolidation",
		Description: "An older family plan where lines were added over time. No free lines currently. This account is ripe for a Move to Go5G Plus and Hunting for 5.",
		PhoneNumber: "602-555-1234",
		AccountData: []billing.Line{
			{RatePlan: "Legacy (L1)", MRC: billing.Amount(100), Features: 9},
			{RatePlan: "Legacy (L2)", MRC: billing.Included(), Features: 9},
			{RatePlan: "Add-on (L3)", MRC: billing.Amount(20), EIP: 25, DevicePromo: 25},
		},
	},
}

// Builtins returns copies of the shipped scenarios.
func Builtins() []Scenario {
	out := make([]Scenario, 0, len(builtins))
	for _, s := range builtins {
		out = append(out, s.Clone())
	}
	return out
}
