package model

// ResourceOffer is what the broker advertises to the discovery service.
type ResourceOffer struct {
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Resource Resource `json:"resource"`
}

// SpotPriceResource is the commodity this broker sells: compute billed at
// the spot price, rebuyable after every interval.
func SpotPriceResource() Resource {
	return Resource{
		UserRequirements: []string{
			"correct spot_price < bid_price",
			`running_time is 30 => killed_by is "provider"`,
			"can_rebuy",
		},
		EvaluateProviderScript: ScriptDesc{
			File:    "correct_system.py",
			Outputs: []ScriptOutput{{Name: "correct", Type: "boolean"}},
		},
		Cost:            "spot_price",
		GetProviderData: []ScriptOutput{{Name: "spot_price", Type: "number"}},
	}
}
