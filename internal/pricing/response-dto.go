package pricing

type VenueTiersResponse struct {
	PricingTiers []PricingTier `json:"pricingTiers"`
}

type EventPricingResponse struct {
	PricingTiers []PricingTier `json:"pricingTiers"`
	Source       Source        `json:"source"`
}

type UpsertEventTiersResponse struct {
	Results []UpsertResult `json:"results"`
}
