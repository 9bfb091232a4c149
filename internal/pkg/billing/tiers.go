package billing

import "strings"

// ProductTier describes a purchasable Creem product: either a recurring
// subscription tier or a one-time credits package.
type ProductTier struct {
	Name         string
	ID           string
	ProductID    string
	PriceMonthly string
	Description  string
	CreditAmount int64
	Features     []string
	Featured     bool
	DiscountCode string
}

// SubscriptionTiers are the recurring plans offered at checkout.
var SubscriptionTiers = []ProductTier{
	{
		Name:         "Starter",
		ID:           "tier-hobby",
		ProductID:    "prod_6CgYs8LOwKFmMJX7hMGJ8I",
		PriceMonthly: "$11",
		Description:  "Perfect for individual developers and small projects.",
		Features: []string{
			"Global authentication system",
			"Database integration",
			"Secure API routes",
			"Modern UI components",
			"Dark/Light mode",
			"Community forum access",
		},
	},
	{
		Name:         "Business",
		ID:           "tier-pro",
		ProductID:    "prod_6CgYs8LOwKFmMJX7hMGJ8I",
		PriceMonthly: "$29",
		Description:  "Ideal for growing businesses and development teams.",
		Features: []string{
			"Everything in Starter",
			"Multi-currency payments",
			"Priority support",
			"Advanced analytics",
			"Custom branding options",
			"API usage dashboard",
		},
		Featured: true,
	},
	{
		Name:         "Enterprise",
		ID:           "tier-enterprise",
		ProductID:    "prod_6CgYs8LOwKFmMJX7hMGJ8I",
		PriceMonthly: "$99",
		Description:  "For large organizations with advanced requirements.",
		Features: []string{
			"Everything in Business",
			"Dedicated account manager",
			"Custom implementation support",
			"High-volume transaction processing",
			"Advanced security features",
			"Service Level Agreement (SLA)",
		},
	},
}

// CreditsTiers are the one-time credit packages.
var CreditsTiers = []ProductTier{
	{
		Name:         "Basic Package",
		ID:           "tier-3-credits",
		ProductID:    "prod_737EX2fSZ2ASoeLJlnKjdV",
		PriceMonthly: "$9",
		Description:  "3 credits for testing and small-scale projects.",
		CreditAmount: 3,
		Features: []string{
			"3 credits for use across all features",
			"No expiration date",
			"Access to standard features",
			"Community support",
		},
	},
	{
		Name:         "Standard Package",
		ID:           "tier-6-credits",
		ProductID:    "prod_50HvzGAxArBa36GJ2PghrC",
		PriceMonthly: "$13",
		Description:  "6 credits for medium-sized applications.",
		CreditAmount: 6,
		Features: []string{
			"6 credits for use across all features",
			"No expiration date",
			"Priority processing",
			"Basic email support",
		},
		Featured: true,
	},
	{
		Name:         "Premium Package",
		ID:           "tier-9-credits",
		ProductID:    "prod_2yTCm1QFCMr5uM7wy22FxQ",
		PriceMonthly: "$29",
		Description:  "9 credits for larger applications and production use.",
		CreditAmount: 9,
		Features: []string{
			"9 credits for use across all features",
			"No expiration date",
			"Premium support",
			"Advanced analytics access",
		},
	},
}

// TierByID looks a tier up across both catalogs.
func TierByID(id string) (*ProductTier, bool) {
	id = strings.TrimSpace(id)
	for i := range SubscriptionTiers {
		if SubscriptionTiers[i].ID == id {
			return &SubscriptionTiers[i], true
		}
	}
	for i := range CreditsTiers {
		if CreditsTiers[i].ID == id {
			return &CreditsTiers[i], true
		}
	}
	return nil, false
}

// CreditsForProduct returns the credit amount granted by a product id, and
// whether the product is a credits package at all.
func CreditsForProduct(productID string) (int64, bool) {
	productID = strings.TrimSpace(productID)
	for i := range CreditsTiers {
		if CreditsTiers[i].ProductID == productID {
			return CreditsTiers[i].CreditAmount, true
		}
	}
	return 0, false
}

// IsCreditsTier reports whether the tier grants credits rather than a
// subscription.
func (t *ProductTier) IsCreditsTier() bool {
	return t.CreditAmount > 0
}
