package service

import (
	"strings"

	"github.com/lumenpos/finengine/internal/domain"
)

// ActivityClassifier routes a transaction into an operating, investing
// or financing bucket. An explicit category taxonomy is consulted
// first; the keyword heuristic over category/description is retained
// only as a fallback for uncategorized imports.
type ActivityClassifier struct {
	taxonomy map[string]string // category -> activity
}

// defaultTaxonomy maps the categories the POS emits at
// transaction-creation time. Decided at entry time, not inferred.
var defaultTaxonomy = map[string]string{
	"sales":            domain.ActivityOperating,
	"class_fees":       domain.ActivityOperating,
	"supplier":         domain.ActivityOperating,
	"salary":           domain.ActivityOperating,
	"rent":             domain.ActivityOperating,
	"utilities":        domain.ActivityOperating,
	"equipment":        domain.ActivityInvesting,
	"asset_sale":       domain.ActivityInvesting,
	"loan":             domain.ActivityFinancing,
	"loan_repayment":   domain.ActivityFinancing,
	"owner_draw":       domain.ActivityFinancing,
	"owner_investment": domain.ActivityFinancing,
}

var investingKeywords = []string{"equipment", "asset", "machinery", "furniture"}
var financingKeywords = []string{"loan", "owner", "dividend", "capital", "investment"}

// NewActivityClassifier builds a classifier. Extra taxonomy entries
// override the defaults, so deployments can pin their own categories
// without touching the heuristic.
func NewActivityClassifier(extra map[string]string) *ActivityClassifier {
	taxonomy := make(map[string]string, len(defaultTaxonomy)+len(extra))
	for k, v := range defaultTaxonomy {
		taxonomy[k] = v
	}
	for k, v := range extra {
		taxonomy[k] = v
	}
	return &ActivityClassifier{taxonomy: taxonomy}
}

// Classify returns the activity bucket for a transaction. The explicit
// category mapping wins; keyword matching over category and
// description is the import-era fallback. Anything unmatched is
// operating.
func (c *ActivityClassifier) Classify(t *domain.Transaction) string {
	if activity, ok := c.taxonomy[strings.ToLower(t.Category)]; ok {
		return activity
	}

	haystack := strings.ToLower(t.Category + " " + t.Description)
	for _, kw := range investingKeywords {
		if strings.Contains(haystack, kw) {
			return domain.ActivityInvesting
		}
	}
	for _, kw := range financingKeywords {
		if strings.Contains(haystack, kw) {
			return domain.ActivityFinancing
		}
	}
	return domain.ActivityOperating
}
