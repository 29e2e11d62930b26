package service_test

import (
	"testing"

	"github.com/lumenpos/finengine/internal/domain"
	"github.com/lumenpos/finengine/internal/service"
)

func TestClassifyTaxonomyBeatsKeywords(t *testing.T) {
	c := service.NewActivityClassifier(map[string]string{
		// Category that would keyword-match financing ("loan") but is
		// explicitly mapped to operating.
		"staff_loan_repayment": domain.ActivityOperating,
	})

	got := c.Classify(&domain.Transaction{
		Category:    "staff_loan_repayment",
		Description: "monthly loan repayment from staff",
	})
	if got != domain.ActivityOperating {
		t.Errorf("explicit taxonomy must win over keywords, got %q", got)
	}
}

func TestClassifyDefaults(t *testing.T) {
	c := service.NewActivityClassifier(nil)

	tests := []struct {
		category    string
		description string
		want        string
	}{
		{"sales", "daily class sales", domain.ActivityOperating},
		{"rent", "studio rent march", domain.ActivityOperating},
		{"equipment", "new reformer", domain.ActivityInvesting},
		{"loan_repayment", "bank loan instalment", domain.ActivityFinancing},
		{"misc", "bought new machinery part", domain.ActivityInvesting}, // keyword fallback
		{"misc", "owner draw for march", domain.ActivityFinancing},      // keyword fallback
		{"misc", "coffee for the front desk", domain.ActivityOperating}, // default
	}

	for _, tt := range tests {
		got := c.Classify(&domain.Transaction{Category: tt.category, Description: tt.description})
		if got != tt.want {
			t.Errorf("Classify(%q, %q) = %q, want %q", tt.category, tt.description, got, tt.want)
		}
	}
}
