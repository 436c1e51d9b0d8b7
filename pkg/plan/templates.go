package plan

import (
	"sort"

	"github.com/webpilot/webpilot/pkg/models"
)

// Template is a reusable plan skeleton with explicit dependency wiring.
type Template struct {
	Name        string
	Description string
	Steps       []StepSpec
}

// Templates returns the catalog names in sorted order.
func Templates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// TemplateByName returns the catalog entry for a name.
func TemplateByName(name string) (Template, bool) {
	tmpl, ok := templates[name]

	return tmpl, ok
}

var templates = map[string]Template{
	"login_flow": {
		Name:        "Complete Login Flow",
		Description: "Test full login workflow with validation",
		Steps: []StepSpec{
			{ID: "step1", Name: "Navigate to login page", Kind: models.StepKindNavigate},
			{ID: "step2", Name: "Enter username", Kind: models.StepKindType, Locator: "#username", Value: "testuser", DependsOn: []string{"step1"}},
			{ID: "step3", Name: "Enter password", Kind: models.StepKindType, Locator: "#password", Value: "testpass", DependsOn: []string{"step2"}},
			{ID: "step4", Name: "Click login button", Kind: models.StepKindClick, Locator: "#login-btn", DependsOn: []string{"step3"}},
			{ID: "step5", Name: "Verify login success", Kind: models.StepKindVerify, Expected: "dashboard", DependsOn: []string{"step4"}},
		},
	},
	"form_submission": {
		Name:        "Form Submission Flow",
		Description: "Test complete form submission with validation",
		Steps: []StepSpec{
			{ID: "step1", Name: "Fill first name", Kind: models.StepKindType, Locator: "#first-name", Value: "John"},
			{ID: "step2", Name: "Fill last name", Kind: models.StepKindType, Locator: "#last-name", Value: "Doe"},
			{ID: "step3", Name: "Fill email", Kind: models.StepKindType, Locator: "#email", Value: "john@example.com"},
			{ID: "step4", Name: "Select country", Kind: models.StepKindSelect, Locator: "#country", Value: "US"},
			{ID: "step5", Name: "Submit form", Kind: models.StepKindClick, Locator: "#submit", DependsOn: []string{"step1", "step2", "step3", "step4"}},
			{ID: "step6", Name: "Verify submission", Kind: models.StepKindVerify, Expected: "success message", DependsOn: []string{"step5"}},
		},
	},
	"search_flow": {
		Name:        "Search and Filter Flow",
		Description: "Test search with filters and pagination",
		Steps: []StepSpec{
			{ID: "step1", Name: "Enter search query", Kind: models.StepKindType, Locator: "#search-input", Value: "test query"},
			{ID: "step2", Name: "Click search button", Kind: models.StepKindClick, Locator: "#search-btn", DependsOn: []string{"step1"}},
			{ID: "step3", Name: "Wait for results", Kind: models.StepKindWait, Value: "2", DependsOn: []string{"step2"}},
			{ID: "step4", Name: "Apply filter", Kind: models.StepKindClick, Locator: "#filter-option", DependsOn: []string{"step3"}},
			{ID: "step5", Name: "Verify filtered results", Kind: models.StepKindVerify, Expected: "filtered items", DependsOn: []string{"step4"}},
		},
	},
	"e_commerce_checkout": {
		Name:        "E-commerce Checkout Flow",
		Description: "Complete checkout process from cart to payment",
		Steps: []StepSpec{
			{ID: "step1", Name: "Add item to cart", Kind: models.StepKindClick, Locator: ".add-to-cart"},
			{ID: "step2", Name: "Go to cart", Kind: models.StepKindClick, Locator: "#cart-icon", DependsOn: []string{"step1"}},
			{ID: "step3", Name: "Proceed to checkout", Kind: models.StepKindClick, Locator: "#checkout-btn", DependsOn: []string{"step2"}},
			{ID: "step4", Name: "Fill shipping address", Kind: models.StepKindType, Locator: "#address", Value: "123 Main St", DependsOn: []string{"step3"}},
			{ID: "step5", Name: "Select shipping method", Kind: models.StepKindClick, Locator: "#standard-shipping", DependsOn: []string{"step4"}},
			{ID: "step6", Name: "Continue to payment", Kind: models.StepKindClick, Locator: "#continue-payment", DependsOn: []string{"step5"}},
			{ID: "step7", Name: "Enter card number", Kind: models.StepKindType, Locator: "#card-number", Value: "4111111111111111", DependsOn: []string{"step6"}},
			{ID: "step8", Name: "Complete purchase", Kind: models.StepKindClick, Locator: "#complete-purchase", DependsOn: []string{"step7"}},
			{ID: "step9", Name: "Verify order confirmation", Kind: models.StepKindVerify, Expected: "order confirmation", DependsOn: []string{"step8"}},
		},
	},
}
