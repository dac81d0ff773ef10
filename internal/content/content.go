// Package content holds the static marketing copy of the site: hero,
// pricing tiers, process timeline, services and payment information.
package content

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed site.yaml
var siteYAML []byte

// Catalog is the full static content of the site
type Catalog struct {
	Brand               Brand           `yaml:"brand"`
	Hero                Hero            `yaml:"hero"`
	Navigation          []NavItem       `yaml:"navigation"`
	DefaultTier         string          `yaml:"default_tier"`
	PricingTiers        []PricingTier   `yaml:"pricing_tiers"`
	ProcessSteps        []ProcessStep   `yaml:"process_steps"`
	ContactProjectTypes []string        `yaml:"contact_project_types"`
	IoTServices         []Card          `yaml:"iot_services"`
	PaymentMethods      []Card          `yaml:"payment_methods"`
	PaymentPractices    []PaymentAdvice `yaml:"payment_practices"`
}

type Brand struct {
	Name          string `yaml:"name"`
	Logo          string `yaml:"logo"`
	Owner         string `yaml:"owner"`
	CopyrightYear int    `yaml:"copyright_year"`
}

type Hero struct {
	Title   string   `yaml:"title"`
	Lines   []string `yaml:"lines"`
	CTA     string   `yaml:"cta"`
	CTAHref string   `yaml:"cta_href"`
}

type NavItem struct {
	Href  string `yaml:"href"`
	Label string `yaml:"label"`
}

// PricingTier is one selectable package. Name doubles as the
// project_type recorded on quotes.
type PricingTier struct {
	Key      string   `yaml:"key"`
	Name     string   `yaml:"name"`
	Price    string   `yaml:"price"`
	Pages    string   `yaml:"pages"`
	Features []string `yaml:"features"`
}

type ProcessStep struct {
	Step        int    `yaml:"step"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Duration    string `yaml:"duration"`
}

type Card struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type PaymentAdvice struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Points      []string `yaml:"points"`
}

// Load parses the embedded site content
func Load() (*Catalog, error) {
	return Parse(siteYAML)
}

// MustLoad is Load for package init and tests
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes and checks a content document
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse site content: %w", err)
	}
	if len(c.PricingTiers) == 0 {
		return nil, fmt.Errorf("site content has no pricing tiers")
	}
	seen := make(map[string]bool, len(c.PricingTiers))
	for _, tier := range c.PricingTiers {
		if tier.Key == "" || tier.Name == "" {
			return nil, fmt.Errorf("pricing tier needs a key and a name")
		}
		if seen[tier.Key] {
			return nil, fmt.Errorf("duplicate pricing tier %q", tier.Key)
		}
		seen[tier.Key] = true
	}
	if !seen[c.DefaultTier] {
		return nil, fmt.Errorf("default tier %q is not a pricing tier", c.DefaultTier)
	}
	if len(c.ContactProjectTypes) == 0 {
		return nil, fmt.Errorf("site content has no contact project types")
	}
	return &c, nil
}

// Tier returns the tier for key, falling back to the default tier for
// unknown keys. The second result reports whether key matched.
func (c *Catalog) Tier(key string) (PricingTier, bool) {
	var fallback PricingTier
	for _, tier := range c.PricingTiers {
		if tier.Key == key {
			return tier, true
		}
		if tier.Key == c.DefaultTier {
			fallback = tier
		}
	}
	return fallback, false
}

// DefaultContactProjectType is the preselected contact form option
func (c *Catalog) DefaultContactProjectType() string {
	if len(c.ContactProjectTypes) == 0 {
		return ""
	}
	return c.ContactProjectTypes[0]
}

// IsContactProjectType reports whether v is one of the contact form options
func (c *Catalog) IsContactProjectType(v string) bool {
	for _, t := range c.ContactProjectTypes {
		if t == v {
			return true
		}
	}
	return false
}
