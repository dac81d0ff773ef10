package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.PricingTiers, 3)
	assert.Len(t, c.ProcessSteps, 4)
	assert.Len(t, c.PaymentMethods, 3)
	assert.Equal(t, "Corporate Website", c.ContactProjectTypes[0])
	assert.Equal(t, "4-8 weeks", c.ProcessSteps[2].Duration)
}

func TestTierLookup(t *testing.T) {
	c := MustLoad()

	tier, ok := c.Tier("premium")
	assert.True(t, ok)
	assert.Equal(t, "Premium Business", tier.Name)

	tier, ok = c.Tier("enterprise")
	assert.True(t, ok)
	assert.Equal(t, "Enterprise Solution", tier.Name)

	tier, ok = c.Tier("gold")
	assert.False(t, ok)
	assert.Equal(t, "Standard Corporate", tier.Name)
}

func TestIsContactProjectType(t *testing.T) {
	c := MustLoad()
	assert.True(t, c.IsContactProjectType("Web Application"))
	assert.False(t, c.IsContactProjectType("Mobile App"))
}

func TestParseRejectsBadDefaultTier(t *testing.T) {
	_, err := Parse([]byte(`
default_tier: gold
pricing_tiers:
  - {key: basic, name: Basic}
contact_project_types: [Other]
`))
	assert.ErrorContains(t, err, "default tier")
}

func TestParseRejectsDuplicateTier(t *testing.T) {
	_, err := Parse([]byte(`
default_tier: basic
pricing_tiers:
  - {key: basic, name: Basic}
  - {key: basic, name: Again}
contact_project_types: [Other]
`))
	assert.ErrorContains(t, err, "duplicate")
}

func TestParseRejectsMissingContactProjectTypes(t *testing.T) {
	_, err := Parse([]byte(`
default_tier: basic
pricing_tiers:
  - {key: basic, name: Basic}
`))
	assert.ErrorContains(t, err, "contact project types")
}

func TestDefaultContactProjectType(t *testing.T) {
	assert.Equal(t, "Corporate Website", MustLoad().DefaultContactProjectType())
	assert.Equal(t, "", (&Catalog{}).DefaultContactProjectType())
}
