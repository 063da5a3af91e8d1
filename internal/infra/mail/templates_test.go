package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

func TestRenderPaymentConfirmed(t *testing.T) {
	rendered, err := Render(entity.TemplatePaymentConfirmed, "en", map[string]interface{}{
		"name":    "DJ Example",
		"product": "BeatVault 128GB USB Library",
	})

	assert.NoError(t, err)
	assert.Contains(t, rendered.Subject, "BeatVault 128GB USB Library")
	assert.Contains(t, rendered.HTML, "DJ Example")
	assert.Contains(t, rendered.Text, "DJ Example")
	assert.NotContains(t, rendered.Text, "<h1>")
}

func TestRenderFallsBackToEnglish(t *testing.T) {
	rendered, err := Render(entity.TemplateLabelCreated, "es", map[string]interface{}{
		"tracking_number": "940011",
		"carrier":         "usps",
	})

	assert.NoError(t, err)
	assert.Contains(t, rendered.HTML, "940011")
	assert.Contains(t, rendered.Subject, "USB")
}

func TestRenderSpanishWhenAvailable(t *testing.T) {
	rendered, err := Render(entity.TemplateLeadCreated, "es", map[string]interface{}{"name": "Ana"})

	assert.NoError(t, err)
	assert.Contains(t, rendered.Subject, "Bienvenido")
	assert.Contains(t, rendered.Subject, "Ana")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("no_such_template", "en", nil)

	assert.Error(t, err)
}

func TestRenderTolerantOfMissingPayload(t *testing.T) {
	rendered, err := Render(entity.TemplatePaymentConfirmed, "en", nil)

	assert.NoError(t, err)
	assert.Contains(t, rendered.Subject, "your order")
}
