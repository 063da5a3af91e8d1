package mail

import (
	"bytes"
	"fmt"
	html "html/template"
	text "text/template"

	"github.com/beatvault/beatvault-orders/internal/entity"
)

// RenderedEmail is the pure output of template key + language + payload.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

type templateDef struct {
	subject string
	body    string
}

// Key is "<template_key>/<lang>". Missing language falls back to English;
// missing key is a hard error for that job only.
var registry = map[string]templateDef{
	entity.TemplateLeadCreated + "/en": {
		subject: `Welcome to BeatVault, {{or .name "DJ"}} 🎧`,
		body:    `<h1>You're in.</h1><p>Your BeatVault account is ready. Finish checkout any time to unlock the full pool.</p>`,
	},
	entity.TemplateLeadCreated + "/es": {
		subject: `Bienvenido a BeatVault, {{or .name "DJ"}} 🎧`,
		body:    `<h1>Ya estás dentro.</h1><p>Tu cuenta de BeatVault está lista. Completa el pago cuando quieras.</p>`,
	},
	entity.TemplatePaymentConfirmed + "/en": {
		subject: `Payment confirmed — {{or .product "your order"}}`,
		body:    `<h1>Thank you{{with .name}}, {{.}}{{end}}!</h1><p>Your payment for <b>{{or .product "your order"}}</b> went through. You'll get a shipping update if your order includes physical media.</p>`,
	},
	entity.TemplatePaymentConfirmed + "/es": {
		subject: `Pago confirmado — {{or .product "tu pedido"}}`,
		body:    `<h1>¡Gracias{{with .name}}, {{.}}{{end}}!</h1><p>Recibimos tu pago de <b>{{or .product "tu pedido"}}</b>.</p>`,
	},
	entity.TemplateLabelCreated + "/en": {
		subject: `Your BeatVault USB is on its way`,
		body:    `<h1>Shipped soon!</h1><p>We printed your shipping label. Tracking number: <b>{{.tracking_number}}</b> ({{.carrier}}).</p>`,
	},
	entity.TemplateShippingUpdate + "/en": {
		subject: `Shipping update: {{.status}}`,
		body:    `<h1>Package update</h1><p>Your package {{.tracking_number}} is now <b>{{.status}}</b>.</p>`,
	},
	entity.TemplateAbandonedCart + "/en": {
		subject: `Your BeatVault order is waiting`,
		body:    `<h1>Still thinking it over?</h1><p>Your {{or .product "order"}} is one click away. Pick up where you left off.</p>`,
	},
}

// Render turns a job into subject/html/text. Pure: no I/O, same inputs same
// output.
func Render(templateKey, lang string, payload map[string]interface{}) (*RenderedEmail, error) {
	def, ok := registry[templateKey+"/"+lang]
	if !ok {
		def, ok = registry[templateKey+"/en"]
	}
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", templateKey)
	}

	subject, err := renderText(def.subject, payload)
	if err != nil {
		return nil, fmt.Errorf("render subject for %s: %w", templateKey, err)
	}
	body, err := renderHTML(def.body, payload)
	if err != nil {
		return nil, fmt.Errorf("render body for %s: %w", templateKey, err)
	}

	return &RenderedEmail{Subject: subject, HTML: body, Text: stripTags(body)}, nil
}

func renderText(tmpl string, data map[string]interface{}) (string, error) {
	t, err := text.New("subject").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := t.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}

func renderHTML(tmpl string, data map[string]interface{}) (string, error) {
	t, err := html.New("body").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := t.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}

// stripTags is a crude plain-text fallback, good enough for multipart alt.
func stripTags(s string) string {
	var out bytes.Buffer
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			out.WriteRune(' ')
		case !inTag:
			out.WriteRune(r)
		}
	}
	return out.String()
}
