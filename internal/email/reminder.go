package email

import (
	"bytes"
	"fmt"
	html "html/template"
	"strings"
	text "text/template"
)

// ReminderLine is a single cart row rendered in the reminder email.
type ReminderLine struct {
	Name            string
	Quantity        int
	UnitPrice       float64
	DiscountedPrice float64
}

// ReminderInput carries everything the reminder template needs.
type ReminderInput struct {
	RecipientName   string
	Lines           []ReminderLine
	Total           float64
	DiscountPercent float64
	DiscountedTotal float64
}

const reminderSubject = "You left something in your cart"

var reminderText = text.Must(text.New("reminder_text").Funcs(text.FuncMap{
	"money": formatMoney,
}).Parse(`Hi {{if .RecipientName}}{{.RecipientName}}{{else}}there{{end}},

You still have items waiting in your cart:

{{range .Lines}}  - {{.Name}} x{{.Quantity}} at {{money .UnitPrice}}{{if lt .DiscountedPrice .UnitPrice}} (now {{money .DiscountedPrice}}){{end}}
{{end}}
Cart total: {{money .Total}}
{{if gt .DiscountPercent 0.0}}Check out now and take {{printf "%.0f" .DiscountPercent}}% off: pay just {{money .DiscountedTotal}}.
{{end}}`))

var reminderHTML = html.Must(html.New("reminder_html").Funcs(html.FuncMap{
	"money": formatMoney,
}).Parse(`<p>Hi {{if .RecipientName}}{{.RecipientName}}{{else}}there{{end}},</p>
<p>You still have items waiting in your cart:</p>
<ul>
{{range .Lines}}<li>{{.Name}} &times;{{.Quantity}} at {{money .UnitPrice}}{{if lt .DiscountedPrice .UnitPrice}} (now <strong>{{money .DiscountedPrice}}</strong>){{end}}</li>
{{end}}</ul>
<p>Cart total: <strong>{{money .Total}}</strong></p>
{{if gt .DiscountPercent 0.0}}<p>Check out now and take {{printf "%.0f" .DiscountPercent}}% off: pay just <strong>{{money .DiscountedTotal}}</strong>.</p>
{{end}}`))

// RenderCartReminder produces the reminder message for the given recipient.
func RenderCartReminder(to string, input ReminderInput) (Message, error) {
	if strings.TrimSpace(to) == "" {
		return Message{}, fmt.Errorf("recipient address required")
	}

	var textBuf, htmlBuf bytes.Buffer
	if err := reminderText.Execute(&textBuf, input); err != nil {
		return Message{}, fmt.Errorf("render reminder text: %w", err)
	}
	if err := reminderHTML.Execute(&htmlBuf, input); err != nil {
		return Message{}, fmt.Errorf("render reminder html: %w", err)
	}

	return Message{
		To:       to,
		Subject:  reminderSubject,
		TextBody: textBuf.String(),
		HTMLBody: htmlBuf.String(),
	}, nil
}

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
