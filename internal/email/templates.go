package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dukerupert/landlord/internal/notify"
)

type message struct {
	subject string
	html    string
	text    string
}

// Reminders up to this many days past the start of the month are friendly.
const friendlyReminderDays = 7

// KES formats an amount as Kenyan shillings, e.g. "KES 8,000".
func KES(amount float64) string {
	return "KES " + humanize.Commaf(amount)
}

var funcs = template.FuncMap{"kes": KES}

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`
<h2>Payment received</h2>
<p>Dear {{.TenantName}},</p>
<p>We have received your payment of <strong>{{kes .Amount}}</strong> for <strong>{{.HouseName}}</strong>.</p>
<table>
  <tr><td>Month</td><td>{{.Month}}</td></tr>
  <tr><td>Method</td><td>{{.Method}}</td></tr>
  {{if .Reference}}<tr><td>Reference</td><td>{{.Reference}}</td></tr>{{end}}
  {{if .Date}}<tr><td>Date</td><td>{{.Date}}</td></tr>{{end}}
</table>
<p>Thank you,<br>{{.Sender}}</p>`))

var reminderTmpl = template.Must(template.New("reminder").Funcs(funcs).Parse(`
<h2>{{.Heading}}</h2>
<p>Dear {{.TenantName}},</p>
<p>Our records show no rent payment for <strong>{{.HouseName}}</strong> for {{.Month}}.
The amount due is <strong>{{kes .Amount}}</strong>{{if .DaysOverdue}}, {{.DaysOverdue}} days into the month{{end}}.</p>
<p>If you have already paid, please ignore this message.</p>
<p>Regards,<br>{{.Sender}}</p>`))

var welcomeTmpl = template.Must(template.New("welcome").Funcs(funcs).Parse(`
<h2>Welcome to {{.HouseName}}</h2>
<p>Dear {{.TenantName}},</p>
<p>Welcome to your new home.{{if .Date}} Your move-in date is {{.Date}}.{{end}}</p>
<p>Monthly rent is <strong>{{kes .Amount}}</strong>, due at the start of each month.</p>
<p>Regards,<br>{{.Sender}}</p>`))

type view struct {
	notify.Event
	Month   string
	Heading string
	Sender  string
}

// monthName turns 2025-02 into "February 2025".
func monthName(ev notify.Event) string {
	if ev.Period == "" {
		return ""
	}
	t := ev.Period.Start(time.UTC)
	if t.IsZero() {
		return string(ev.Period)
	}
	return t.Format("January 2006")
}

func render(ev notify.Event, sender string) (message, error) {
	v := view{Event: ev, Month: monthName(ev), Sender: sender}

	var tmpl *template.Template
	var msg message
	switch ev.Kind {
	case notify.KindPaymentConfirmation:
		tmpl = confirmationTmpl
		msg.subject = fmt.Sprintf("Payment received: %s for %s", KES(ev.Amount), v.Month)
		msg.text = fmt.Sprintf("Dear %s,\n\nWe have received your payment of %s for %s (%s).\n\nThank you,\n%s",
			ev.TenantName, KES(ev.Amount), ev.HouseName, v.Month, sender)
	case notify.KindPaymentReminder:
		tmpl = reminderTmpl
		v.Heading = "Friendly Reminder"
		if ev.DaysOverdue > friendlyReminderDays {
			v.Heading = "Overdue Notice"
		}
		msg.subject = fmt.Sprintf("%s: rent for %s", v.Heading, v.Month)
		msg.text = fmt.Sprintf("Dear %s,\n\nRent of %s for %s is due for %s.\n\nRegards,\n%s",
			ev.TenantName, KES(ev.Amount), ev.HouseName, v.Month, sender)
	case notify.KindTenantWelcome:
		tmpl = welcomeTmpl
		msg.subject = fmt.Sprintf("Welcome to %s", ev.HouseName)
		msg.text = fmt.Sprintf("Dear %s,\n\nWelcome to %s. Monthly rent is %s.\n\nRegards,\n%s",
			ev.TenantName, ev.HouseName, KES(ev.Amount), sender)
	default:
		return message{}, fmt.Errorf("render email: unknown kind %q", ev.Kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return message{}, fmt.Errorf("render %s: %w", ev.Kind, err)
	}
	msg.html = strings.TrimSpace(buf.String())
	return msg, nil
}
