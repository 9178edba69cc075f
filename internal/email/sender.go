// Package email sends recap emails over SMTP.
package email

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	gomail "github.com/wneessen/go-mail"
)

const recapSubject = "Your Consultation Recap"

const recapTemplate = `<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <p>Hi {{first_name}},</p>
    <p>{{recap_body}}</p>
    <p>&ndash; The SparkData Team</p>
  </body>
</html>`

// Sender delivers recap emails through a configured SMTP relay.
type Sender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
}

func NewSender(host string, port int, username, password, fromEmail, fromName string) *Sender {
	return &Sender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// renderRecap fills the template placeholders and builds the
// plain-text fallback.
func renderRecap(firstName, recapBody string) (html, text string) {
	html = strings.NewReplacer(
		"{{first_name}}", firstName,
		"{{recap_body}}", recapBody,
	).Replace(recapTemplate)
	text = "Hi " + firstName + ",\n\n" + recapBody + "\n\n- The SparkData Team"
	return html, text
}

// SendRecap renders the recap template and sends it with an HTML body
// plus a plain-text alternative.
func (s *Sender) SendRecap(ctx context.Context, toEmail, firstName, recapBody string) error {
	html, text := renderRecap(firstName, recapBody)

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return eris.Wrap(err, "email: from")
	}
	if err := msg.To(toEmail); err != nil {
		return eris.Wrap(err, "email: to")
	}
	msg.Subject(recapSubject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	msg.AddAlternativeString(gomail.TypeTextHTML, html)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return eris.Wrap(err, "email: smtp client")
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return eris.Wrap(err, "email: send")
	}
	return nil
}
