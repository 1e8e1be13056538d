// Package mailer renders alert templates and hands them to the SMTP
// transport. Delivery is best effort: callers receive an Outcome and are
// expected to log and continue rather than fail the triggering request.
package mailer

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/textproto"

	"gopkg.in/gomail.v2"

	"mainsite/internal/config"
	"mainsite/internal/database"
)

//go:embed templates/*.html
var templateFS embed.FS

// Status classifies what happened to a dispatched message.
type Status int

const (
	StatusDelivered Status = iota
	// StatusRejected means the transport answered but refused the message
	// (bad recipient, template failure).
	StatusRejected
	// StatusUnreachable means the transport could not be reached at all.
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusRejected:
		return "rejected"
	default:
		return "unreachable"
	}
}

// Outcome is the result of one dispatch attempt.
type Outcome struct {
	Status Status
	Err    error
}

// Delivered reports whether the message was handed off successfully.
func (o Outcome) Delivered() bool { return o.Status == StatusDelivered }

// Dispatcher is what handlers depend on; satisfied by *Mailer and by test fakes.
type Dispatcher interface {
	CompanyTrackAlert(company database.CompanyTrack) Outcome
	ContactAlert(contact database.Contact) Outcome
}

// Mailer sends templated HTML alerts over SMTP.
type Mailer struct {
	dialer           *gomail.Dialer
	sender           string
	jobAlertReceiver string
	contactReceiver  string
	templates        *template.Template
}

// New parses the embedded templates and wires the SMTP dialer.
func New(smtp config.SMTPConfig, mail config.MailConfig) (*Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Mailer{
		dialer:           gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password),
		sender:           mail.Sender,
		jobAlertReceiver: mail.JobAlertReceiver,
		contactReceiver:  mail.ContactReceiver,
		templates:        templates,
	}, nil
}

// CompanyTrackAlert notifies the operator that a tracking link was opened.
func (m *Mailer) CompanyTrackAlert(company database.CompanyTrack) Outcome {
	subject := fmt.Sprintf("Company Track Alert - %s", company.CompanyName)
	return m.send(subject, m.jobAlertReceiver, "track.html", company)
}

// ContactAlert notifies the operator about a contact-form submission.
func (m *Mailer) ContactAlert(contact database.Contact) Outcome {
	subject := fmt.Sprintf("Contact Email - %s", contact.Name)
	return m.send(subject, m.contactReceiver, "contact.html", contact)
}

func (m *Mailer) send(subject, to, templateName string, data interface{}) Outcome {
	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return Outcome{Status: StatusRejected, Err: fmt.Errorf("render %s: %w", templateName, err)}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return Outcome{Status: classify(err), Err: fmt.Errorf("send %q to %s: %w", subject, to, err)}
	}
	return Outcome{Status: StatusDelivered}
}

// classify splits transport errors into recipient rejections (the server
// answered with an SMTP error) and unreachable transports (dial or protocol
// failure before an answer).
func classify(err error) Status {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return StatusRejected
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return StatusUnreachable
	}
	return StatusUnreachable
}
