package mailer

import (
	"bytes"
	"errors"
	"net"
	"net/textproto"
	"testing"

	"mainsite/internal/config"
	"mainsite/internal/database"
)

func testConfigs() (config.SMTPConfig, config.MailConfig) {
	smtp := config.SMTPConfig{Host: "smtp.example.invalid", Port: 587, Username: "site", Password: "secret"}
	mail := config.MailConfig{
		Sender:           "site@example.invalid",
		JobAlertReceiver: "jobs@example.invalid",
		ContactReceiver:  "inbox@example.invalid",
	}
	return smtp, mail
}

func TestTemplatesRenderEntities(t *testing.T) {
	smtp, mail := testConfigs()
	mailer, err := New(smtp, mail)
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}

	var body bytes.Buffer
	track := database.CompanyTrack{CompanyName: "Initech", Position: "SRE", Country: "US", City: "Austin"}
	if err := mailer.templates.ExecuteTemplate(&body, "track.html", track); err != nil {
		t.Fatalf("render track template: %v", err)
	}
	if !bytes.Contains(body.Bytes(), []byte("Initech")) {
		t.Fatalf("expected company name in body, got %s", body.String())
	}

	body.Reset()
	contact := database.Contact{Name: "Jo", Email: "jo@x.com", Message: "hi <there>"}
	if err := mailer.templates.ExecuteTemplate(&body, "contact.html", contact); err != nil {
		t.Fatalf("render contact template: %v", err)
	}
	if !bytes.Contains(body.Bytes(), []byte("jo@x.com")) {
		t.Fatalf("expected sender address in body, got %s", body.String())
	}
	if bytes.Contains(body.Bytes(), []byte("<there>")) {
		t.Fatal("expected message content HTML-escaped")
	}
}

func TestClassify(t *testing.T) {
	smtpErr := &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	if got := classify(smtpErr); got != StatusRejected {
		t.Fatalf("smtp error: expected rejected, got %s", got)
	}
	if got := classify(&net.OpError{Op: "dial", Err: errors.New("refused")}); got != StatusUnreachable {
		t.Fatalf("dial error: expected unreachable, got %s", got)
	}
	if got := classify(errors.New("tls handshake failed")); got != StatusUnreachable {
		t.Fatalf("opaque error: expected unreachable, got %s", got)
	}
}

func TestOutcomeDelivered(t *testing.T) {
	if !(Outcome{Status: StatusDelivered}).Delivered() {
		t.Fatal("delivered outcome should report true")
	}
	if (Outcome{Status: StatusRejected, Err: errors.New("550")}).Delivered() {
		t.Fatal("rejected outcome should report false")
	}
}
