package email

import (
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
)

// Server is an SMTP relay. Auth is skipped when Username is empty.
type Server struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Message is one plain-text e-mail.
type Message struct {
	FromName    string
	FromAddress string
	To          string
	Subject     string
	Body        string
}

// Send delivers msg through srv.
func Send(srv Server, msg Message) error {
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid email address: %s", msg.To)
	}

	var auth smtp.Auth
	if srv.Username != "" {
		auth = smtp.PlainAuth("", srv.Username, srv.Password, srv.Host)
	}
	addr := fmt.Sprintf("%s:%d", srv.Host, srv.Port)
	return smtp.SendMail(addr, auth, msg.FromAddress, []string{msg.To}, Build(msg))
}

// Build renders msg as an RFC 5322 message with a UTF-8 text body.
func Build(msg Message) []byte {
	from := (&mail.Address{Name: msg.FromName, Address: msg.FromAddress}).String()
	body := strings.ReplaceAll(msg.Body, "\n", "\r\n")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
