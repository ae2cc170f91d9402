package imapsmtp

import (
	"net"
	"strconv"
)

// Default ports for implicit TLS.
const (
	DefaultIMAPPort = 993
	DefaultSMTPPort = 465
)

// Credentials is the IMAP/SMTP part of a connector secret.
type Credentials struct {
	IMAPHost string `json:"imapHost"`
	IMAPPort int    `json:"imapPort"`
	SMTPHost string `json:"smtpHost"`
	SMTPPort int    `json:"smtpPort"`
	// Secure selects implicit TLS. Otherwise STARTTLS is used.
	Secure bool   `json:"secure"`
	User   string `json:"user"`
	Pass   string `json:"pass"`
}

func (c Credentials) imapAddr() string {
	port := c.IMAPPort
	if port == 0 {
		port = DefaultIMAPPort
	}
	return net.JoinHostPort(c.IMAPHost, strconv.Itoa(port))
}

func (c Credentials) smtpAddr() string {
	port := c.SMTPPort
	if port == 0 {
		port = DefaultSMTPPort
	}
	return net.JoinHostPort(c.SMTPHost, strconv.Itoa(port))
}
