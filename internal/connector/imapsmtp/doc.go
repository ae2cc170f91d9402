// Package imapsmtp implements the connector for plain mailboxes: IMAP for
// reading and SMTP submission for sending.
package imapsmtp
