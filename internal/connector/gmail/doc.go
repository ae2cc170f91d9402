// Package gmail implements the Gmail API connector.
//
// Sync lists message ids with Users.Messages.List and then loads each message
// in full, in parallel, mapping it to a connector.Envelope. Send builds an
// RFC 2822 message and submits it with Users.Messages.Send.
package gmail
