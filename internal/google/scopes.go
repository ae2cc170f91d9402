package google

import gmail "google.golang.org/api/gmail/v1"

// DefaultOAuthScopes are the scopes the Gmail connector needs: reading the
// mailbox and sending on the user's behalf.
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
}
