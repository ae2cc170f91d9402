// Package graph implements the Microsoft Graph mail connector.
//
// Sync pages through /me/messages using @odata.nextLink as the cursor. Send
// creates a draft and then sends it, so the draft id is the remote message id.
package graph
