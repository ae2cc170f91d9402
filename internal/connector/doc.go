// Package connector defines the provider-agnostic envelope model and the
// contract every mail provider connector implements.
//
// Three variants live in sub-packages and are functionally interchangeable:
//   - gmail: Gmail REST API over OAuth2
//   - graph: Microsoft Graph REST API over OAuth2
//   - imapsmtp: IMAP fetch and SMTP submission
//
// The registry sub-package picks one at runtime from configuration.
//
// A connector's sync is read-only against the provider. Mapping a native
// record into an Envelope is best effort: a missing sender or subject becomes
// the empty string, a missing timestamp becomes the ingestion time and missing
// reply headers stay absent. A record that cannot be mapped is dropped from its
// batch without failing the rest of the page.
package connector
