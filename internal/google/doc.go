// Package google builds OAuth2 configuration and token sources for the Gmail
// connector.
//
// Credentials come from the connector secret (client id, client secret,
// redirect URI and a previously granted refresh token). The resulting HTTP
// client refreshes the access token transparently; a refresh failure surfaces
// as *oauth2.RetrieveError, which the connector layer maps to an expired
// authorization.
package google
