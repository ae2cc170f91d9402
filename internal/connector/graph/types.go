package graph

// Credentials is the Microsoft part of a connector secret. An access token
// alone is enough; with a refresh token and client credentials the token is
// refreshed against Azure AD.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
	Tenant       string `json:"tenant"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Message is the subset of a Graph message resource the connector reads.
type Message struct {
	ID                string      `json:"id"`
	Subject           string      `json:"subject"`
	From              *recipient  `json:"from,omitempty"`
	ToRecipients      []recipient `json:"toRecipients"`
	BodyPreview       string      `json:"bodyPreview"`
	Body              *itemBody   `json:"body,omitempty"`
	SentDateTime      string      `json:"sentDateTime"`
	ConversationID    string      `json:"conversationId"`
	InternetMessageID string      `json:"internetMessageId"`
}

type messagePage struct {
	Value    []Message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
}

type draftRequest struct {
	Subject      string      `json:"subject"`
	Body         itemBody    `json:"body"`
	ToRecipients []recipient `json:"toRecipients"`
}

type draftResponse struct {
	ID string `json:"id"`
}
