package domain

import "time"

// Direction tells whether a message was received or sent by the mailbox owner.
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// DeliveryStatus tracks a message through delivery.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliverySent      DeliveryStatus = "SENT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

// Summary is the short gist of a message body.
type Summary struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"actionItems"`
	Entities    []string `json:"entities"`
}

// Classification labels a message body with a category and scores.
type Classification struct {
	Category      Category `json:"category"`
	Confidence    float64  `json:"confidence"`
	PriorityScore float64  `json:"priorityScore"`
	Reasoning     string   `json:"reasoning"`
}

// Thread is a conversation grouping. Category, PriorityScore and
// LastSummaryPreview are a denormalized copy of the latest classified message.
type Thread struct {
	ID                 string    `json:"id" db:"id"`
	ThreadKey          string    `json:"threadKey,omitempty" db:"thread_key"`
	ContactName        string    `json:"contactName" db:"contact_name"`
	ContactEmail       string    `json:"contactEmail" db:"contact_email"`
	Subject            string    `json:"subject" db:"subject"`
	Category           Category  `json:"category" db:"category"`
	PriorityScore      float64   `json:"priorityScore" db:"priority_score"`
	UnreadCount        int       `json:"unreadCount" db:"unread_count"`
	IsMuted            bool      `json:"isMuted" db:"is_muted"`
	IsArchived         bool      `json:"isArchived" db:"is_archived"`
	LastMessageAt      time.Time `json:"lastMessageAt" db:"last_message_at"`
	LastSummaryPreview string    `json:"lastSummaryPreview" db:"last_summary_preview"`
}

// Message is one stored email, inbound or outbound.
type Message struct {
	ID              string         `json:"id"`
	ThreadID        string         `json:"threadId"`
	MessageIDHeader string         `json:"messageIdHeader"`
	FromAddress     string         `json:"fromAddress"`
	ToAddresses     []string       `json:"toAddresses"`
	Subject         string         `json:"subject"`
	BodyText        string         `json:"bodyText"`
	BodyHTML        string         `json:"bodyHtml,omitempty"`
	Direction       Direction      `json:"direction"`
	DeliveryStatus  DeliveryStatus `json:"deliveryStatus"`
	IsRead          bool           `json:"isRead"`
	SentAt          time.Time      `json:"sentAt"`
	ReceivedAt      time.Time      `json:"receivedAt"`
	Summary         Summary        `json:"summary"`
	Classification  Classification `json:"classification"`
}

// ThreadPreview is the denormalized slice of a thread refreshed on every append.
type ThreadPreview struct {
	Category           Category
	PriorityScore      float64
	LastSummaryPreview string
	LastMessageAt      time.Time
}

// PreviewFrom builds the thread preview for a freshly classified message.
func PreviewFrom(m *Message) ThreadPreview {
	return ThreadPreview{
		Category:           m.Classification.Category,
		PriorityScore:      m.Classification.PriorityScore,
		LastSummaryPreview: m.Summary.Summary,
		LastMessageAt:      m.SentAt,
	}
}

// Clamp limits v to the closed unit interval.
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
