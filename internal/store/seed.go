package store

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/mailchat/internal/domain"
)

// OwnerAddress is the demo mailbox owner used by the seed data.
const OwnerAddress = "you@mailchat.dev"

// SeedData returns the demo threads and messages with timestamps relative
// to now.
func SeedData(now time.Time) ([]domain.Thread, []domain.Message) {
	ago := func(minutes int) time.Time {
		return now.Add(-time.Duration(minutes) * time.Minute).UTC()
	}
	summary := func(s string, actions, entities []string) domain.Summary {
		if actions == nil {
			actions = []string{}
		}
		if entities == nil {
			entities = []string{}
		}
		return domain.Summary{Summary: s, ActionItems: actions, Entities: entities}
	}
	class := func(c domain.Category, priority, confidence float64, reasoning string) domain.Classification {
		return domain.Classification{Category: c, PriorityScore: priority, Confidence: confidence, Reasoning: reasoning}
	}

	threads := []domain.Thread{
		{
			ID:                 "thread-lucy",
			ContactName:        "Lucy Bennett",
			ContactEmail:       "lucy@northstar.studio",
			Subject:            "Q1 launch narrative",
			Category:           domain.CategoryWork,
			PriorityScore:      0.91,
			UnreadCount:        1,
			LastMessageAt:      ago(3),
			LastSummaryPreview: "Lucy locked narrative v4 and needs final sign-off before Monday 10:00.",
		},
		{
			ID:                 "thread-newsletter",
			ContactName:        "Notion Weekly",
			ContactEmail:       "newsletter@notion.so",
			Subject:            "Product updates you missed",
			Category:           domain.CategoryNewsletter,
			PriorityScore:      0.21,
			UnreadCount:        1,
			LastMessageAt:      ago(49),
			LastSummaryPreview: "Weekly product digest with templates, AI docs, and community highlights.",
		},
		{
			ID:                 "thread-ops",
			ContactName:        "CloudOps Alerts",
			ContactEmail:       "alerts@cloudops.io",
			Subject:            "Latency spike on mail ingestion",
			Category:           domain.CategoryNotification,
			PriorityScore:      0.74,
			IsMuted:            true,
			LastMessageAt:      ago(90),
			LastSummaryPreview: "Service recovered after 7 minutes. Root cause points to Redis failover.",
		},
	}

	messages := []domain.Message{
		{
			ID:              "msg-lucy-1",
			ThreadID:        "thread-lucy",
			MessageIDHeader: "<msg-lucy-1@mailchat.dev>",
			FromAddress:     "lucy@northstar.studio",
			ToAddresses:     []string{OwnerAddress},
			Subject:         "Q1 launch narrative",
			BodyText:        "Hey team, v4 now reflects legal edits and the investor CTA. I need your approval before Monday 10:00 so design can freeze visuals.",
			Direction:       domain.DirectionInbound,
			DeliveryStatus:  domain.DeliveryDelivered,
			SentAt:          ago(5),
			ReceivedAt:      ago(5),
			Summary:         summary("Narrative v4 is final and waiting on your approval before Monday 10:00.", []string{"Approve or request edits before Monday 10:00"}, []string{"Q1 launch", "investor CTA"}),
			Classification:  class(domain.CategoryWork, 0.91, 0.92, "Project/collaboration language with deadline."),
		},
		{
			ID:              "msg-lucy-2",
			ThreadID:        "thread-lucy",
			MessageIDHeader: "<msg-lucy-2@mailchat.dev>",
			FromAddress:     OwnerAddress,
			ToAddresses:     []string{"lucy@northstar.studio"},
			Subject:         "Q1 launch narrative",
			BodyText:        "Looks good overall. Send me the final bullet list and I can approve in 30 minutes.",
			Direction:       domain.DirectionOutbound,
			DeliveryStatus:  domain.DeliveryDelivered,
			IsRead:          true,
			SentAt:          ago(3),
			ReceivedAt:      ago(3),
			Summary:         summary("You requested the final bullet list before approval.", nil, nil),
			Classification:  class(domain.CategoryWork, 0.88, 0.9, "Reply in active project thread."),
		},
		{
			ID:              "msg-newsletter-1",
			ThreadID:        "thread-newsletter",
			MessageIDHeader: "<msg-newsletter-1@mailchat.dev>",
			FromAddress:     "newsletter@notion.so",
			ToAddresses:     []string{OwnerAddress},
			Subject:         "Product updates you missed",
			BodyText:        "This week: AI writing updates, database automations, and top community templates.",
			Direction:       domain.DirectionInbound,
			DeliveryStatus:  domain.DeliveryDelivered,
			SentAt:          ago(49),
			ReceivedAt:      ago(49),
			Summary:         summary("Weekly digest with product updates and templates.", nil, nil),
			Classification:  class(domain.CategoryNewsletter, 0.21, 0.95, "Bulk newsletter signatures and marketing cadence."),
		},
		{
			ID:              "msg-ops-1",
			ThreadID:        "thread-ops",
			MessageIDHeader: "<msg-ops-1@mailchat.dev>",
			FromAddress:     "alerts@cloudops.io",
			ToAddresses:     []string{OwnerAddress},
			Subject:         "Latency spike on mail ingestion",
			BodyText:        "Incident 4338 resolved. Ingestion p95 reached 2.4s between 14:03 and 14:10 UTC. Likely cause: Redis failover churn.",
			Direction:       domain.DirectionInbound,
			DeliveryStatus:  domain.DeliveryDelivered,
			IsRead:          true,
			SentAt:          ago(90),
			ReceivedAt:      ago(90),
			Summary:         summary("Incident recovered; temporary ingestion latency spike due to Redis failover.", nil, nil),
			Classification:  class(domain.CategoryNotification, 0.74, 0.89, "Automated alert format and incident metadata."),
		},
	}

	return threads, messages
}

// Seed loads the demo data into s. Threads that already exist are skipped,
// so seeding twice is harmless.
func Seed(ctx context.Context, s Store, now time.Time) error {
	threads, messages := SeedData(now)

	for i := range threads {
		t := threads[i]
		if _, err := s.GetThread(ctx, t.ID); err == nil {
			continue
		}
		if err := s.CreateThread(ctx, &t); err != nil {
			return fmt.Errorf("failed to seed thread %s: %w", t.ID, err)
		}
		for j := range messages {
			if messages[j].ThreadID != t.ID {
				continue
			}
			if err := s.AppendMessage(ctx, &messages[j]); err != nil {
				return fmt.Errorf("failed to seed message %s: %w", messages[j].ID, err)
			}
		}
	}
	return nil
}
