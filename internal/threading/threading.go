package threading

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/teemow/mailchat/internal/connector"
)

// DefaultDomain is the right-hand side of synthesized Message-ID headers.
const DefaultDomain = "mailchat.local"

// Key prefixes.
const (
	RefPrefix     = "ref:"
	SubjectPrefix = "sub:"
)

var (
	replyPrefix = regexp.MustCompile(`(?i)^(re|fwd):\s*`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// ResolveThreadKey returns the deterministic thread key of env.
func ResolveThreadKey(env connector.Envelope) string {
	if len(env.References) > 0 && strings.TrimSpace(env.References[0]) != "" {
		return RefPrefix + strings.TrimSpace(env.References[0])
	}
	if id := strings.TrimSpace(env.InReplyTo); id != "" {
		return RefPrefix + id
	}
	return SubjectPrefix + CanonicalSubject(env.Subject) + "::participants:" + strings.Join(Participants(env), "|")
}

// CanonicalSubject strips one leading Re:/Fwd: marker, normalizes to NFC,
// collapses whitespace and lowercases.
func CanonicalSubject(subject string) string {
	s := norm.NFC.String(subject)
	s = replyPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// Participants returns the sorted, lowercased, de-duplicated set of sender
// and recipients. Empty addresses are skipped.
func Participants(env connector.Envelope) []string {
	seen := make(map[string]struct{}, len(env.To)+1)
	var out []string
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	add(env.From)
	for _, to := range env.To {
		add(to)
	}
	sort.Strings(out)
	return out
}

// MessageHeaderID returns candidate when it is non-blank, otherwise a new
// globally unique Message-ID in angle brackets.
func MessageHeaderID(candidate string) string {
	return MessageHeaderIDWithDomain(candidate, DefaultDomain)
}

// MessageHeaderIDWithDomain is MessageHeaderID with a custom domain.
func MessageHeaderIDWithDomain(candidate, domain string) string {
	if c := strings.TrimSpace(candidate); c != "" {
		return c
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}
