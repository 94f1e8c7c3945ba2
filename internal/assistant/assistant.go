// Package assistant holds the contract the lifecycle engine uses to obtain
// automated replies, and its LLM-backed implementations.
package assistant

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Role is the speaker of a transcript turn as the model sees it.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// analystPrefix marks human analyst turns, which reach the model as user turns.
const analystPrefix = "(Analyst): "

// Turn is one transcript entry.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Request carries everything the assistant needs to answer.
type Request struct {
	TicketCode    string
	Title         string
	Description   string
	Transcript    []Turn
	LatestMessage string
}

// Reply is the structured result. SuggestedCategory is empty when the model
// did not pick one.
type Reply struct {
	Text              string `json:"reply"`
	ShouldEscalate    bool   `json:"should_escalate"`
	SuggestedCategory string `json:"suggested_category"`
}

// Assistant generates a reply for a ticket conversation. Any error, whether
// a timeout, transport failure or malformed output, is treated the same by
// callers.
type Assistant interface {
	GenerateReply(ctx context.Context, req Request) (*Reply, error)
}

// ErrUnavailable is returned by Unavailable.
var ErrUnavailable = errors.New("assistant: no provider configured")

// Unavailable always fails, so every ticket falls through to a human.
type Unavailable struct{}

// GenerateReply always fails with ErrUnavailable.
func (Unavailable) GenerateReply(context.Context, Request) (*Reply, error) {
	return nil, ErrUnavailable
}

// TranscriptFrom converts stored messages, oldest first, into model turns.
func TranscriptFrom(messages []domain.Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		switch m.Sender.Kind {
		case domain.SenderAssistant:
			turns = append(turns, Turn{Role: RoleAssistant, Text: m.Content})
		case domain.SenderEmployee:
			turns = append(turns, Turn{Role: RoleUser, Text: analystPrefix + m.Content})
		default:
			turns = append(turns, Turn{Role: RoleUser, Text: m.Content})
		}
	}
	return turns
}
