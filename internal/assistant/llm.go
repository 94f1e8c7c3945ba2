package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/gollem"
	"go.uber.org/zap"
)

const systemPrompt = `You are %s, the first-line technical support assistant of a helpdesk.
Answer the customer's latest message politely and technically, in the customer's language.
If the customer explicitly asks for a human, analyst or agent, or the problem needs hands-on work you cannot do,
set "should_escalate" to true and tell the customer the ticket is being forwarded to an analyst.
When escalating, set "suggested_category" to the support queue best suited for the problem
(for example "Infrastructure", "Software", "Network", "Access"); otherwise leave it empty.
Respond only with a JSON object: {"reply": string, "should_escalate": boolean, "suggested_category": string}.`

// LLM answers through any gollem client (Gemini, Claude).
type LLM struct {
	client  gollem.LLMClient
	name    string
	timeout time.Duration
	logger  *zap.Logger
}

// LLMDependencies bundles the LLM adapter inputs.
type LLMDependencies struct {
	Client gollem.LLMClient
	// DisplayName is how the assistant introduces itself.
	DisplayName string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewLLM builds the adapter. A zero Timeout means the caller's deadline only.
func NewLLM(deps LLMDependencies) *LLM {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &LLM{
		client:  deps.Client,
		name:    deps.DisplayName,
		timeout: deps.Timeout,
		logger:  deps.Logger,
	}
}

// GenerateReply asks the model for a structured reply to the latest message.
func (a *LLM) GenerateReply(ctx context.Context, req Request) (*Reply, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	session, err := a.client.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionSystemPrompt(fmt.Sprintf(systemPrompt, a.name)),
	)
	if err != nil {
		return nil, fmt.Errorf("create assistant session: %w", err)
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buildPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("generate assistant reply: %w", err)
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, errors.New("assistant returned no content")
	}

	reply, err := ParseReply(strings.Join(resp.Texts, ""))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("assistant reply generated",
		zap.String("ticket_code", req.TicketCode),
		zap.Bool("should_escalate", reply.ShouldEscalate),
		zap.String("suggested_category", reply.SuggestedCategory),
	)
	return reply, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s\nTitle: %s\nOriginal description: %s\n\nConversation so far:\n",
		req.TicketCode, req.Title, req.Description)
	for _, turn := range req.Transcript {
		fmt.Fprintf(&b, "[%s] %s\n", turn.Role, turn.Text)
	}
	fmt.Fprintf(&b, "\nLatest customer message:\n%s\n", req.LatestMessage)
	return b.String()
}

// ParseReply decodes the model output. Code fences around the JSON are
// tolerated; an empty reply text is an error.
func ParseReply(raw string) (*Reply, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var reply Reply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("malformed assistant reply: %w", err)
	}
	reply.Text = strings.TrimSpace(reply.Text)
	reply.SuggestedCategory = strings.TrimSpace(reply.SuggestedCategory)
	if reply.Text == "" {
		return nil, errors.New("assistant reply has no text")
	}
	return &reply, nil
}
