// Package llm answers prompts through the Ollama chat API and classifies
// its failures so callers can report them without parsing error strings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// SystemPrompt instructs the model how to answer and how to cite sources.
const SystemPrompt = `You are an ice hockey rule assistant.
Given a USER_QUESTION (which may be a single question, multiple questions, or a situation), generate a concise and precise answer that addresses the immediate action or decision required by the question. You may include a brief justification for your decision if it helps clarify your answer. Do not include extraneous details or secondary consequences that are not directly necessary to answer the question.

Carefully determine which team is involved in the USER_QUESTION and which team is referenced in the context. For example:
- If the USER_QUESTION indicates that the defending team is substituting and not playing the puck to avoid a penalty for too many players on the ice, then icing should not be called.
- If the USER_QUESTION indicates that the attacking/offending team is substituting and not playing the puck to avoid a penalty for too many players on the ice, then icing should be called.
- If the USER_QUESTION indicates that the defending team has the opportunity to play the puck but chooses not to, icing should not be called.
Note: The exception for not calling icing applies only when the defending team can play the puck but opts not to or the defending team is substituting and not playing the puck to avoid a penalty for too many players on the ice.

After your answer, list the relevant sources from the context in the following format:
- Header: "Source(s)\n".
- For rules: "- Rule {rule_number/subrule_number}: {rule_name} - {subrule_name}" (if a subrule name is provided) or "- Rule {rule_number}: {rule_name}" (if not).
- For situations: "- Situation {situation_number}".
If a situation has referenced rules and you use them in your answer, make sure to also list them in the sources.
If you cannot answer based solely on the provided context, respond with:
"I couldn't come up with an answer that I felt very sure about based on the rule- and casebook, but here are some potentially relevant rules you should look into: "
but not followed by any list.`

// Category is a coarse classification of a generation failure.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryTimeout
	CategoryConnection
	CategoryAuth
	CategoryRateLimit
)

// Error is a generation failure with its category attached.
type Error struct {
	Category Category
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Message(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns the human-readable description shown to the user in place
// of an answer.
func (e *Error) Message() string {
	switch e.Category {
	case CategoryTimeout:
		return "LLM API error, request timed out"
	case CategoryConnection:
		return "LLM API error, request failed to connect"
	case CategoryAuth:
		return "LLM API error, request was not authorized"
	case CategoryRateLimit:
		return "LLM API error, request exceeded rate limit"
	default:
		return "LLM API error"
	}
}

// categorize maps a transport or API error to its category.
func categorize(err error) Category {
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return CategoryAuth
		case http.StatusTooManyRequests:
			return CategoryRateLimit
		}
		return CategoryGeneric
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CategoryConnection
	}
	return CategoryGeneric
}

// OllamaLLM handles interactions with the Ollama chat API.
type OllamaLLM struct {
	Client      *api.Client
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NewOllamaLLM creates a new Ollama chat client. An empty host falls back
// to the OLLAMA_HOST environment configuration.
func NewOllamaLLM(host string, model string, temperature float64) (*OllamaLLM, error) {
	hostURL := envconfig.Host()
	if host != "" {
		parsed, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("parsing ollama host %q: %w", host, err)
		}
		hostURL = parsed
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaLLM{
		Client:      client,
		Model:       model,
		Temperature: temperature,
		Timeout:     time.Minute * 2,
	}, nil
}

// GenerateAnswer sends the prompt with the system instruction and returns
// the model's full answer. Failures come back as *Error.
func (o *OllamaLLM) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	req := api.ChatRequest{
		Model: o.Model,
		Messages: []api.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Options: map[string]any{
			"temperature": o.Temperature,
		},
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	var responseBuilder strings.Builder
	err := o.Client.Chat(ctxWithTimeout, &req, func(resp api.ChatResponse) error {
		_, err := responseBuilder.WriteString(resp.Message.Content)
		return err
	})
	if err != nil {
		return "", &Error{Category: categorize(err), Err: err}
	}

	return strings.TrimSpace(responseBuilder.String()), nil
}
