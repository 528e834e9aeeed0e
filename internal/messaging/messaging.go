// Package messaging reads and sends direct messages between creators.
package messaging

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hyperbuds/hyperbuds-client/internal/apiclient"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

const (
	DefaultPageSize = 30
	MaxPageSize     = 100
	MaxMessageLen   = 4000
)

type Conversation struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	Title         string    `json:"title,omitempty"`
	LastMessage   *Message  `json:"lastMessage,omitempty"`
	UnreadCount   int       `json:"unreadCount,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt,omitzero"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId,omitempty"`
	SenderID       string    `json:"senderId,omitempty"`
	Text           string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`

	// Pending is set on a message shown before the backend confirmed it.
	Pending bool `json:"-"`
}

// PageRequest selects messages older than Before. A zero Before starts at the
// newest message.
type PageRequest struct {
	Before time.Time
	Limit  int
}

type Service struct {
	api apiclient.Caller
	now func() time.Time
}

type Option func(*Service)

// WithClock sets the clock used to time-stamp pending messages.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(api apiclient.Caller, opts ...Option) *Service {
	s := &Service{api: api, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Service) Conversations(ctx context.Context) ([]Conversation, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/conversations"})
	if err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}

	conversations, err := apiclient.DecodeItems[Conversation](resp, "conversations", "data")
	if err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}

	return conversations, nil
}

// Messages returns one page of a conversation, oldest first.
func (s *Service) Messages(ctx context.Context, conversationID string, page PageRequest) ([]Message, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}

	switch {
	case page.Limit == 0:
		page.Limit = DefaultPageSize
	case page.Limit < 0 || page.Limit > MaxPageSize:
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", serviceerr.ErrInvalidInput, MaxPageSize)
	}

	query := url.Values{"limit": []string{strconv.Itoa(page.Limit)}}
	if !page.Before.IsZero() {
		query.Set("before", page.Before.UTC().Format(time.RFC3339Nano))
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   messagesPath(conversationID),
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	messages, err := apiclient.DecodeItems[Message](resp, "messages", "data")
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	slices.SortStableFunc(messages, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return messages, nil
}

// Send posts text to a conversation and returns the stored message. When the backend
// accepts the message without echoing it, the returned message has no ID and is
// stamped with the local clock.
func (s *Service) Send(ctx context.Context, conversationID, text string) (Message, error) {
	if err := validateConversationID(conversationID); err != nil {
		return Message{}, err
	}

	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return Message{}, fmt.Errorf("%w: message is empty", serviceerr.ErrInvalidInput)
	case len([]rune(text)) > MaxMessageLen:
		return Message{}, fmt.Errorf("%w: message is longer than %d characters", serviceerr.ErrInvalidInput, MaxMessageLen)
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   messagesPath(conversationID),
		Body:   map[string]string{"content": text},
	})
	if err != nil {
		return Message{}, fmt.Errorf("sending message: %w", err)
	}

	m := Message{Text: text, CreatedAt: s.now()}
	if resp.Payload != nil {
		if err := apiclient.DecodeObject(resp, &m, "message", "data"); err != nil {
			return Message{}, fmt.Errorf("sending message: %w", err)
		}
	}
	if m.ConversationID == "" {
		m.ConversationID = conversationID
	}

	return m, nil
}

func validateConversationID(id string) error {
	if id == "" || strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("%w: invalid conversation id %q", serviceerr.ErrInvalidInput, id)
	}

	return nil
}

func messagesPath(conversationID string) string {
	return "/conversations/" + url.PathEscape(conversationID) + "/messages"
}
