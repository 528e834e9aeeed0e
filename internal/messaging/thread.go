package messaging

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"

	"github.com/hyperbuds/hyperbuds-client/internal/optimistic"
	"github.com/hyperbuds/hyperbuds-client/internal/serviceerr"
)

const pendingIDPrefix = "pending-"

// ThreadState is what a conversation view shows: the messages, oldest first,
// and the text being composed.
type ThreadState struct {
	Messages []Message
	Draft    string
	// Exhausted is set once a page came back shorter than requested.
	Exhausted bool
}

// Thread is the local view of one conversation. Sending is optimistic: the message
// shows up before the backend confirmed it and disappears again if it did not.
type Thread struct {
	svc            *Service
	conversationID string
	pageSize       int
	store          *optimistic.Store[ThreadState]
}

func (s *Service) Thread(conversationID string) *Thread {
	return &Thread{
		svc:            s,
		conversationID: conversationID,
		pageSize:       DefaultPageSize,
		store:          optimistic.NewStore(ThreadState{}),
	}
}

func (t *Thread) State() ThreadState {
	return t.store.Get()
}

// Subscribe calls fn on every state change until the returned function is called.
func (t *Thread) Subscribe(fn func(ThreadState)) func() {
	return t.store.Subscribe(fn)
}

func (t *Thread) SetDraft(text string) {
	t.store.Update(func(s ThreadState) ThreadState {
		s.Draft = text
		return s
	})
}

// LoadOlder fetches the page before the oldest confirmed message and merges it into
// the thread. It returns the number of messages that were new.
func (t *Thread) LoadOlder(ctx context.Context) (int, error) {
	state := t.store.Get()
	if state.Exhausted {
		return 0, nil
	}

	page := PageRequest{Limit: t.pageSize}
	if oldest, ok := oldestConfirmed(state.Messages); ok {
		page.Before = oldest.CreatedAt
	}

	fetched, err := t.svc.Messages(ctx, t.conversationID, page)
	if err != nil {
		return 0, err
	}

	var added int
	t.store.Update(func(s ThreadState) ThreadState {
		s.Messages, added = merge(s.Messages, fetched)
		s.Exhausted = len(fetched) < t.pageSize
		return s
	})

	return added, nil
}

// SendDraft sends the current draft. The draft is cleared and a pending message
// appended right away; on success the pending message is replaced by the stored
// one, on failure it is removed and the draft restored.
func (t *Thread) SendDraft(ctx context.Context) (Message, error) {
	draft := t.store.Get().Draft
	if strings.TrimSpace(draft) == "" {
		return Message{}, fmt.Errorf("%w: message is empty", serviceerr.ErrInvalidInput)
	}

	pending := Message{
		ID:             pendingIDPrefix + uuid.NewString(),
		ConversationID: t.conversationID,
		Text:           strings.TrimSpace(draft),
		CreatedAt:      t.svc.now(),
		Pending:        true,
	}

	sent, err := optimistic.Execute(ctx, t.store, optimistic.Command[ThreadState, Message]{
		Apply: func(s ThreadState) ThreadState {
			s.Messages = append(slices.Clip(s.Messages), pending)
			s.Draft = ""
			return s
		},
		Confirm: func(ctx context.Context) (Message, error) {
			return t.svc.Send(ctx, t.conversationID, draft)
		},
		Commit: func(s ThreadState, sent Message) ThreadState {
			if sent.ID == "" {
				sent.ID = pending.ID
			}
			s.Messages = withoutID(s.Messages, pending.ID)
			s.Messages, _ = merge(s.Messages, []Message{sent})
			return s
		},
		Revert: func(s ThreadState) ThreadState {
			s.Messages = withoutID(s.Messages, pending.ID)
			s.Draft = draft
			return s
		},
	})
	if err != nil {
		slogctx.Warn(ctx, "Message not sent, draft restored", "conversation_id", t.conversationID, "error", err)
		return Message{}, err
	}

	return sent, nil
}

func oldestConfirmed(messages []Message) (Message, bool) {
	for _, m := range messages {
		if !m.Pending {
			return m, true
		}
	}

	return Message{}, false
}

// merge adds the messages of incoming that current does not hold yet and keeps the
// result ordered by creation time. Pending messages stay after confirmed ones
// created at the same time.
func merge(current, incoming []Message) ([]Message, int) {
	seen := make(map[string]struct{}, len(current))
	for _, m := range current {
		seen[m.ID] = struct{}{}
	}

	merged := slices.Clone(current)
	var added int
	for _, m := range incoming {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
		added++
	}

	slices.SortStableFunc(merged, func(a, b Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(boolRank(a.Pending), boolRank(b.Pending))
	})

	return merged, added
}

func withoutID(messages []Message, id string) []Message {
	return slices.DeleteFunc(slices.Clone(messages), func(m Message) bool { return m.ID == id })
}

func boolRank(b bool) int {
	if b {
		return 1
	}

	return 0
}
