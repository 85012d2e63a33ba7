// Package memory provides per-session chat history for multi-turn
// conversations.
package memory

import (
	"strings"
	"sync"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// conversation holds the message history for one session.
type conversation struct {
	messages  []Message
	updatedAt time.Time
}

// Store provides in-memory conversation storage with a per-session
// message cap and idle-session expiry.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxMessages   int
	ttl           time.Duration
	done          chan struct{}
	closeOnce     sync.Once
}

// NewStore creates a conversation store. Sessions idle longer than ttl
// are dropped by a background sweep that runs until Close.
func NewStore(maxMessages int, ttl time.Duration) *Store {
	s := &Store{
		conversations: make(map[string]*conversation),
		maxMessages:   maxMessages,
		ttl:           ttl,
		done:          make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweep. Safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// DefaultStore creates a store keeping at most 20 messages (10 turns)
// per session, expiring sessions after an hour of inactivity.
func DefaultStore() *Store {
	return NewStore(20, time.Hour)
}

// AddUserMessage appends a user message to the session.
func (s *Store) AddUserMessage(sessionID, content string) {
	s.add(sessionID, RoleUser, content)
}

// AddAssistantMessage appends an assistant message to the session.
func (s *Store) AddAssistantMessage(sessionID, content string) {
	s.add(sessionID, RoleAssistant, content)
}

func (s *Store) add(sessionID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &conversation{}
		s.conversations[sessionID] = conv
	}

	conv.messages = append(conv.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	conv.updatedAt = time.Now()

	if len(conv.messages) > s.maxMessages {
		conv.messages = conv.messages[len(conv.messages)-s.maxMessages:]
	}
}

// History returns a copy of the session's messages, nil if the session
// does not exist.
func (s *Store) History(sessionID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil
	}
	messages := make([]Message, len(conv.messages))
	copy(messages, conv.messages)
	return messages
}

// RecentHistory returns the last n messages of the session.
func (s *Store) RecentHistory(sessionID string, n int) []Message {
	history := s.History(sessionID)
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// ClearSession removes a session's history.
func (s *Store) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, conv := range s.conversations {
		if now.Sub(conv.updatedAt) > s.ttl {
			delete(s.conversations, id)
		}
	}
}

// FormatForPrompt renders messages for inclusion in a generation
// prompt. Returns "" for empty history.
func FormatForPrompt(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			sb.WriteString("User: ")
		case RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			continue
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
