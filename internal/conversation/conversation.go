// Package conversation keeps the ordered chat history of one session and
// selects the slice of it that is replayed to the language model.
package conversation

import (
	"sync"
	"unicode/utf8"

	"github.com/indeksai/indeksai/internal/llm"
)

// Role tags a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store is an append-only conversation history. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{turns: make([]Turn, 0, 16)}
}

// AppendUser records a user message.
func (s *Store) AppendUser(content string) {
	s.append(Turn{Role: RoleUser, Content: content})
}

// AppendAssistant records an assistant reply.
func (s *Store) AppendAssistant(content string) {
	s.append(Turn{Role: RoleAssistant, Content: content})
}

func (s *Store) append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
}

// Turns returns a copy of the whole history, oldest first.
func (s *Store) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// LastN returns a copy of the last k turns, oldest first.
func (s *Store) LastN(k int) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		return nil
	}
	start := max(len(s.turns)-k, 0)
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// Len returns the number of stored turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// UserCount returns how many questions the user has asked.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.turns {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// Clear resets the conversation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = s.turns[:0]
}

// ── Windowing ──

// Options bound the history replayed to the model.
type Options struct {
	MaxTurns   int    // keep at most this many trailing turns
	TruncateAt int    // assistant turns longer than this many runes are cut; 0 disables
	Ellipsis   string // appended to a cut turn
}

// DefaultOptions replays the last 8 turns and cuts long assistant answers at 500 runes.
var DefaultOptions = Options{MaxTurns: 8, TruncateAt: 500, Ellipsis: "..."}

// Window returns the trailing turns to replay. The input is not modified.
// Only assistant turns are truncated; user turns are replayed verbatim.
func Window(turns []Turn, opts Options) []Turn {
	if opts.MaxTurns <= 0 || len(turns) == 0 {
		return nil
	}
	start := max(len(turns)-opts.MaxTurns, 0)

	out := make([]Turn, 0, len(turns)-start)
	for _, t := range turns[start:] {
		if t.Role == RoleAssistant && opts.TruncateAt > 0 && utf8.RuneCountInString(t.Content) > opts.TruncateAt {
			t.Content = truncateRunes(t.Content, opts.TruncateAt) + opts.Ellipsis
		}
		out = append(out, t)
	}
	return out
}

// ToMessages converts turns to model messages.
func ToMessages(turns []Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		if t.Role == RoleAssistant {
			msgs = append(msgs, llm.AssistantMessage(t.Content))
			continue
		}
		msgs = append(msgs, llm.UserMessage(t.Content))
	}
	return msgs
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
