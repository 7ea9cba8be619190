package session

import (
	"log/slog"
	"sync"
	"time"
)

// View is the screen a browser session is on.
type View string

const (
	// ViewHome lists the categories.
	ViewHome View = "home"
	// ViewChat shows the transcript of the active chat.
	ViewChat View = "chat"
)

const errLoggerKey = "err"

// State is the per-browser view state: which screen is shown, the selected category and, while on the
// chat screen, the chat itself. Leaving the chat screen discards the chat.
type State struct {
	ID string

	asker    Asker
	language string

	mu       sync.Mutex
	view     View
	category string
	chat     *Chat
	lastSeen time.Time

	logger *slog.Logger
}

func newState(id string, asker Asker, defaultCategory, language string, now time.Time, logger *slog.Logger) *State {
	return &State{
		ID:       id,
		asker:    asker,
		language: language,
		view:     ViewHome,
		category: defaultCategory,
		lastSeen: now,
		logger:   logger.With(slog.String("session", id)),
	}
}

// View returns the current screen.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.view
}

// Category returns the selected category.
func (s *State) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.category
}

// Chat returns the active chat, or nil on the home screen.
func (s *State) Chat() *Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chat
}

// StartChat switches to the chat screen with a fresh chat. A non-empty category replaces the selected
// one; otherwise the previous selection is kept. Calling it while already chatting starts over.
func (s *State) StartChat(category string) *Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category != "" {
		s.category = category
	}
	s.view = ViewChat
	s.chat = NewChat(s.asker, s.category, s.language, s.logger)

	s.logger.Debug("Started chat", slog.String("category", s.category))
	return s.chat
}

// BackToHome switches to the home screen and drops the chat. A submission still in flight is not
// cancelled; it completes against the dropped chat and is never shown.
func (s *State) BackToHome() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chat != nil && s.chat.Pending() {
		s.logger.Debug("Leaving chat with a submission in flight")
	}
	s.view = ViewHome
	s.chat = nil
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = now
}

func (s *State) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}
