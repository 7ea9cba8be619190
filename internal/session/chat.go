package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/models"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/services"
	"golang.org/x/sync/semaphore"
)

// Asker sends a question to the remote assistant and streams back the response text. Implementations
// report a non-2xx answer as a *services.StatusError and any other failure as a plain error.
type Asker interface {
	Ask(ctx context.Context, question models.Question) iter.Seq2[string, error]
}

// Chat is the state of one chat view: its transcript and the submission currently in flight. At most
// one submission is in flight at a time; Submit acquires the slot and Respond releases it.
//
// The transcript lives only as long as the Chat value. It is never persisted.
type Chat struct {
	category string
	language string

	asker    Asker
	inflight *semaphore.Weighted
	now      func() time.Time

	mu         sync.Mutex
	transcript []models.ChatMessage
	streaming  models.StreamingSlot
	lastID     int64

	logger *slog.Logger
}

// GenericFailure is the diagnostic written in place of a response when the request could not be sent
// or the response could not be read.
const GenericFailure = "An error occurred while processing your request."

var (
	// ErrSubmissionPending is returned by Submit while a previous submission is still in flight.
	ErrSubmissionPending = errors.New("a submission is already in flight")
	// ErrEmptyQuestion is returned by Submit for a blank question.
	ErrEmptyQuestion = errors.New("question is required")
)

// NewChat creates an empty chat whose submissions default to category and are asked in language.
func NewChat(asker Asker, category, language string, logger *slog.Logger) *Chat {
	return &Chat{
		category: category,
		language: language,
		asker:    asker,
		inflight: semaphore.NewWeighted(1),
		now:      time.Now,
		logger:   logger.With(slog.String("module", "chat")),
	}
}

// Category returns the chat's active category.
func (c *Chat) Category() string {
	return c.category
}

// Submit records a new question in the transcript and takes the in-flight slot. An empty category
// means the chat's active category. The returned message is pending; the caller must pass it to
// Respond, which releases the slot.
func (c *Chat) Submit(question, category string) (models.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.ChatMessage{}, ErrEmptyQuestion
	}
	if category == "" {
		category = c.category
	}

	// The guard and the streaming slot change together under mu, so Pending never disagrees with
	// what Submit would answer.
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.inflight.TryAcquire(1) {
		return models.ChatMessage{}, ErrSubmissionPending
	}

	now := c.now()
	msg := models.ChatMessage{
		ID:        c.nextID(now),
		Question:  question,
		Category:  category,
		Timestamp: now,
		State:     models.MessageStatePending,
	}
	c.transcript = append(c.transcript, msg)
	c.streaming = models.StreamingSlot{MessageID: msg.ID}

	return msg, nil
}

// nextID derives a time based id, bumped past the previous one when the clock has not advanced.
func (c *Chat) nextID(now time.Time) string {
	id := now.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return strconv.FormatInt(id, 10)
}

// Respond asks the remote assistant the submitted question and blocks until the answer is complete.
// progress, if not nil, is called with the streaming slot after every piece of text received. When
// the stream ends the accumulated text becomes the message response; on failure a diagnostic does.
// The in-flight slot is released on every path. The final message is returned.
func (c *Chat) Respond(ctx context.Context, msg models.ChatMessage, progress func(models.StreamingSlot)) models.ChatMessage {
	defer c.release(msg.ID)

	question := models.Question{
		Category: msg.Category,
		Question: msg.Question,
		Language: c.language,
	}

	var acc strings.Builder
	for text, err := range c.asker.Ask(ctx, question) {
		if err != nil {
			c.logger.Error("Failed to get response",
				slog.String("messageID", msg.ID),
				slog.String(errLoggerKey, err.Error()))
			return c.commit(msg.ID, diagnostic(err), models.MessageStateFailed)
		}

		acc.WriteString(text)
		slot := c.stream(msg.ID, acc.String())
		if progress != nil {
			progress(slot)
		}
	}

	return c.commit(msg.ID, acc.String(), models.MessageStateCommitted)
}

func diagnostic(err error) string {
	var statusErr *services.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("Error: %d - %s", statusErr.StatusCode, statusErr.Body)
	}
	return GenericFailure
}

func (c *Chat) stream(msgID, text string) models.StreamingSlot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(msgID); idx != -1 {
		c.transcript[idx].State = models.MessageStateStreaming
	}
	c.streaming = models.StreamingSlot{MessageID: msgID, Text: text}
	return c.streaming
}

// commit writes the final response of a message. A message that already reached a terminal state is
// left untouched.
func (c *Chat) commit(msgID, response string, state models.MessageState) models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(msgID)
	if idx == -1 {
		return models.ChatMessage{}
	}
	if !c.transcript[idx].State.Terminal() {
		c.transcript[idx].Response = response
		c.transcript[idx].State = state
	}
	return c.transcript[idx]
}

func (c *Chat) release(msgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming.MessageID == msgID {
		c.streaming = models.StreamingSlot{}
	}
	c.inflight.Release(1)
}

func (c *Chat) indexOf(msgID string) int {
	return slices.IndexFunc(c.transcript, func(m models.ChatMessage) bool { return m.ID == msgID })
}

// Transcript returns a copy of the messages in submission order.
func (c *Chat) Transcript() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.transcript)
}

// Streaming returns the slot of the message in flight, or a zero slot when idle.
func (c *Chat) Streaming() models.StreamingSlot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.streaming
}

// Pending reports whether a submission is in flight.
func (c *Chat) Pending() bool {
	return c.Streaming().Active()
}
