package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/models"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/session"
	"github.com/tmaxmax/go-sse"
)

// SSE event types for real-time updates.
var (
	streamingSSEType = sse.Type("streaming")
	messageSSEType   = sse.Type("message")
	idleSSEType      = sse.Type("idle")
)

// HandleMessages accepts a question for the caller's chat through HTTP POST requests. It expects a
// "question" form field and an optional "category" field overriding the chat's category.
//
// The question is added to the transcript and answered asynchronously: the response streams to the
// browser through server-sent events, and the handler itself only renders the new transcript entry in
// its pending state. Only one question per chat may be in flight; a second one is refused with
// 409 Conflict until the first has been answered.
func (m Main) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := m.state(w, r)
	chat := st.Chat()
	if st.View() != session.ViewChat || chat == nil {
		http.Error(w, "No active chat", http.StatusBadRequest)
		return
	}

	if !m.acquireResponder() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	msg, err := chat.Submit(r.FormValue("question"), r.FormValue("category"))
	if err != nil {
		m.responses.Done()
	}
	switch {
	case errors.Is(err, session.ErrEmptyQuestion):
		http.Error(w, "Question is required", http.StatusBadRequest)
		return
	case errors.Is(err, session.ErrSubmissionPending):
		http.Error(w, "A question is already being answered", http.StatusConflict)
		return
	case err != nil:
		m.logger.Error("Failed to submit question", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// The pending entry goes out before answering starts, so the browser usually has it in place when
	// the first update arrives.
	m.writeMessage(w, msg)
	go m.respond(st, chat, msg)
}

func (m Main) writeMessage(w http.ResponseWriter, msg models.ChatMessage) {
	rendered, err := m.renderMessage(msg)
	if err != nil {
		m.logger.Error("Failed to render message",
			slog.String("message", fmt.Sprintf("%+v", msg)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := m.templates.ExecuteTemplate(w, "message", rendered); err != nil {
		m.logger.Error("Failed to execute message template", slog.String(errLoggerKey, err.Error()))
		return
	}
	if err := http.NewResponseController(w).Flush(); err != nil {
		m.logger.Debug("Failed to flush message", slog.String(errLoggerKey, err.Error()))
	}
}

// respond streams the answer to msg and publishes its progress to the session's SSE topic. Updates are
// only published while chat is still the session's active chat: after the user went back home, the
// answer completes silently.
func (m Main) respond(st *session.State, chat *session.Chat, msg models.ChatMessage) {
	defer m.responses.Done()

	topic := sessionTopic(st.ID)
	active := func() bool { return st.Chat() == chat }

	final := chat.Respond(m.ctx, msg, func(slot models.StreamingSlot) {
		if !active() {
			return
		}
		m.publishPartial(topic, streamingSSEType, "streaming", slot)
	})

	if !active() {
		m.logger.Debug("Dropped answer of a discarded chat", slog.String("messageID", msg.ID))
		return
	}

	rendered, err := m.renderMessage(final)
	if err != nil {
		m.logger.Error("Failed to render message",
			slog.String("message", fmt.Sprintf("%+v", final)),
			slog.String(errLoggerKey, err.Error()))
	} else {
		m.publishPartial(topic, messageSSEType, "message", rendered)
	}

	e := sse.Message{Type: idleSSEType}
	e.AppendData(final.ID)
	if err := m.sseSrv.Publish(&e, topic); err != nil {
		m.logger.Error("Failed to publish idle", slog.String(errLoggerKey, err.Error()))
	}
}

func (m Main) publishPartial(topic string, typ sse.EventType, partial string, data any) {
	html, err := m.renderPartial(partial, data)
	if err != nil {
		m.logger.Error("Failed to render partial",
			slog.String("partial", partial),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{Type: typ}
	msg.AppendData(html)
	if err := m.sseSrv.Publish(&msg, topic); err != nil {
		m.logger.Error("Failed to publish message",
			slog.String("topic", topic),
			slog.String(errLoggerKey, err.Error()))
	}
}
