package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/models"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/session"
)

// HandleHome renders the screen the caller's session is on. The home screen fetches the category
// directory on every render; if that fails the page is rendered without categories and the failure
// is only logged. The chat screen renders the transcript and, if a response is streaming, its
// progress so far.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	st := m.state(w, r)

	if chat := st.Chat(); st.View() == session.ViewChat && chat != nil {
		m.renderChat(w, chat)
		return
	}

	var categories []models.Category
	dir, err := m.directory.Categories(r.Context())
	if err != nil {
		m.logger.Error("Failed to fetch categories", slog.String(errLoggerKey, err.Error()))
	} else {
		categories = dir.Categories()
	}

	data := homePageData{
		Categories:       categories,
		SelectedCategory: st.Category(),
		VoiceURL:         m.voiceURL,
	}
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m Main) renderChat(w http.ResponseWriter, chat *session.Chat) {
	transcript := chat.Transcript()
	msgs := make([]message, len(transcript))
	for i := range transcript {
		msg, err := m.renderMessage(transcript[i])
		if err != nil {
			m.logger.Error("Failed to render message",
				slog.String("message", fmt.Sprintf("%+v", transcript[i])),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		msgs[i] = msg
	}

	streaming := chat.Streaming()
	data := chatPageData{
		Category:  chat.Category(),
		Messages:  msgs,
		Streaming: streaming,
		Pending:   streaming.Active(),
	}
	if err := m.templates.ExecuteTemplate(w, "chat.html", data); err != nil {
		m.logger.Error("Failed to render chat", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleStartChat moves the caller's session to the chat screen with a fresh transcript. The optional
// "category" form field selects the chat's category; without it the previous selection is kept.
func (m Main) HandleStartChat(w http.ResponseWriter, r *http.Request) {
	st := m.state(w, r)
	st.StartChat(r.FormValue("category"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleBackToHome moves the caller's session to the home screen, discarding the chat.
func (m Main) HandleBackToHome(w http.ResponseWriter, r *http.Request) {
	st := m.state(w, r)
	st.BackToHome()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleVoice sends the browser to the external voice assistant.
func (m Main) HandleVoice(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, m.voiceURL, http.StatusFound)
}
