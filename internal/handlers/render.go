package handlers

import (
	"html/template"
	"strings"
	"time"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/models"
)

type message struct {
	ID        string
	Question  string
	Response  template.HTML
	Category  string
	Timestamp time.Time

	State string
}

type homePageData struct {
	Categories       []models.Category
	SelectedCategory string
	VoiceURL         string
}

type chatPageData struct {
	Category  string
	Messages  []message
	Streaming models.StreamingSlot
	Pending   bool
}

var categoryIcons = map[string]string{
	"crop_info":     "🌾",
	"fertilizers":   "🌱",
	"market_prices": "📊",
	"gov_schemes":   "🏛️",
	"weather_info":  "🌦️",
	"soil_info":     "🪱",
	"finance_info":  "💰",
	"other":         "🔍",
}

var templateFuncs = template.FuncMap{
	"categoryName": categoryName,
	"categoryIcon": categoryIcon,
	"clock":        func(t time.Time) string { return t.Format("15:04:05") },
}

func categoryName(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}

func categoryIcon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return "🌾"
}

// renderMessage prepares a transcript entry for the templates. Only terminal messages carry a
// response; it is rendered from Markdown.
func (m Main) renderMessage(msg models.ChatMessage) (message, error) {
	out := message{
		ID:        msg.ID,
		Question:  msg.Question,
		Category:  msg.Category,
		Timestamp: msg.Timestamp,
		State:     string(msg.State),
	}
	if !msg.State.Terminal() || msg.Response == "" {
		return out, nil
	}

	html, err := m.markdown.Render(msg.Response)
	if err != nil {
		return message{}, err
	}
	// The renderer does not pass raw HTML from the response through.
	out.Response = template.HTML(html)
	return out, nil
}

func (m Main) renderPartial(name string, data any) (string, error) {
	var sb strings.Builder
	if err := m.templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
