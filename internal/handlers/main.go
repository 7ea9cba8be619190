package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	agrisaarthi "github.com/MegaGrindStone/agrisaarthi-web"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/models"
	"github.com/MegaGrindStone/agrisaarthi-web/internal/session"
	"github.com/tmaxmax/go-sse"
)

// CategoryDirectory provides the list of question categories offered on the home screen.
type CategoryDirectory interface {
	Categories(ctx context.Context) (models.CategoryDirectory, error)
}

// Renderer turns a committed response into HTML.
type Renderer interface {
	Render(source string) (string, error)
}

// Main serves the home and chat screens, accepts questions and pushes streaming progress to the
// browser through server-sent events. Each browser session gets its own SSE topic, so updates of one
// session never reach another.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	directory CategoryDirectory
	registry  *session.Registry
	markdown  Renderer
	voiceURL  string

	// ctx bounds the background responders; it is cancelled on Shutdown. respMu orders registering a
	// responder against that cancellation.
	ctx       context.Context
	cancel    context.CancelFunc
	respMu    *sync.Mutex
	responses *sync.WaitGroup

	logger *slog.Logger
}

const (
	errLoggerKey  = "err"
	sessionCookie = "agrisaarthi_session"
)

// NewMain creates a new Main instance. It parses the HTML templates from the embedded filesystem and
// sets up an SSE server that subscribes each client to the default topic, used for shutdown notices,
// and to the topic of its own browser session. Clients without a known session are rejected.
func NewMain(
	directory CategoryDirectory,
	registry *session.Registry,
	markdown Renderer,
	voiceURL string,
	logger *slog.Logger,
) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(
		agrisaarthi.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				c, err := s.Req.Cookie(sessionCookie)
				if err != nil {
					return sse.Subscription{}, false
				}
				if _, ok := registry.Get(c.Value); !ok {
					return sse.Subscription{}, false
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      []string{sse.DefaultTopic, sessionTopic(c.Value)},
				}, true
			},
		},
		templates: tmpl,
		directory: directory,
		registry:  registry,
		markdown:  markdown,
		voiceURL:  voiceURL,
		ctx:       ctx,
		cancel:    cancel,
		respMu:    &sync.Mutex{},
		responses: &sync.WaitGroup{},
		logger:    logger.With(slog.String("module", "main")),
	}, nil
}

// acquireResponder registers a background responder. It reports false once Shutdown has begun.
func (m Main) acquireResponder() bool {
	m.respMu.Lock()
	defer m.respMu.Unlock()

	if m.ctx.Err() != nil {
		return false
	}
	m.responses.Add(1)
	return true
}

func sessionTopic(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}

// HandleSSE streams the updates of the caller's session.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// state resolves the browser session of the request, starting a new one when the cookie is missing or
// refers to a session the registry no longer knows.
func (m Main) state(w http.ResponseWriter, r *http.Request) *session.State {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := m.registry.Get(c.Value); ok {
			return s
		}
	}

	s := m.registry.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	m.logger.Debug("Created session", slog.String("sessionID", s.ID))
	return s
}

// Shutdown gracefully terminates the Main instance. It cancels responses still streaming, waits for
// their goroutines, then broadcasts a close message to all connected clients and waits up to 5
// seconds for connections to terminate. After the timeout, any remaining connections are forcefully
// closed.
func (m Main) Shutdown(ctx context.Context) error {
	m.respMu.Lock()
	m.cancel()
	m.respMu.Unlock()
	m.responses.Wait()

	e := &sse.Message{Type: sse.Type("closeChat")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
