package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/models"
)

// AgriAPI is a client for the remote agricultural assistant service. It asks questions against the
// streaming inference endpoint and reads the category directory.
type AgriAPI struct {
	baseURL   string
	chunkSize int

	client *http.Client

	logger *slog.Logger
}

// StatusError is returned when the remote service answers with a non-2xx status. Body holds the text
// the service sent along with the status.
type StatusError struct {
	StatusCode int
	Body       string
}

const (
	categoriesPath   = "/agents/categories"
	defaultChunkSize = 4096
)

// NewAgriAPI creates a client for the service rooted at baseURL. The base URL is the inference
// endpoint itself; the category directory lives under it. It returns an error if baseURL is not an
// absolute http(s) URL.
func NewAgriAPI(baseURL string, logger *slog.Logger) (AgriAPI, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return AgriAPI{}, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return AgriAPI{}, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return AgriAPI{}, fmt.Errorf("invalid api url %q: missing host", baseURL)
	}

	return AgriAPI{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		chunkSize: defaultChunkSize,
		client:    &http.Client{},
		logger:    logger.With(slog.String("module", "agriapi")),
	}, nil
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

// Ask posts the question to the inference endpoint and returns an iterator over the decoded response
// text, yielded piece by piece in arrival order. The body is treated as raw text: chunk boundaries are
// whatever the transport delivers, and characters split across them are reassembled before being
// yielded.
//
// A non-2xx answer yields a *StatusError. Failing to connect or to read the body yields a wrapped
// transport error. In both cases iteration stops after the error. Exactly one request is made; nothing
// is retried.
func (a AgriAPI) Ask(ctx context.Context, question models.Question) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := a.doAsk(ctx, question)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		dec := NewStreamDecoder()
		buf := make([]byte, a.chunkSize)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				a.logger.Debug("Received chunk", slog.Int("size", n))
				if text := dec.Decode(buf[:n]); text != "" {
					if !yield(text, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield("", fmt.Errorf("error reading response: %w", err))
				return
			}
		}

		if text := dec.Flush(); text != "" {
			yield(text, nil)
		}
	}
}

func (a AgriAPI) doAsk(ctx context.Context, question models.Question) (*http.Response, error) {
	jsonBody, err := json.Marshal(question)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	a.logger.Debug("Request Body", slog.String("body", string(jsonBody)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if !successful(resp.StatusCode) {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("error reading error response: %w", err)
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return resp, nil
}

// Categories fetches the category directory from the service.
func (a AgriAPI) Categories(ctx context.Context) (models.CategoryDirectory, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+categoriesPath, nil)
	if err != nil {
		return models.CategoryDirectory{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return models.CategoryDirectory{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if !successful(resp.StatusCode) {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return models.CategoryDirectory{}, fmt.Errorf("error reading error response (status %d): %w", resp.StatusCode, err)
		}
		return models.CategoryDirectory{}, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var dir models.CategoryDirectory
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return models.CategoryDirectory{}, fmt.Errorf("error decoding response: %w", err)
	}

	return dir, nil
}

func successful(code int) bool {
	return code >= 200 && code < 300
}
