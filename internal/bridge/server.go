package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mynest/mediasniff/internal/mynest"
)

const (
	// maxRequestBody bounds sniff requests, which may carry a whole DOM.
	maxRequestBody = 16 << 20

	shutdownTimeout = 5 * time.Second
)

// Handler returns the HTTP handler for the bridge API.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sniff", b.handleSniff)
	mux.HandleFunc("GET /api/v1/sniff/latest", b.handleLatest)
	mux.HandleFunc("GET /api/v1/events", b.handleEvents)
	mux.HandleFunc("POST /api/v1/download", b.handleDownload)
	mux.HandleFunc("GET /health", b.handleHealth)
	return mux
}

// Serve serves the bridge API on ln until ctx is cancelled, then shuts
// down and waits for detached backfills.
func (b *Bridge) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx, which also ends event streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("bridge listening", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down bridge: %w", err)
	}
	b.Wait()
	return nil
}

func (b *Bridge) handleSniff(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	if req.URL == "" && req.HTML == "" {
		writeError(w, http.StatusBadRequest, ErrEmptyRequest)
		return
	}

	writeJSON(w, http.StatusOK, b.Sniff(r.Context(), req))
}

func (b *Bridge) handleLatest(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url query parameter is required"))
		return
	}

	report, err := b.Latest(r.Context(), pageURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, errors.New("no sniff stored for this page"))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleEvents streams thumbnail updates as server-sent events. An
// optional sniff_id query parameter limits the stream to one sniff.
func (b *Bridge) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	sniffID := r.URL.Query().Get("sniff_id")

	updates, unsubscribe := b.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": subscribed\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if sniffID != "" && update.SniffID != sniffID {
				continue
			}
			data, err := json.Marshal(update)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: thumbnail\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// downloadRequest accepts either explicit URLs or free text such as a
// text selection, from which URLs are extracted.
type downloadRequest struct {
	URL  string   `json:"url,omitempty"`
	URLs []string `json:"urls,omitempty"`
	Text string   `json:"text,omitempty"`
}

func (d downloadRequest) targets() []string {
	urls := make([]string, 0, len(d.URLs)+1)
	if d.URL != "" {
		urls = append(urls, d.URL)
	}
	urls = append(urls, d.URLs...)
	if d.Text != "" {
		urls = append(urls, mynest.ExtractURLs(d.Text)...)
	}
	return urls
}

type downloadResponse struct {
	Success bool           `json:"success"`
	Tasks   []*mynest.Task `json:"tasks,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (b *Bridge) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	tasks, err := b.Download(r.Context(), req.targets())
	switch {
	case errors.Is(err, ErrNoSubmitter):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, ErrNoDownloadURL), errors.Is(err, mynest.ErrInvalidURL):
		writeJSON(w, http.StatusBadRequest, downloadResponse{Tasks: tasks, Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, downloadResponse{Tasks: tasks, Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, downloadResponse{Success: true, Tasks: tasks})
	}
}

func (b *Bridge) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "name": "mediasniff"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
