package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"inferd/internal/prompts"
	"inferd/internal/upstream"
	"inferd/pkg/types"
)

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.opts.Mode.Mode().Full() || s.opts.Upstream == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	system := s.opts.SystemPrompt
	if name := r.URL.Query().Get("prompt"); name != "" {
		text, err := s.opts.Prompts.Read(name)
		switch {
		case prompts.IsNotFound(err):
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		case prompts.IsInvalidName(err):
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			s.opts.Log.Error().Err(err).Str("prompt", name).Msg("read prompt template")
			writeJSONError(w, http.StatusInternalServerError, "failed to read prompt template")
			return
		}
		system = text
	}

	up := buildUpstream(req, system)

	release, err := s.admit.acquire(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		overloadTotal.Inc()
		writeJSONError(w, http.StatusServiceUnavailable, msgOverloaded)
		return
	}
	defer release()

	resp, err := s.opts.Upstream.ChatCompletion(r.Context(), up)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		log := s.opts.Log.Warn().Err(err)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			log = log.Str("request_id", rid)
		}
		if upstream.IsStatusError(err) {
			upstreamErrorsTotal.WithLabelValues("status").Inc()
			log.Int("upstream_status", upstream.StatusOf(err)).Msg("upstream returned an error")
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		upstreamErrorsTotal.WithLabelValues("request").Inc()
		log.Msg("upstream request failed")
		if s.opts.Nudger != nil {
			s.opts.Nudger.Nudge()
		}
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Close()

	if up.Stream {
		relayStream(w, resp)
		return
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// buildUpstream applies defaults and prepends the system message.
func buildUpstream(req types.ChatRequest, system string) types.UpstreamChatRequest {
	up := types.UpstreamChatRequest{
		Model:       req.Model,
		Temperature: types.DefaultTemperature,
		MaxTokens:   types.DefaultMaxTokens,
		Stream:      req.Stream,
	}
	if req.Temperature != nil {
		up.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		up.MaxTokens = *req.MaxTokens
	}
	msgs := make([]types.Message, 0, len(req.Messages)+1)
	if system != "" {
		msgs = append(msgs, types.Message{Role: "system", Content: system})
	}
	up.Messages = append(msgs, req.Messages...)
	return up
}

// relayStream copies server-sent events, flushing after every read.
func relayStream(w http.ResponseWriter, resp *upstream.Response) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(resp.StatusCode)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	buf := make([]byte, 32<<10)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}
