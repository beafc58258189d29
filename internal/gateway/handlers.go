package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dohr-michael/sidekick/internal/engine"
	"github.com/dohr-michael/sidekick/internal/history"
	"github.com/dohr-michael/sidekick/internal/memory"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r.URL.Query().Get("username"))
	if !ok {
		return
	}

	list, err := s.store.ListConversations(username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*memory.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": list})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Title    string `json:"title"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	username, ok := requireUsername(w, body.Username)
	if !ok {
		return
	}

	conv, err := s.store.CreateConversation(username, body.Title)
	if errors.Is(err, memory.ErrConversationLimit) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r, r.URL.Query().Get("username"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r, r.URL.Query().Get("username"))
	if !ok {
		return
	}
	if err := s.store.DeleteConversation(conv.ID, conv.Username); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	conv, ok := s.lookupConversation(w, r, body.Username)
	if !ok {
		return
	}
	if err := s.store.ClearHistory(conv.ID, conv.Username); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookupConversation(w, r, r.URL.Query().Get("username"))
	if !ok {
		return
	}

	entries, err := s.conversationHistory(conv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (s *Server) handleDeleteUserMemory(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r.URL.Query().Get("username"))
	if !ok {
		return
	}
	if err := s.store.DeleteAllUserMemory(username); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleClarify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username        string `json:"username"`
		Message         string `json:"message"`
		SuccessCriteria string `json:"success_criteria"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	conv, ok := s.lookupConversation(w, r, body.Username)
	if !ok {
		return
	}
	if body.Message == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	runner, err := s.runners(r.Context(), conv.Username, conv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	questions := runner.ClarifyingQuestions(r.Context(), body.Message, body.SuccessCriteria)
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username        string   `json:"username"`
		Message         string   `json:"message"`
		SuccessCriteria string   `json:"success_criteria"`
		Questions       []string `json:"questions"`
		Answers         []string `json:"answers"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	conv, ok := s.lookupConversation(w, r, body.Username)
	if !ok {
		return
	}
	if body.Message == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	prior, err := s.conversationHistory(conv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	runner, err := s.runners(r.Context(), conv.Username, conv.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	llmMessage := engine.ComposeClarifiedMessage(body.Message, body.Questions, body.Answers)

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	entries, err := runner.Run(ctx, llmMessage, body.SuccessCriteria, prior, body.Message)
	if err != nil {
		slog.Error("run failed, falling back to direct reply",
			"conversation", conv.ID, "error", err)
		entries = s.degradedReply(r.Context(), runner, prior, body.Message, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// degradedReply answers with a single model call after a failed run. The
// retry gets its own timeout: the run often fails because its deadline
// expired, and reusing that context would kill the fallback too. If the
// retry fails as well, the error itself becomes the reply so the
// conversation shows what happened.
func (s *Server) degradedReply(parent context.Context, runner Runner, prior []history.Entry, originalMessage string, runErr error) []history.Entry {
	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()

	reply, err := runner.DirectReply(ctx, originalMessage)
	if err != nil {
		slog.Error("direct reply failed", "error", err)
		reply = fmt.Sprintf("Error: %v", runErr)
	}
	return history.MergeWithDedup(prior,
		history.Entry{Role: history.RoleUser, Content: originalMessage},
		history.Entry{Role: history.RoleAssistant, Content: reply},
	)
}

// conversationHistory reconciles the latest checkpoint into display entries.
func (s *Server) conversationHistory(conv *memory.Conversation) ([]history.Entry, error) {
	state, found, err := s.store.LoadLatest(conv.ThreadID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []history.Entry{}, nil
	}
	entries := history.Reconcile(state.Messages)
	if entries == nil {
		entries = []history.Entry{}
	}
	return entries, nil
}

// lookupConversation resolves the {conversationID} route param for the user,
// writing the HTTP error itself when the lookup fails.
func (s *Server) lookupConversation(w http.ResponseWriter, r *http.Request, username string) (*memory.Conversation, bool) {
	username, ok := requireUsername(w, username)
	if !ok {
		return nil, false
	}

	conv, err := s.store.GetConversation(chi.URLParam(r, "conversationID"), username)
	if errors.Is(err, memory.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return conv, true
}

func requireUsername(w http.ResponseWriter, username string) (string, bool) {
	if username == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("username is required"))
		return "", false
	}
	return username, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
