package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Twe-ux/arc-messenger/internal/inbox"
	"github.com/Twe-ux/arc-messenger/internal/logging"
)

const (
	defaultConversationLimit = 20
	defaultMessageLimit      = 50
	maxListLimit             = 100
)

// filenameSanitizer strips anything that could break out of a
// Content-Disposition header value.
var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeFilename(name string) string {
	name = filenameSanitizer.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "attachment"
	}
	return name
}

// listLimit parses a limit query parameter with a default and a ceiling.
func listLimit(r *http.Request, fallback int64) int64 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// serviceError maps inbox errors to HTTP responses.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	s.metrics.inboxErrors.Inc()

	details := envelope{}
	var callErr *inbox.CallError
	if errors.As(err, &callErr) {
		if callErr.ThreadID != "" {
			details["threadId"] = callErr.ThreadID
		}
		if callErr.MessageID != "" {
			details["messageId"] = callErr.MessageID
		}
	}

	switch {
	case errors.Is(err, inbox.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized - Please sign in", nil)
	case errors.Is(err, inbox.ErrIntegrationUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Gmail integration unavailable", details)
	default:
		s.logger.Error("inbox operation failed",
			logging.UserHash(userEmailFrom(r.Context())), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", details)
	}
}

// handleConversations lists conversation headers, optionally filtered by
// label or a free-text query.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	svc := inboxFrom(r.Context())
	q := r.URL.Query()

	if query := q.Get("q"); query != "" {
		headers, err := svc.SearchConversations(r.Context(), query, listLimit(r, defaultConversationLimit))
		if err != nil {
			s.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"conversations": headers})
		return
	}

	list, err := svc.Conversations(r.Context(), inbox.ListOptions{
		Label:     q.Get("label"),
		Max:       listLimit(r, defaultConversationLimit),
		PageToken: q.Get("pageToken"),
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	payload := envelope{"conversations": list.Conversations}
	if list.NextPageToken != "" {
		payload["nextPageToken"] = list.NextPageToken
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleConversationMessages returns one conversation with its messages
// oldest first.
func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	detail, err := inboxFrom(r.Context()).ConversationMessages(r.Context(), threadID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"threadInfo": detail.ThreadInfo,
		"messages":   detail.Messages,
	})
}

// conversationActionRequest is the body of a POST on a conversation.
type conversationActionRequest struct {
	Action  string `json:"action"`
	Starred *bool  `json:"starred,omitempty"`
}

// handleConversationAction dispatches thread mutations requested by the
// client.
func (s *Server) handleConversationAction(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var req conversationActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	svc := inboxFrom(r.Context())
	ctx := r.Context()

	var err error
	switch req.Action {
	case "markThreadAsRead":
		err = svc.MarkThreadRead(ctx, threadID)
	case "markThreadAsUnread":
		err = svc.MarkThreadUnread(ctx, threadID)
	case "starThread":
		// Absent flag means star; explicit false unstars.
		starred := req.Starred == nil || *req.Starred
		err = svc.StarThread(ctx, threadID, starred)
	case "archiveThread":
		err = svc.ArchiveThread(ctx, threadID)
	case "deleteThread":
		err = svc.DeleteThread(ctx, threadID)
	case "getUpdatedMessages":
		s.handleUpdatedMessages(w, r, svc)
		return
	default:
		writeError(w, http.StatusBadRequest, "Unknown action", envelope{"action": req.Action})
		return
	}

	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"threadId": threadID, "action": req.Action})
}

// handleUpdatedMessages diffs the mailbox against the stored history
// baseline and advances it.
func (s *Server) handleUpdatedMessages(w http.ResponseWriter, r *http.Request, svc InboxService) {
	ctx := r.Context()
	email := userEmailFrom(ctx)

	baseline, err := s.history.HistoryID(ctx, email)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if baseline == 0 {
		// No baseline yet; establish one from the profile so the next
		// poll has a starting point.
		profile, err := svc.Profile(ctx)
		if err != nil {
			s.serviceError(w, r, err)
			return
		}
		if err := s.history.SetHistoryID(ctx, email, profile.HistoryId); err != nil {
			s.serviceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"messageIds": []string{}, "historyId": profile.HistoryId})
		return
	}

	diff, err := svc.ChangedMessagesSince(ctx, baseline)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if err := s.history.SetHistoryID(ctx, email, diff.NewHistoryID); err != nil {
		s.serviceError(w, r, err)
		return
	}

	ids := diff.AddedMessageIDs
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, envelope{"messageIds": ids, "historyId": diff.NewHistoryID})
}

// handleMessages returns a flat, newest-first chat message listing.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := inboxFrom(r.Context()).Messages(r.Context(), inbox.ListOptions{
		Query: r.URL.Query().Get("q"),
		Label: r.URL.Query().Get("label"),
		Max:   listLimit(r, defaultMessageLimit),
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"messages": messages})
}

// handleAttachment streams attachment bytes.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	attachmentID := chi.URLParam(r, "attachmentID")

	data, err := inboxFrom(r.Context()).Attachment(r.Context(), messageID, attachmentID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	contentType := r.URL.Query().Get("mimeType")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := sanitizeFilename(r.URL.Query().Get("filename"))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleCorrespondents lists recent senders grouped for the sidebar.
func (s *Server) handleCorrespondents(w http.ResponseWriter, r *http.Request) {
	correspondents, err := inboxFrom(r.Context()).Correspondents(r.Context(), inbox.ListOptions{
		Max: listLimit(r, defaultMessageLimit),
	})
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"correspondents": correspondents})
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := inboxFrom(r.Context()).Labels(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"labels": labels})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := inboxFrom(r.Context()).Profile(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"emailAddress":  profile.EmailAddress,
		"messagesTotal": profile.MessagesTotal,
		"threadsTotal":  profile.ThreadsTotal,
		"historyId":     profile.HistoryId,
	})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := inboxFrom(r.Context()).UnreadCount(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"unreadCount": count})
}

// handleStartWatch subscribes the session user's mailbox to push
// notifications and records the returned history ID as the diff
// baseline.
func (s *Server) handleStartWatch(w http.ResponseWriter, r *http.Request) {
	if s.cfg.PubSubTopic == "" {
		writeError(w, http.StatusServiceUnavailable, "Push notifications not configured", nil)
		return
	}

	res, err := inboxFrom(r.Context()).StartWatch(r.Context(), s.cfg.PubSubTopic)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	email := userEmailFrom(r.Context())
	if err := s.history.SetHistoryID(r.Context(), email, res.HistoryId); err != nil {
		s.logger.Error("history baseline store failed", logging.UserHash(email), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"historyId":  res.HistoryId,
		"expiration": res.Expiration,
	})
}

func (s *Server) handleStopWatch(w http.ResponseWriter, r *http.Request) {
	if err := inboxFrom(r.Context()).StopWatch(r.Context()); err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{})
}

// handleGetPreferences returns the stored preference document for the
// session user.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.Preferences(r.Context(), userEmailFrom(r.Context()))
	if err != nil {
		s.logger.Error("load preferences failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	if len(prefs) == 0 {
		prefs = json.RawMessage("{}")
	}
	writeJSON(w, http.StatusOK, envelope{"preferences": prefs})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Preferences json.RawMessage `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Preferences) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	email := userEmailFrom(r.Context())
	if err := s.store.SetPreferences(r.Context(), email, body.Preferences); err != nil {
		s.logger.Error("save preferences failed", logging.UserHash(email), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"preferences": body.Preferences})
}

var validStatuses = map[string]bool{
	"online":  true,
	"offline": true,
	"away":    true,
	"busy":    true,
}

func (s *Server) handlePutStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	if !validStatuses[body.Status] {
		writeError(w, http.StatusBadRequest, "Invalid status", envelope{"status": body.Status})
		return
	}

	email := userEmailFrom(r.Context())
	if err := s.store.SetStatus(r.Context(), email, body.Status); err != nil {
		s.logger.Error("save status failed", logging.UserHash(email), logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	s.logger.Debug("status updated", logging.UserHash(email), slog.String("status", body.Status))
	writeJSON(w, http.StatusOK, envelope{"status": body.Status})
}
