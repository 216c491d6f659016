package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Twe-ux/arc-messenger/internal/inbox"
	"github.com/Twe-ux/arc-messenger/internal/logging"
)

// pubSubEnvelope is the push delivery wrapper Cloud Pub/Sub posts to the
// webhook.
type pubSubEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// mailboxNotification is the decoded Gmail watch payload.
type mailboxNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// handleNotification processes a mailbox push notification: it resolves
// the affected user, diffs the mailbox against the stored history
// baseline and advances the baseline.
//
// Pub/Sub redelivers on any non-2xx response, so unrecoverable payloads
// and unknown users are acknowledged rather than retried forever.
func (s *Server) handleNotification(w http.ResponseWriter, r *http.Request) {
	var env pubSubEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid notification envelope", nil)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(env.Message.Data)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid notification payload", nil)
		return
	}

	var note mailboxNotification
	if err := json.Unmarshal(raw, &note); err != nil || note.EmailAddress == "" {
		writeError(w, http.StatusBadRequest, "Invalid notification payload", nil)
		return
	}

	s.metrics.notifications.Inc()
	ctx := r.Context()
	logger := s.logger.With(logging.UserHash(note.EmailAddress))

	svc, err := s.services.For(ctx, note.EmailAddress)
	if err != nil {
		if errors.Is(err, inbox.ErrNotAuthenticated) {
			// Watch outlived the stored tokens; ack so delivery stops.
			logger.Debug("notification for unknown user dropped")
			writeJSON(w, http.StatusOK, envelope{"messageIds": []string{}})
			return
		}
		logger.Warn("notification service unavailable", logging.Err(err))
		writeError(w, http.StatusServiceUnavailable, "Gmail integration unavailable", nil)
		return
	}

	baseline, err := s.history.HistoryID(ctx, note.EmailAddress)
	if err != nil {
		logger.Error("history baseline load failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	if baseline == 0 {
		// First notification for this user: record the pushed ID as the
		// baseline and report no changes yet.
		if err := s.history.SetHistoryID(ctx, note.EmailAddress, note.HistoryID); err != nil {
			logger.Error("history baseline store failed", logging.Err(err))
			writeError(w, http.StatusInternalServerError, "Internal server error", nil)
			return
		}
		writeJSON(w, http.StatusOK, envelope{"messageIds": []string{}, "historyId": note.HistoryID})
		return
	}

	diff, err := svc.ChangedMessagesSince(ctx, baseline)
	if err != nil {
		logger.Warn("history diff failed", logging.Err(err))
		writeError(w, http.StatusServiceUnavailable, "Gmail integration unavailable", nil)
		return
	}

	if err := s.history.SetHistoryID(ctx, note.EmailAddress, diff.NewHistoryID); err != nil {
		logger.Error("history baseline store failed", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	ids := diff.AddedMessageIDs
	if ids == nil {
		ids = []string{}
	}
	logger.Debug("notification processed",
		logging.MessageID(env.Message.MessageID))
	writeJSON(w, http.StatusOK, envelope{"messageIds": ids, "historyId": diff.NewHistoryID})
}
