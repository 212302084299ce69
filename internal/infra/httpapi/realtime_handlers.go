package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"parishd/internal/domain"
)

// Stream channel names accepted by the subscribe endpoint.
const (
	channelUserNotifications  = "user-notifications"
	channelAdminNotifications = "admin-notifications"
)

// handleSubscribe opens a server-sent-event stream. The user stream is a
// local subscription on the caller's own identity; the admin stream attaches
// to the shared broadcast channel, which also carries heartbeats.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	memberID := r.Header.Get(HeaderMemberID)
	channel := chi.URLParam(r, "channel")

	switch channel {
	case channelUserNotifications:
		s.streamUser(w, r, memberID)
	case channelAdminNotifications:
		switch domain.Role(r.Header.Get(HeaderMemberRole)) {
		case domain.RoleAdmin, domain.RolePastor, domain.RoleSuperAdmin:
			s.streamAdmin(w, r)
		default:
			writeJSON(w, http.StatusForbidden, envelope{Status: "error", Message: "admin role required"})
		}
	default:
		writeError(w, domain.E(domain.CodeInvalidArgument, "httpapi.subscribe", channel, domain.ErrInvalidChannel))
	}
}

func (s *Server) streamUser(w http.ResponseWriter, r *http.Request, memberID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "streaming unsupported"})
		return
	}

	frames := make(chan Frame, domain.DefaultStreamBuffer)
	unsubscribe := s.svc.Subscribe(memberID, func(n domain.Notification) {
		data, err := json.Marshal(n)
		if err != nil {
			s.logger.Error("notification encode failed", zap.Error(err))
			return
		}
		select {
		case frames <- Frame{Event: domain.EventNotification, Data: data}:
		default:
		}
	})
	defer unsubscribe()

	s.stream(w, r, flusher, frames)
}

func (s *Server) streamAdmin(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, envelope{Status: "error", Message: "streaming unsupported"})
		return
	}

	if err := s.svc.EnsureAdminChannel(); err != nil {
		writeError(w, err)
		return
	}
	frames, detach, err := s.transport.Attach(domain.AdminChannelName)
	if err != nil {
		writeError(w, err)
		return
	}
	defer detach()

	s.stream(w, r, flusher, frames)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, flusher http.Flusher, frames <-chan Frame) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Event, frame.Data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

type sendNotificationRequest struct {
	RecipientType    domain.TargetKind       `json:"recipientType"`
	RecipientID      string                  `json:"recipientId"`
	NotificationType domain.NotificationType `json:"notificationType"`
	Message          string                  `json:"message"`
}

// handleSendNotification lets an admin construct and submit a notification
// directly, bypassing the change observer.
func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Message == "" || req.NotificationType == "" || req.RecipientType == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "missing required notification data"})
		return
	}
	if !req.NotificationType.Valid() {
		writeError(w, domain.E(domain.CodeInvalidArgument, "httpapi.notify", string(req.NotificationType), domain.ErrInvalidTag))
		return
	}

	n := domain.NewNotification(req.NotificationType, domain.ManualData{
		Message:    req.Message,
		SenderID:   r.Header.Get(HeaderMemberID),
		SenderName: r.Header.Get(HeaderMemberName),
	})
	if _, err := s.svc.SendNotification(req.RecipientType, req.RecipientID, n); err != nil {
		writeError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Notification sent successfully")
}

type broadcastRequest struct {
	Message        string `json:"message"`
	TargetAudience string `json:"targetAudience"`
	Priority       string `json:"priority"`
}

// handleBroadcast sends a BROADCAST_MESSAGE to the admin channel.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Message == "" || req.TargetAudience == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "message and target audience are required"})
		return
	}
	if req.Priority == "" {
		req.Priority = "normal"
	}

	if req.TargetAudience == "all_admins" {
		s.svc.BroadcastToAdmins(domain.NewNotification(domain.NotifyBroadcast, domain.BroadcastData{
			Message:        req.Message,
			SenderID:       r.Header.Get(HeaderMemberID),
			SenderName:     r.Header.Get(HeaderMemberName),
			Priority:       req.Priority,
			TargetAudience: req.TargetAudience,
		}))
	}

	writeMessage(w, http.StatusOK, "Broadcast sent successfully")
}

type connectionStatusResponse struct {
	MemberID            string         `json:"memberId"`
	Connected           bool           `json:"connected"`
	Channels            []string       `json:"channels"`
	ActiveSubscriptions int            `json:"activeSubscriptions"`
	Subscribers         map[string]int `json:"subscribers"`
	CheckedAt           time.Time      `json:"checkedAt"`
}

// handleStatus reports the diagnostic connection snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	memberID := r.Header.Get(HeaderMemberID)
	status := s.svc.Status()

	writeData(w, http.StatusOK, connectionStatusResponse{
		MemberID:            memberID,
		Connected:           true,
		Channels:            status.Channels,
		ActiveSubscriptions: status.Subscribers[memberID],
		Subscribers:         status.Subscribers,
		CheckedAt:           time.Now().UTC(),
	})
}

// handleStats serves the current rollup without broadcasting it.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

type inboxResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   uint64                `json:"unreadCount"`
}

func (s *Server) handleMemberInbox(w http.ResponseWriter, r *http.Request) {
	s.serveInbox(w, domain.UserChannelName(chi.URLParam(r, "id")))
}

func (s *Server) handleMemberMarkRead(w http.ResponseWriter, r *http.Request) {
	s.markRead(w, domain.UserChannelName(chi.URLParam(r, "id")))
}

func (s *Server) handleAdminInbox(w http.ResponseWriter, r *http.Request) {
	s.serveInbox(w, domain.AdminChannelName)
}

func (s *Server) handleAdminMarkRead(w http.ResponseWriter, r *http.Request) {
	s.markRead(w, domain.AdminChannelName)
}

func (s *Server) serveInbox(w http.ResponseWriter, channel string) {
	notifications, err := s.inbox.Recent(channel, domain.DefaultListPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	unread, err := s.inbox.UnreadCount(channel)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, inboxResponse{Notifications: notifications, UnreadCount: unread})
}

func (s *Server) markRead(w http.ResponseWriter, channel string) {
	if err := s.inbox.MarkAllRead(channel); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "All notifications marked as read")
}
