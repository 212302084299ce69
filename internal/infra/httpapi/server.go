// Package httpapi is the public HTTP surface of the portal backend: the
// realtime subscription stream, manual notification sends, and the member
// CRUD glue around the row store. Token verification happens upstream; the
// handlers trust the identity headers set by the gateway.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"parishd/internal/domain"
	"parishd/internal/infra/inbox"
	"parishd/internal/infra/realtime"
	"parishd/internal/infra/store"
)

// Identity headers set by the auth gateway.
const (
	HeaderMemberID   = "X-Member-ID"
	HeaderMemberRole = "X-Member-Role"
	HeaderMemberName = "X-Member-Name"
)

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	logger    *zap.Logger
	svc       *realtime.Service
	transport *SSETransport
	store     *store.Store
	inbox     *inbox.Inbox
}

func NewServer(svc *realtime.Service, transport *SSETransport, st *store.Store, ib *inbox.Inbox, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:    logger.Named("httpapi"),
		svc:       svc,
		transport: transport,
		store:     st,
		inbox:     ib,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/realtime", func(r chi.Router) {
			r.With(s.requireIdentity).Get("/subscribe/{channel}", s.handleSubscribe)
			r.With(s.requireAdmin).Post("/notifications", s.handleSendNotification)
			r.With(s.requireAdmin).Post("/broadcast", s.handleBroadcast)
			r.With(s.requireIdentity).Get("/status", s.handleStatus)
		})

		r.Route("/members", func(r chi.Router) {
			r.Post("/", s.handleRegister)
			r.With(s.requireAdmin).Get("/", s.handleListMembers)
			r.Route("/{id}", func(r chi.Router) {
				r.With(s.requireIdentity).Get("/", s.handleGetMember)
				r.With(s.requireIdentity).Patch("/", s.handleUpdateMember)
				r.With(s.requireAdmin).Delete("/", s.handleDeleteMember)
				r.With(s.requireAdmin).Post("/approve", s.handleApprove)
				r.With(s.requireAdmin).Post("/reject", s.handleReject)
				r.With(s.requireIdentity).Get("/inbox", s.handleMemberInbox)
				r.With(s.requireIdentity).Post("/inbox/mark-read", s.handleMemberMarkRead)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/stats", s.handleStats)
			r.Get("/inbox", s.handleAdminInbox)
			r.Post("/inbox/mark-read", s.handleAdminMarkRead)
		})
	})

	return r
}

// Serve runs the listener until the context is canceled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = domain.DefaultHTTPListenAddress
	}
	server := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("api server failed to start: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("api server shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("api server stopped")
		return nil
	}
}

func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderMemberID) == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{Status: "error", Message: "missing identity"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderMemberID) == "" {
			writeJSON(w, http.StatusUnauthorized, envelope{Status: "error", Message: "missing identity"})
			return
		}
		switch domain.Role(r.Header.Get(HeaderMemberRole)) {
		case domain.RoleAdmin, domain.RolePastor, domain.RoleSuperAdmin:
			next.ServeHTTP(w, r)
		default:
			writeJSON(w, http.StatusForbidden, envelope{Status: "error", Message: "admin role required"})
		}
	})
}
