package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"parishd/internal/domain"
	"parishd/internal/infra/store"
)

type registerRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Bio    string `json:"bio"`
	Branch string `json:"branch"`
}

// handleRegister creates a pending member. The change observer picks the
// insert off the feed and announces it to admins.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.Email == "" || req.Branch == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Status: "error", Message: "name, email, and branch are required"})
		return
	}

	member, err := s.store.CreateMember(r.Context(), domain.Member{
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Bio:    req.Bio,
		Branch: req.Branch,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		Status:  "success",
		Message: "Member registered successfully. Please wait for admin approval.",
		Data:    member,
	})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.MemberFilter{
		Branch: query.Get("branch"),
		Status: domain.ApprovalStatus(query.Get("approvalStatus")),
		Search: query.Get("search"),
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}

	page, err := s.store.ListMembers(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := s.store.GetMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, member)
}

type updateMemberRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Bio    *string `json:"bio"`
	Branch *string `json:"branch"`
}

// handleUpdateMember applies a partial profile edit. Approval state is not
// editable here; that goes through approve/reject.
func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req updateMemberRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	member, err := s.store.GetMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Name != nil {
		member.Name = *req.Name
	}
	if req.Phone != nil {
		member.Phone = *req.Phone
	}
	if req.Bio != nil {
		member.Bio = *req.Bio
	}
	if req.Branch != nil {
		member.Branch = *req.Branch
	}

	updated, err := s.store.UpdateMember(r.Context(), member)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: "Profile updated successfully.", Data: updated})
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMember(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Member deleted successfully.")
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	member, err := s.store.ApproveMember(r.Context(), chi.URLParam(r, "id"), r.Header.Get(HeaderMemberID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: "Member approved successfully.", Data: member})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	member, err := s.store.RejectMember(r.Context(), chi.URLParam(r, "id"), r.Header.Get(HeaderMemberID), req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: "Member rejected successfully.", Data: member})
}
