package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parishd/internal/domain"
)

// CreateAdmin inserts an administrator record and reports it on the feed.
func (s *Store) CreateAdmin(ctx context.Context, a domain.Admin) (domain.Admin, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = domain.RoleAdmin
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	const query = `
		INSERT INTO administrators (id, name, email, role, branch, created_at, updated_at)
		VALUES (:id, :name, :email, :role, :branch, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, query, a); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.Admin{}, domain.E(domain.CodeAlreadyExists, "store.create_admin", a.Email, domain.ErrEmailTaken)
		}
		return domain.Admin{}, fmt.Errorf("inserting administrator: %w", err)
	}

	s.publish(domain.ChangeEvent{
		Op:    domain.OpInsert,
		Table: domain.TableAdmins,
		New:   adminRow(a),
	})
	return a, nil
}

// UpdateAdmin applies an edit to an administrator record.
func (s *Store) UpdateAdmin(ctx context.Context, a domain.Admin) (domain.Admin, error) {
	old, err := s.GetAdmin(ctx, a.ID)
	if err != nil {
		return domain.Admin{}, err
	}

	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE administrators SET
			name = :name, email = :email, role = :role, branch = :branch,
			updated_at = :updated_at
		WHERE id = :id`

	if _, err := s.db.NamedExecContext(ctx, query, a); err != nil {
		return domain.Admin{}, fmt.Errorf("updating administrator: %w", err)
	}

	s.publish(domain.ChangeEvent{
		Op:    domain.OpUpdate,
		Table: domain.TableAdmins,
		New:   adminRow(a),
		Old:   adminRow(old),
	})
	return a, nil
}

// DeleteAdmin removes an administrator record.
func (s *Store) DeleteAdmin(ctx context.Context, adminID string) error {
	old, err := s.GetAdmin(ctx, adminID)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM administrators WHERE id = ?", adminID); err != nil {
		return fmt.Errorf("deleting administrator: %w", err)
	}

	s.publish(domain.ChangeEvent{
		Op:    domain.OpDelete,
		Table: domain.TableAdmins,
		Old:   adminRow(old),
	})
	return nil
}

// GetAdmin fetches one administrator by id.
func (s *Store) GetAdmin(ctx context.Context, adminID string) (domain.Admin, error) {
	var a domain.Admin
	err := s.db.GetContext(ctx, &a, "SELECT * FROM administrators WHERE id = ?", adminID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Admin{}, domain.E(domain.CodeNotFound, "store.get_admin", adminID, domain.ErrAdminNotFound)
	}
	if err != nil {
		return domain.Admin{}, fmt.Errorf("fetching administrator: %w", err)
	}
	return a, nil
}

// ListAdmins returns every administrator record, newest first.
func (s *Store) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	admins := []domain.Admin{}
	err := s.db.SelectContext(ctx, &admins, "SELECT * FROM administrators ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing administrators: %w", err)
	}
	return admins, nil
}

func adminRow(a domain.Admin) map[string]any {
	return map[string]any{
		"id":         a.ID,
		"name":       a.Name,
		"email":      a.Email,
		"role":       string(a.Role),
		"branch":     a.Branch,
		"created_at": a.CreatedAt,
		"updated_at": a.UpdatedAt,
	}
}
