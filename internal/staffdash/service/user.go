package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/staffdash/internal/staffdash/domain"
	"github.com/aussiebroadwan/staffdash/internal/staffdash/store"
	"github.com/aussiebroadwan/staffdash/pkg/idx"
)

// CreateUserInput is what an admin supplies for a new staff account.
type CreateUserInput struct {
	Email  string
	Name   string
	Avatar string
	Role   string
}

type UserService struct {
	Store    store.Store
	Activity *ActivityService
	Now      func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Profile returns the sanitized view of an active user.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.UserProjection, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.UserProjection{}, mapLookup(err)
	}
	return u.Projection(), nil
}

// Create adds an active user with two-factor disabled. actorID is the admin
// performing the change and is recorded on the new user's activity.
func (s *UserService) Create(ctx context.Context, in CreateUserInput, actorID string, meta domain.RequestMeta) (domain.UserProjection, error) {
	email, err := domain.NormaliseEmail(in.Email)
	if err != nil {
		return domain.UserProjection{}, ErrInvalidInput
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return domain.UserProjection{}, ErrInvalidInput
	}

	now := s.now()
	u := domain.User{
		ID:        idx.NewAt(now).String(),
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Avatar:    strings.TrimSpace(in.Avatar),
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.UserProjection{}, ErrEmailTaken
		}
		return domain.UserProjection{}, persistence("create user", err)
	}

	s.record(ctx, u.ID, domain.ActivityUserCreated, actorID, meta)
	return u.Projection(), nil
}

// SetActive deactivates or reactivates any user, active or not.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool, actorID string, meta domain.RequestMeta) (domain.UserProjection, error) {
	u, err := s.Store.Users().GetUserByIDAny(ctx, userID)
	if err != nil {
		return domain.UserProjection{}, mapLookup(err)
	}

	now := s.now()
	if err := s.Store.Users().SetActive(ctx, u.ID, active, now); err != nil {
		return domain.UserProjection{}, mapLookup(err)
	}
	u.Active = active
	u.UpdatedAt = now

	activityType := domain.ActivityUserDeactivated
	if active {
		activityType = domain.ActivityUserActivated
	}
	s.record(ctx, u.ID, activityType, actorID, meta)
	return u.Projection(), nil
}

// EnsureUser creates the user unless one with the same email exists. It
// reports whether a user was created.
func (s *UserService) EnsureUser(ctx context.Context, in CreateUserInput) (bool, error) {
	_, err := s.Create(ctx, in, "", domain.RequestMeta{})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrEmailTaken):
		return false, nil
	default:
		return false, err
	}
}

// ActivityFor lists a user's activity after checking the user exists.
// Inactive users are included so admins can review them.
func (s *UserService) ActivityFor(ctx context.Context, userID string, limit int) ([]domain.ActivityLogEntry, error) {
	if _, err := s.Store.Users().GetUserByIDAny(ctx, userID); err != nil {
		return nil, mapLookup(err)
	}
	return s.Activity.ListForUser(ctx, userID, limit)
}

func (s *UserService) record(ctx context.Context, userID, activityType, actorID string, meta domain.RequestMeta) {
	var details map[string]string
	if actorID != "" {
		details = map[string]string{"actorId": actorID}
	}
	err := s.Activity.Record(ctx, domain.ActivityLogEntry{
		UserID:       userID,
		ActivityType: activityType,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Details:      details,
	})
	if err != nil {
		logActivityFailure(ctx, activityType, userID, err)
	}
}
