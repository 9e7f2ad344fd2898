package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/dbx"
	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/learnhub/internal/timex"
	"github.com/google/uuid"
)

// Audit actions written to the admin log.
const (
	ActionChangeRole = "change-role"
	ActionDelete     = "delete"
	ActionRestore    = "restore"
	ActionDisable    = "disable"
	ActionEnable     = "enable"
)

const (
	searchLimit  = 50
	historyLimit = 100
)

// AdminService performs administrative changes on accounts. Every change
// is recorded in the admin action log in the same transaction.
type AdminService struct {
	db          dbx.DBTX
	tx          dbx.Transactor
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         timex.Clock
}

// NewAdminService constructs an AdminService. now may be nil.
func NewAdminService(db dbx.DBTX, tx dbx.Transactor, m repomanager.RepositoryManager, logger logging.Logger, now timex.Clock) *AdminService {
	if now == nil {
		now = timex.UTCNow
	}
	return &AdminService{db: db, tx: tx, repomanager: m, logger: logger.With("module", "admin"), now: now}
}

func userNotFound() *Error {
	return newError(KindNotFound, common.ErrorNotFound, "user not found")
}

// parseUserID normalises id. A malformed id names no user.
func parseUserID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", userNotFound()
	}
	return parsed.String(), nil
}

func (s *AdminService) target(ctx context.Context, db dbx.DBTX, id string) (*models.User, error) {
	id, err := parseUserID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repomanager.Users(db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, userNotFound()
		}
		return nil, err
	}
	return user, nil
}

func protected() *Error {
	return newError(KindForbidden, common.ErrSystemProtectedUser, "this user is system protected")
}

// mutate loads the target inside a transaction, lets apply change it and
// writes the audit entry.
func (s *AdminService) mutate(ctx context.Context, admin *Principal, targetID, action string,
	apply func(ctx context.Context, tx dbx.DBTX, user *models.User) (string, error),
) (*models.User, error) {
	var result *models.User
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.target(ctx, tx, targetID)
		if err != nil {
			return err
		}
		details, err := apply(ctx, tx, user)
		if err != nil {
			return err
		}
		if err := s.repomanager.AdminLog(tx).Record(ctx, &models.AdminAction{
			AdminID:      admin.UserID,
			TargetUserID: user.ID,
			Action:       action,
			Details:      details,
			CreatedAt:    s.now(),
		}); err != nil {
			return err
		}
		result = user
		return nil
	})
	if err != nil {
		if _, ok := AsError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("admin %s: %w", action, err)
	}

	s.logger.Info(ctx, "admin action", "action", action, "admin_id", admin.UserID, "target_id", targetID)
	return result, nil
}

// ChangeRole promotes or demotes targetID to role.
func (s *AdminService) ChangeRole(ctx context.Context, admin *Principal, targetID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, newError(KindValidation, common.ErrorValidation, "unknown role")
	}
	return s.mutate(ctx, admin, targetID, ActionChangeRole, func(ctx context.Context, tx dbx.DBTX, user *models.User) (string, error) {
		if user.Role == role {
			return "", newError(KindConflict, common.ErrorAlreadyExists, fmt.Sprintf("user already has role %s", role))
		}
		if user.IsSystemProtected {
			return "", protected()
		}
		if err := s.repomanager.Users(tx).SetRole(ctx, user.ID, role); err != nil {
			return "", err
		}
		details := fmt.Sprintf("%s -> %s", user.Role, role)
		user.Role = role
		return details, nil
	})
}

// Delete soft-deletes targetID and ends its sessions.
func (s *AdminService) Delete(ctx context.Context, admin *Principal, targetID string) (*models.User, error) {
	return s.mutate(ctx, admin, targetID, ActionDelete, func(ctx context.Context, tx dbx.DBTX, user *models.User) (string, error) {
		if user.IsSystemProtected {
			return "", protected()
		}
		if user.IsDeleted {
			return "", newError(KindConflict, common.ErrAccountDeleted, "user is already deleted")
		}
		if err := s.repomanager.Users(tx).SetDeleted(ctx, user.ID, true); err != nil {
			return "", err
		}
		n, err := s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, user.ID)
		if err != nil {
			return "", err
		}
		user.IsDeleted = true
		return fmt.Sprintf("revoked %d refresh tokens", n), nil
	})
}

// Restore reverses a soft delete.
func (s *AdminService) Restore(ctx context.Context, admin *Principal, targetID string) (*models.User, error) {
	return s.mutate(ctx, admin, targetID, ActionRestore, func(ctx context.Context, tx dbx.DBTX, user *models.User) (string, error) {
		if !user.IsDeleted {
			return "", newError(KindConflict, common.ErrorValidation, "user is not deleted")
		}
		if err := s.repomanager.Users(tx).SetDeleted(ctx, user.ID, false); err != nil {
			return "", err
		}
		user.IsDeleted = false
		return "", nil
	})
}

// Disable blocks sign-in for targetID and ends its sessions.
func (s *AdminService) Disable(ctx context.Context, admin *Principal, targetID string) (*models.User, error) {
	return s.mutate(ctx, admin, targetID, ActionDisable, func(ctx context.Context, tx dbx.DBTX, user *models.User) (string, error) {
		if user.IsSystemProtected {
			return "", protected()
		}
		if !user.IsActive {
			return "", newError(KindConflict, common.ErrAccountInactive, "user is already inactive")
		}
		if err := s.repomanager.Users(tx).SetActive(ctx, user.ID, false); err != nil {
			return "", err
		}
		n, err := s.repomanager.RefreshTokens(tx).RevokeAllForUser(ctx, user.ID)
		if err != nil {
			return "", err
		}
		user.IsActive = false
		return fmt.Sprintf("revoked %d refresh tokens", n), nil
	})
}

// Enable re-activates a disabled account. Accounts that never verified
// their e-mail stay inactive.
func (s *AdminService) Enable(ctx context.Context, admin *Principal, targetID string) (*models.User, error) {
	return s.mutate(ctx, admin, targetID, ActionEnable, func(ctx context.Context, tx dbx.DBTX, user *models.User) (string, error) {
		if user.IsActive {
			return "", newError(KindConflict, common.ErrorValidation, "user is already active")
		}
		v, err := s.repomanager.Verifications(tx).GetByUserID(ctx, user.ID)
		if err != nil {
			return "", err
		}
		if !v.CheckedOK {
			return "", newError(KindConflict, common.ErrNotVerified, "user has not verified their email yet")
		}
		if err := s.repomanager.Users(tx).SetActive(ctx, user.ID, true); err != nil {
			return "", err
		}
		user.IsActive = true
		return "", nil
	})
}

// Search finds users whose e-mail contains fragment.
func (s *AdminService) Search(ctx context.Context, fragment string) ([]*models.User, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, newError(KindValidation, common.ErrorValidation, "email is required")
	}
	users, err := s.repomanager.Users(s.db).SearchByEmail(ctx, fragment, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if len(users) == 0 {
		return nil, newError(KindNotFound, common.ErrorNotFound, "no user matches this email")
	}
	return users, nil
}

// Get returns one user by id.
func (s *AdminService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.target(ctx, s.db, id)
	if err != nil {
		if _, ok := AsError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// History lists the admin actions taken on targetID, newest first.
func (s *AdminService) History(ctx context.Context, targetID string) ([]*models.AdminAction, error) {
	targetID, err := parseUserID(targetID)
	if err != nil {
		return nil, err
	}
	actions, err := s.repomanager.AdminLog(s.db).ListForUser(ctx, targetID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("admin history: %w", err)
	}
	return actions, nil
}
