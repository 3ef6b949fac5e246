package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restoran-kpi/internal/apperr"
	"restoran-kpi/internal/config"
	"restoran-kpi/internal/models"
	"restoran-kpi/internal/repo"
	"restoran-kpi/internal/scope"

	"github.com/sirupsen/logrus"
)

// Reverter knows how to reverse recorded writes for one entity type.
// Snapshots are the JSON stored in the log's before/after columns.
type Reverter interface {
	// Remove reverses a create.
	Remove(ctx context.Context, id uint) error
	// Restore reverses an update by putting back the before snapshot.
	Restore(ctx context.Context, id uint, before []byte) error
	// Recreate reverses a delete and returns the new record id.
	Recreate(ctx context.Context, before []byte) (uint, error)
}

type Store interface {
	repo.AuditStore
	repo.UserStore
}

type Service struct {
	store     Store
	log       *logrus.Logger
	reverters map[string]Reverter
	now       func() time.Time
}

func NewService(store Store, log *logrus.Logger) *Service {
	return &Service{
		store:     store,
		log:       log,
		reverters: make(map[string]Reverter),
		now:       time.Now,
	}
}

// Register makes logs of entityType undoable.
func (s *Service) Register(entityType string, r Reverter) {
	s.reverters[entityType] = r
}

type LogOptions struct {
	RestaurantID *uint
	UserID       uint
	EntityType   string
	EntityID     uint
	Action       models.AuditAction
	Description  string
	Before       any
	After        any
}

func snapshot(v any) string {
	// jsonb needs "null" rather than an empty string
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func (s *Service) userName(ctx context.Context, id uint) string {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return ""
	}
	return u.Name
}

func (s *Service) Write(ctx context.Context, opts LogOptions) error {
	entry := models.AuditLog{
		RestaurantID: opts.RestaurantID,
		UserID:       opts.UserID,
		UserName:     s.userName(ctx, opts.UserID),
		EntityType:   opts.EntityType,
		EntityID:     opts.EntityID,
		Action:       opts.Action,
		Description:  opts.Description,
		BeforeData:   snapshot(opts.Before),
		AfterData:    snapshot(opts.After),
	}

	if err := s.store.CreateAuditLog(ctx, &entry); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Record writes a log and only reports failure to the logger; the audited
// write has already happened by the time it is called.
func (s *Service) Record(ctx context.Context, opts LogOptions) {
	if err := s.Write(ctx, opts); err != nil {
		config.LogError(s.log, "audit", "Record", "audit log not written", opts.Description, err)
	}
}

// List returns logs visible to the caller, newest first.
func (s *Service) List(ctx context.Context, caller scope.Caller, f repo.AuditFilter) ([]models.AuditLog, error) {
	rid, err := scope.ResolveList(caller, f.RestaurantID)
	if err != nil {
		return nil, err
	}
	f.RestaurantID = rid
	return s.store.ListAuditLogs(ctx, f)
}

// Undo reverses the write recorded by log id. Each log can be undone once,
// and the undo is itself logged.
func (s *Service) Undo(ctx context.Context, caller scope.Caller, id uint) (models.AuditLog, error) {
	entry, err := s.store.GetAuditLog(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.AuditLog{}, apperr.NotFound("audit log not found", map[string]uint{"id": id})
		}
		return models.AuditLog{}, err
	}

	if err := authorizeUndo(caller, entry); err != nil {
		return models.AuditLog{}, err
	}
	if entry.IsUndone {
		return models.AuditLog{}, apperr.Conflict("this change has already been undone")
	}

	r, ok := s.reverters[entry.EntityType]
	if !ok {
		return models.AuditLog{}, apperr.Validation("changes to this entity cannot be undone",
			map[string]string{"entity_type": entry.EntityType})
	}

	entityID := entry.EntityID
	switch entry.Action {
	case models.AuditActionCreate:
		err = r.Remove(ctx, entry.EntityID)
	case models.AuditActionUpdate:
		err = r.Restore(ctx, entry.EntityID, []byte(entry.BeforeData))
	case models.AuditActionDelete:
		entityID, err = r.Recreate(ctx, []byte(entry.BeforeData))
	default:
		return models.AuditLog{}, apperr.Validation("this action cannot be undone",
			map[string]string{"action": string(entry.Action)})
	}
	if err != nil {
		return models.AuditLog{}, err
	}

	now := s.now()
	entry.IsUndone = true
	entry.UndoneBy = &caller.UserID
	entry.UndoneAt = &now
	if err := s.store.SaveAuditLog(ctx, &entry); err != nil {
		return models.AuditLog{}, fmt.Errorf("mark audit log undone: %w", err)
	}

	undoLog := models.AuditLog{
		RestaurantID: entry.RestaurantID,
		UserID:       caller.UserID,
		UserName:     s.userName(ctx, caller.UserID),
		EntityType:   entry.EntityType,
		EntityID:     entityID,
		Action:       models.AuditActionUndo,
		Description:  fmt.Sprintf("undone: %s", entry.Description),
		BeforeData:   entry.AfterData,
		AfterData:    entry.BeforeData,
		Undone:       true,
	}
	if err := s.store.CreateAuditLog(ctx, &undoLog); err != nil {
		return models.AuditLog{}, fmt.Errorf("write undo log: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"audit_log_id": entry.ID,
		"entity_type":  entry.EntityType,
		"entity_id":    entityID,
		"user_id":      caller.UserID,
	}).Info("audit log undone")

	return undoLog, nil
}

// authorizeUndo allows admins everything and managers their own restaurant.
// Undoing a create removes the record, so it needs delete rights.
func authorizeUndo(caller scope.Caller, entry models.AuditLog) error {
	if entry.RestaurantID == nil {
		if caller.Role != models.RoleAdmin {
			return apperr.Forbidden("only admins can undo this change")
		}
		return nil
	}
	if err := scope.AuthorizeWrite(caller, *entry.RestaurantID); err != nil {
		return err
	}
	if entry.Action == models.AuditActionCreate {
		return scope.AuthorizeDelete(caller)
	}
	return nil
}
