package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/utils"
)

// CreateWorkerInput carries the fields of a new worker.
type CreateWorkerInput struct {
	Name       string
	EmployeeID string
	Status     string
}

// WorkerService is the source of truth for workers and their assignments.
type WorkerService struct {
	db *gorm.DB
}

func NewWorkerService(db *gorm.DB) *WorkerService {
	return &WorkerService{db: db}
}

func (s *WorkerService) Create(ctx context.Context, in CreateWorkerInput) (*models.Worker, error) {
	name := utils.SanitizeText(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, invalidf("employeeId is required")
	}
	status := models.WorkerInactive
	if in.Status != "" {
		var err error
		if status, err = parseWorkerStatus(in.Status); err != nil {
			return nil, err
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Worker{}).Where("employee_id = ?", employeeID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check employee id: %w", err)
	}
	if count > 0 {
		return nil, conflictf("worker with employeeId %s already exists", employeeID)
	}

	worker := models.Worker{
		Name:          name,
		EmployeeID:    employeeID,
		Status:        status,
		Activities:    datatypes.JSONSlice[string]{},
		AssignedPosts: datatypes.JSONSlice[string]{},
	}
	if err := s.db.WithContext(ctx).Create(&worker).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("worker with employeeId %s already exists", employeeID)
		}
		return nil, fmt.Errorf("create worker: %w", err)
	}
	return &worker, nil
}

func (s *WorkerService) FindAll(ctx context.Context) ([]models.Worker, error) {
	var workers []models.Worker
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&workers).Error; err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return workers, nil
}

func (s *WorkerService) FindOne(ctx context.Context, id string) (*models.Worker, error) {
	if !utils.IsValidID(id) {
		return nil, invalidf("invalid worker ID format")
	}
	return s.find(ctx, s.db, id)
}

// FindByIDs resolves every requested worker; one unknown id fails the whole lookup.
func (s *WorkerService) FindByIDs(ctx context.Context, ids []string) ([]models.Worker, error) {
	ids = utils.Unique(ids)
	if len(ids) == 0 {
		return nil, invalidf("ids must not be empty")
	}
	if bad, ok := utils.AllValidIDs(ids); !ok {
		return nil, invalidf("invalid worker ID format: %s", bad)
	}

	var workers []models.Worker
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&workers).Error; err != nil {
		return nil, fmt.Errorf("find workers: %w", err)
	}
	if len(workers) != len(ids) {
		return nil, notFoundf("some workers not found")
	}
	return workers, nil
}

func (s *WorkerService) UpdateStatus(ctx context.Context, id, status string) (*models.Worker, error) {
	st, err := parseWorkerStatus(status)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(w *models.Worker) map[string]interface{} {
		w.Status = st
		return map[string]interface{}{"status": st}
	})
}

// UpdateAssignedPosts replaces the worker's assigned post list.
func (s *WorkerService) UpdateAssignedPosts(ctx context.Context, id string, postIDs []string) (*models.Worker, error) {
	posts, err := validPostIDs(postIDs)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(w *models.Worker) map[string]interface{} {
		w.AssignedPosts = posts
		return map[string]interface{}{"assigned_posts": posts}
	})
}

// UpdateAssignment replaces assigned posts and status in one write.
func (s *WorkerService) UpdateAssignment(ctx context.Context, id string, postIDs []string, status string) (*models.Worker, error) {
	posts, err := validPostIDs(postIDs)
	if err != nil {
		return nil, err
	}
	st, err := parseWorkerStatus(status)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(w *models.Worker) map[string]interface{} {
		w.AssignedPosts = posts
		w.Status = st
		return map[string]interface{}{"assigned_posts": posts, "status": st}
	})
}

// AppendActivity records an activity id on the worker. Appending twice is a no-op.
func (s *WorkerService) AppendActivity(ctx context.Context, id, activityID string) (*models.Worker, error) {
	if !utils.IsValidID(activityID) {
		return nil, invalidf("invalid activity ID format")
	}
	return s.mutate(ctx, id, func(w *models.Worker) map[string]interface{} {
		w.Activities = utils.Union(w.Activities, activityID)
		return map[string]interface{}{"activities": w.Activities}
	})
}

// RemovePostAssignment drops postID from every worker and returns how many changed.
func (s *WorkerService) RemovePostAssignment(ctx context.Context, postID string) (int, error) {
	if !utils.IsValidID(postID) {
		return 0, invalidf("invalid post ID format")
	}

	updated := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch []models.Worker
		return tx.Select("id", "assigned_posts").FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for _, w := range batch {
				remaining, changed := utils.Without(w.AssignedPosts, postID)
				if !changed {
					continue
				}
				if err := tx.Model(&models.Worker{}).Where("id = ?", w.ID).Update("assigned_posts", remaining).Error; err != nil {
					return err
				}
				updated++
			}
			return nil
		}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("remove post assignment: %w", err)
	}
	return updated, nil
}

func (s *WorkerService) Remove(ctx context.Context, id string) error {
	if !utils.IsValidID(id) {
		return invalidf("invalid worker ID format")
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Worker{})
	if res.Error != nil {
		return fmt.Errorf("delete worker: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("worker with ID %s not found", id)
	}
	return nil
}

// mutate loads a worker, applies change and persists the returned columns in one transaction.
func (s *WorkerService) mutate(ctx context.Context, id string, change func(*models.Worker) map[string]interface{}) (*models.Worker, error) {
	if !utils.IsValidID(id) {
		return nil, invalidf("invalid worker ID format")
	}
	var worker *models.Worker
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if worker, err = s.find(ctx, tx, id); err != nil {
			return err
		}
		return tx.Model(worker).Updates(change(worker)).Error
	})
	if err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *WorkerService) find(ctx context.Context, db *gorm.DB, id string) (*models.Worker, error) {
	var worker models.Worker
	if err := db.WithContext(ctx).First(&worker, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("worker with ID %s not found", id)
		}
		return nil, fmt.Errorf("load worker: %w", err)
	}
	return &worker, nil
}

func parseWorkerStatus(s string) (models.WorkerStatus, error) {
	status := models.WorkerStatus(s)
	if !status.Valid() {
		return "", invalidf("invalid status %q: must be one of ACTIVE, INACTIVE, ON_LEAVE, BUSY", s)
	}
	return status, nil
}

func validPostIDs(ids []string) (datatypes.JSONSlice[string], error) {
	ids = utils.Unique(ids)
	if bad, ok := utils.AllValidIDs(ids); !ok {
		return nil, invalidf("invalid post ID format: %s", bad)
	}
	return datatypes.JSONSlice[string](ids), nil
}
