package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/observability"
	"github.com/flameberry/PrimePatrol/utils"
)

const (
	postCachePrefix    = "cache:post"
	postListCacheKey   = "cache:posts:list"
	postDetailCacheKey = "cache:post:detail:"
)

// CreatePostInput carries the fields of a new report.
type CreatePostInput struct {
	UserID    string
	Title     string
	Content   string
	Latitude  *float64
	Longitude *float64
}

// ImageUpload is an image attached to a new report.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdatePostInput is a partial update; nil fields are left unchanged.
type UpdatePostInput struct {
	Title   *string
	Content *string
	Status  *string
}

// ActivityInput describes a worker action on a post.
type ActivityInput struct {
	WorkerID    string
	Action      string
	Description string
}

// PostStats aggregates post counts for the dashboard.
type PostStats struct {
	TotalPosts    int64 `json:"totalPosts"`
	ActivePosts   int64 `json:"activePosts"`
	ResolvedPosts int64 `json:"resolvedPosts"`
}

// PostDetail is a post with its assigned workers and activity records resolved.
type PostDetail struct {
	models.Post
	Workers    []models.Worker         `json:"workers"`
	Activities []models.WorkerActivity `json:"activities"`
}

// WorkerDetail is a worker with its activity records resolved.
type WorkerDetail struct {
	models.Worker
	ActivityLog []models.WorkerActivity `json:"activityLog"`
}

// PostService owns posts and the activity ledger, and keeps the worker and user services informed.
type PostService struct {
	db      *gorm.DB
	workers WorkerDirectory
	users   UserDirectory
	store   ObjectStore
	notify  *Notifier
	cache   *utils.Cache
	outbox  Outbox
	now     func() time.Time
}

type PostServiceOption func(*PostService)

// WithCache caches post reads in Redis.
func WithCache(c *utils.Cache) PostServiceOption {
	return func(s *PostService) { s.cache = c }
}

// WithOutbox records failed notifications for redelivery.
func WithOutbox(o Outbox) PostServiceOption {
	return func(s *PostService) { s.outbox = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) PostServiceOption {
	return func(s *PostService) { s.now = now }
}

func NewPostService(db *gorm.DB, workers WorkerDirectory, users UserDirectory, store ObjectStore, opts ...PostServiceOption) *PostService {
	s := &PostService{
		db:      db,
		workers: workers,
		users:   users,
		store:   store,
		notify:  NewNotifier(workers, users),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePost stores a new pending report, uploading its image first when present.
// The author's post list is updated best-effort afterwards.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput, image *ImageUpload) (*models.Post, error) {
	if !utils.IsValidID(in.UserID) {
		return nil, invalidf("invalid user ID format")
	}
	title := utils.SanitizeText(in.Title)
	if title == "" {
		return nil, invalidf("title is required")
	}
	content := utils.SanitizeRich(in.Content)
	if content == "" {
		return nil, invalidf("content is required")
	}

	now := s.now()
	post := models.Post{
		UserID:           in.UserID,
		Title:            title,
		Content:          content,
		Status:           models.PostPending,
		AssignedWorkers:  datatypes.JSONSlice[string]{},
		WorkerActivities: datatypes.JSONSlice[string]{},
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if image != nil {
		key := fmt.Sprintf("%d-%s", now.UnixMilli(), safeFilename(image.Filename))
		url, err := s.store.Put(ctx, key, image.Body, image.Size, image.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		post.ImageURL = &url
	}

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.invalidate(ctx)

	s.deliver(ctx, Notification{Kind: models.NotifyUserPostAppend, Target: post.UserID, Ref: post.ID})
	return &post, nil
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]PostDetail, error) {
	var cached []PostDetail
	if s.cache.GetJSON(ctx, postListCacheKey, &cached) {
		return cached, nil
	}

	var posts []models.Post
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	details, complete, err := s.populate(ctx, posts)
	if err != nil {
		return nil, err
	}
	if complete {
		s.cache.SetJSON(ctx, postListCacheKey, details)
	}
	return details, nil
}

// GetPost returns one post with its workers and activities.
func (s *PostService) GetPost(ctx context.Context, id string) (*PostDetail, error) {
	if !utils.IsValidID(id) {
		return nil, invalidf("invalid post ID format")
	}
	var cached PostDetail
	if s.cache.GetJSON(ctx, postDetailCacheKey+id, &cached) {
		return &cached, nil
	}

	post, err := s.findPost(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	details, complete, err := s.populate(ctx, []models.Post{*post})
	if err != nil {
		return nil, err
	}
	if complete {
		s.cache.SetJSON(ctx, postDetailCacheKey+id, details[0])
	}
	return &details[0], nil
}

// UpdatePost applies a partial update to title, content or status.
func (s *PostService) UpdatePost(ctx context.Context, id string, in UpdatePostInput) (*models.Post, error) {
	if !utils.IsValidID(id) {
		return nil, invalidf("invalid post ID format")
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		title := utils.SanitizeText(*in.Title)
		if title == "" {
			return nil, invalidf("title cannot be empty")
		}
		updates["title"] = title
	}
	if in.Content != nil {
		content := utils.SanitizeRich(*in.Content)
		if content == "" {
			return nil, invalidf("content cannot be empty")
		}
		updates["content"] = content
	}
	if in.Status != nil {
		status := models.PostStatus(*in.Status)
		if !status.Valid() {
			return nil, invalidf("invalid status %q", *in.Status)
		}
		updates["status"] = status
	}

	var post *models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if post, err = s.findPost(ctx, tx, id); err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = s.now()
		return tx.Model(post).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.findPost(ctx, s.db, id)
}

// AssignWorkers adds workers to a post after the worker service confirms they all exist.
// Assigning an already assigned worker is a no-op.
func (s *PostService) AssignWorkers(ctx context.Context, postID string, workerIDs []string) (*models.Post, error) {
	if !utils.IsValidID(postID) {
		return nil, invalidf("invalid post ID format")
	}
	ids := utils.Unique(workerIDs)
	if len(ids) == 0 {
		return nil, invalidf("workerIds must contain at least one worker ID")
	}
	if bad, ok := utils.AllValidIDs(ids); !ok {
		return nil, invalidf("invalid worker ID format: %s", bad)
	}

	if _, err := s.findPost(ctx, s.db, postID); err != nil {
		return nil, err
	}

	found, err := s.workers.FindByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("some workers not found")
		}
		return nil, err
	}
	if len(found) < len(ids) {
		return nil, notFoundf("some workers not found")
	}

	var post *models.Post
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if post, err = s.findPost(ctx, tx, postID); err != nil {
			return err
		}
		post.AssignedWorkers = utils.Union(post.AssignedWorkers, ids...)
		post.UpdatedAt = s.now()
		return tx.Model(post).Updates(map[string]interface{}{
			"assigned_workers": post.AssignedWorkers,
			"updated_at":       post.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return post, nil
}

// LogWorkerActivity records an action by a worker on a post and returns the worker
// with its activity log.
func (s *PostService) LogWorkerActivity(ctx context.Context, postID string, in ActivityInput) (*WorkerDetail, error) {
	if !utils.IsValidID(postID) {
		return nil, invalidf("invalid post ID format")
	}
	if !utils.IsValidID(in.WorkerID) {
		return nil, invalidf("invalid worker ID format")
	}
	action := utils.SanitizeText(in.Action)
	if action == "" {
		return nil, invalidf("action is required")
	}

	var worker *models.Worker
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.findPost(gctx, s.db, postID)
		return err
	})
	g.Go(func() error {
		w, err := s.workers.FindOne(gctx, in.WorkerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFoundf("worker with ID %s not found", in.WorkerID)
			}
			return err
		}
		worker = w
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activity := models.WorkerActivity{
		PostID:      postID,
		WorkerID:    worker.ID,
		Action:      action,
		Description: utils.SanitizeRich(in.Description),
		CreatedAt:   s.now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.findPost(ctx, tx, postID)
		if err != nil {
			return err
		}
		if err := tx.Create(&activity).Error; err != nil {
			return fmt.Errorf("create activity: %w", err)
		}
		post.WorkerActivities = utils.Union(post.WorkerActivities, activity.ID)
		return tx.Model(post).Update("worker_activities", post.WorkerActivities).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	updated, err := s.workers.AppendActivity(ctx, worker.ID, activity.ID)
	if err != nil {
		s.recordFailure(ctx, Notification{Kind: models.NotifyWorkerActivityAppend, Target: worker.ID, Ref: activity.ID}, err)
		worker.Activities = utils.Union(worker.Activities, activity.ID)
		updated = worker
	}

	var log []models.WorkerActivity
	if len(updated.Activities) > 0 {
		if err := s.db.WithContext(ctx).
			Where("id IN ?", []string(updated.Activities)).
			Order("created_at DESC").Order("id DESC").
			Find(&log).Error; err != nil {
			return nil, fmt.Errorf("load worker activities: %w", err)
		}
	}
	if log == nil {
		log = []models.WorkerActivity{}
	}
	return &WorkerDetail{Worker: *updated, ActivityLog: log}, nil
}

// GetWorkerActivities lists a post's activities newest first with their workers attached.
func (s *PostService) GetWorkerActivities(ctx context.Context, postID string) ([]models.WorkerActivity, error) {
	if !utils.IsValidID(postID) {
		return nil, invalidf("invalid post ID format")
	}

	var activities []models.WorkerActivity
	if err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").Order("id DESC").
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	if len(activities) == 0 {
		// tell an unknown post apart from one without activity
		if _, err := s.findPost(ctx, s.db, postID); err != nil {
			return nil, err
		}
		return []models.WorkerActivity{}, nil
	}

	workerIDs := make([]string, 0, len(activities))
	for _, a := range activities {
		workerIDs = append(workerIDs, a.WorkerID)
	}
	workers, _ := s.lookupWorkers(ctx, utils.Unique(workerIDs))
	for i := range activities {
		if w, ok := workers[activities[i].WorkerID]; ok {
			activities[i].Worker = &w
		}
	}
	return activities, nil
}

// GetPostStats counts all, active and resolved posts.
func (s *PostService) GetPostStats(ctx context.Context) (*PostStats, error) {
	var stats PostStats
	db := s.db.WithContext(ctx).Model(&models.Post{})
	if err := db.Session(&gorm.Session{}).Count(&stats.TotalPosts).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("status = ?", models.PostActive).Count(&stats.ActivePosts).Error; err != nil {
		return nil, fmt.Errorf("count active posts: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("status = ?", models.PostResolved).Count(&stats.ResolvedPosts).Error; err != nil {
		return nil, fmt.Errorf("count resolved posts: %w", err)
	}
	return &stats, nil
}

// RemovePost deletes a post with its activities, then tells the worker and user
// services to drop their references. Those notifications never fail the removal.
func (s *PostService) RemovePost(ctx context.Context, id string) error {
	if !utils.IsValidID(id) {
		return invalidf("invalid post ID format")
	}

	var post *models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if post, err = s.findPost(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.WorkerActivity{}).Error; err != nil {
			return fmt.Errorf("delete activities: %w", err)
		}
		return tx.Delete(post).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)

	s.deliver(ctx, Notification{Kind: models.NotifyWorkerPostRemove, Ref: post.ID})
	s.deliver(ctx, Notification{Kind: models.NotifyUserPostRemove, Target: post.UserID, Ref: post.ID})
	return nil
}

func (s *PostService) findPost(ctx context.Context, db *gorm.DB, id string) (*models.Post, error) {
	var post models.Post
	if err := db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("post with ID %s not found", id)
		}
		return nil, fmt.Errorf("load post: %w", err)
	}
	return &post, nil
}

// populate attaches activity records and, best-effort, worker documents to posts.
// complete reports whether every worker lookup got an answer; partial results are not cached.
func (s *PostService) populate(ctx context.Context, posts []models.Post) (details []PostDetail, complete bool, err error) {
	details = make([]PostDetail, len(posts))
	if len(posts) == 0 {
		return details, true, nil
	}

	postIDs := make([]string, 0, len(posts))
	var workerIDs []string
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		workerIDs = append(workerIDs, p.AssignedWorkers...)
	}

	var activities []models.WorkerActivity
	if err := s.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at DESC").Order("id DESC").
		Find(&activities).Error; err != nil {
		return nil, false, fmt.Errorf("load activities: %w", err)
	}
	byPost := make(map[string][]models.WorkerActivity, len(posts))
	for _, a := range activities {
		byPost[a.PostID] = append(byPost[a.PostID], a)
	}

	workers, complete := s.lookupWorkers(ctx, utils.Unique(workerIDs))
	for i, p := range posts {
		d := PostDetail{Post: p, Workers: []models.Worker{}, Activities: byPost[p.ID]}
		if d.Activities == nil {
			d.Activities = []models.WorkerActivity{}
		}
		for _, id := range p.AssignedWorkers {
			if w, ok := workers[id]; ok {
				d.Workers = append(d.Workers, w)
			}
		}
		details[i] = d
	}
	return details, complete, nil
}

// lookupWorkers resolves worker documents. Workers that cannot be fetched are left out;
// complete is false when a lookup failed for a reason other than the worker being gone.
func (s *PostService) lookupWorkers(ctx context.Context, ids []string) (map[string]models.Worker, bool) {
	out := make(map[string]models.Worker, len(ids))
	if len(ids) == 0 {
		return out, true
	}
	found, err := s.workers.FindByIDs(ctx, ids)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			utils.Logger.Warn("worker lookup failed", zap.Strings("worker_ids", ids), zap.Error(err))
			return out, false
		}
		// one deleted worker fails the bulk lookup; fall back to single fetches
		complete := true
		for _, id := range ids {
			w, err := s.workers.FindOne(ctx, id)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					complete = false
				}
				continue
			}
			out[w.ID] = *w
		}
		return out, complete
	}
	for _, w := range found {
		out[w.ID] = w
	}
	return out, true
}

// deliver sends a notification, recording it for retry when it fails.
func (s *PostService) deliver(ctx context.Context, n Notification) {
	if err := s.notify.Deliver(ctx, n); err != nil {
		s.recordFailure(ctx, n, err)
	}
}

func (s *PostService) recordFailure(ctx context.Context, n Notification, cause error) {
	observability.RecordNotificationFailure(n.Kind)
	utils.Logger.Warn("cross-service notification failed",
		zap.String("kind", n.Kind),
		zap.String("target", n.Target),
		zap.String("ref", n.Ref),
		zap.Error(cause),
	)
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Enqueue(context.WithoutCancel(ctx), n, cause); err != nil {
		utils.Logger.Error("outbox enqueue failed", zap.String("kind", n.Kind), zap.String("ref", n.Ref), zap.Error(err))
	}
}

func (s *PostService) invalidate(ctx context.Context) {
	s.cache.InvalidateByPrefix(ctx, postCachePrefix)
}

func safeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
