package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/utils"
)

func init() {
	utils.PasswordCost = bcrypt.MinCost
}

var dbSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.AppConfig{
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         fmt.Sprintf("file:services_%d?mode=memory&cache=shared", dbSeq.Add(1)),
			AutoMigrate: true,
		},
		Log: config.LogConfig{Level: "silent"},
	}
	db, err := config.InitDatabase(cfg, &models.Post{}, &models.WorkerActivity{}, &models.Worker{}, &models.User{}, &models.OutboxEvent{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// stepClock advances one second on every reading.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// workerDir serves the worker directory from a local WorkerService, with switchable failures.
type workerDir struct {
	svc *WorkerService

	mu        sync.Mutex
	lookupErr error
	appendErr error
	removeErr error
}

func (w *workerDir) fail(lookup, appendErr, remove error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lookupErr, w.appendErr, w.removeErr = lookup, appendErr, remove
}

func (w *workerDir) errs() (error, error, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lookupErr, w.appendErr, w.removeErr
}

func (w *workerDir) FindByIDs(ctx context.Context, ids []string) ([]models.Worker, error) {
	if err, _, _ := w.errs(); err != nil {
		return nil, err
	}
	return w.svc.FindByIDs(ctx, ids)
}

func (w *workerDir) FindOne(ctx context.Context, id string) (*models.Worker, error) {
	if err, _, _ := w.errs(); err != nil {
		return nil, err
	}
	return w.svc.FindOne(ctx, id)
}

func (w *workerDir) AppendActivity(ctx context.Context, workerID, activityID string) (*models.Worker, error) {
	if _, err, _ := w.errs(); err != nil {
		return nil, err
	}
	return w.svc.AppendActivity(ctx, workerID, activityID)
}

func (w *workerDir) RemovePostAssignment(ctx context.Context, postID string) error {
	if _, _, err := w.errs(); err != nil {
		return err
	}
	_, err := w.svc.RemovePostAssignment(ctx, postID)
	return err
}

// userDir serves the user directory from a local UserService.
type userDir struct {
	svc *UserService

	mu  sync.Mutex
	err error
}

func (u *userDir) setErr(err error) {
	u.mu.Lock()
	u.err = err
	u.mu.Unlock()
}

func (u *userDir) current() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

func (u *userDir) AddPost(ctx context.Context, userID, postID string) error {
	if err := u.current(); err != nil {
		return err
	}
	_, err := u.svc.AddPost(ctx, userID, postID)
	return err
}

func (u *userDir) RemovePost(ctx context.Context, userID, postID string) error {
	if err := u.current(); err != nil {
		return err
	}
	_, err := u.svc.RemovePost(ctx, userID, postID)
	return err
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = b
	return "https://cdn.example.test/" + key, nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

type memOutbox struct {
	mu    sync.Mutex
	notes []Notification
}

func (o *memOutbox) Enqueue(_ context.Context, n Notification, _ error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notes = append(o.notes, n)
	return nil
}

func (o *memOutbox) kinds() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, n := range o.notes {
		out = append(out, n.Kind)
	}
	return out
}

// fixture wires a post service to local worker and user services sharing one database.
type fixture struct {
	db      *gorm.DB
	posts   *PostService
	workers *WorkerService
	users   *UserService
	wdir    *workerDir
	udir    *userDir
	store   *memStore
	outbox  *memOutbox
}

func newFixture(t *testing.T, opts ...PostServiceOption) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		db:      db,
		workers: NewWorkerService(db),
		users:   NewUserService(db, "test-secret", time.Hour),
		store:   &memStore{},
		outbox:  &memOutbox{},
	}
	f.wdir = &workerDir{svc: f.workers}
	f.udir = &userDir{svc: f.users}
	opts = append([]PostServiceOption{WithOutbox(f.outbox), WithClock(newStepClock().Now)}, opts...)
	f.posts = NewPostService(db, f.wdir, f.udir, f.store, opts...)
	return f
}

func (f *fixture) user(t *testing.T) *models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), CreateUserInput{
		Name:     "Asha",
		Email:    fmt.Sprintf("asha%d@example.org", dbSeq.Add(1)),
		Password: "secret1",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) worker(t *testing.T, name string) *models.Worker {
	t.Helper()
	w, err := f.workers.Create(context.Background(), CreateWorkerInput{Name: name, EmployeeID: fmt.Sprintf("EMP-%d", dbSeq.Add(1))})
	require.NoError(t, err)
	return w
}

func (f *fixture) post(t *testing.T, userID string) *models.Post {
	t.Helper()
	p, err := f.posts.CreatePost(context.Background(), CreatePostInput{UserID: userID, Title: "Pothole", Content: "Deep pothole on 5th street"}, nil)
	require.NoError(t, err)
	return p
}

func imageOf(name, body string) *ImageUpload {
	return &ImageUpload{Filename: name, ContentType: "image/jpeg", Size: int64(len(body)), Body: bytes.NewBufferString(body)}
}
