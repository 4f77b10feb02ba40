package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/utils"
)

var errDown = NewError(ErrUnavailable, "connection refused")

func TestCreatePostWithoutImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t)

	post, err := f.posts.CreatePost(ctx, CreatePostInput{UserID: u.ID, Title: "  Broken light ", Content: "<b>Dark</b> street<script>x</script>"}, nil)
	require.NoError(t, err)

	assert.Nil(t, post.ImageURL)
	assert.Equal(t, models.PostPending, post.Status)
	assert.Equal(t, "Broken light", post.Title)
	assert.NotContains(t, post.Content, "<script>")
	assert.Empty(t, post.AssignedWorkers)
	assert.Empty(t, f.store.keys())

	author, err := f.users.FindOne(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{post.ID}, []string(author.PostIDs))
	assert.Empty(t, f.outbox.kinds())
}

func TestCreatePostWithImage(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)

	post, err := f.posts.CreatePost(context.Background(), CreatePostInput{UserID: u.ID, Title: "Garbage", Content: "Overflowing bin"}, imageOf("bin.jpg", "jpeg-bytes"))
	require.NoError(t, err)

	keys := f.store.keys()
	require.Len(t, keys, 1)
	assert.Regexp(t, `^\d{13}-bin\.jpg$`, keys[0])
	require.NotNil(t, post.ImageURL)
	assert.Contains(t, *post.ImageURL, keys[0])
}

func TestCreatePostUploadFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)
	f.store.err = errors.New("bucket gone")

	_, err := f.posts.CreatePost(context.Background(), CreatePostInput{UserID: u.ID, Title: "T", Content: "C"}, imageOf("a.png", "x"))
	require.Error(t, err)

	var n int64
	require.NoError(t, f.db.Model(&models.Post{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)
	ctx := context.Background()

	cases := map[string]CreatePostInput{
		"malformed user": {UserID: "123", Title: "T", Content: "C"},
		"missing title":  {UserID: u.ID, Title: "   ", Content: "C"},
		"missing body":   {UserID: u.ID, Title: "T", Content: ""},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.posts.CreatePost(ctx, in, nil)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestCreatePostSurvivesUserServiceOutage(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)
	f.udir.setErr(errDown)

	post, err := f.posts.CreatePost(context.Background(), CreatePostInput{UserID: u.ID, Title: "T", Content: "C"}, nil)
	require.NoError(t, err)

	_, err = f.posts.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.NotifyUserPostAppend}, f.outbox.kinds())
}

func TestAssignWorkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	w1, w2 := f.worker(t, "Ravi"), f.worker(t, "Meena")

	updated, err := f.posts.AssignWorkers(ctx, post.ID, []string{w1.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{w1.ID}, []string(updated.AssignedWorkers))

	// re-assigning is a no-op; duplicates in the request collapse
	updated, err = f.posts.AssignWorkers(ctx, post.ID, []string{w1.ID, w2.ID, w2.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{w1.ID, w2.ID}, []string(updated.AssignedWorkers))
}

func TestAssignWorkersRejectsUnknownWorker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	w := f.worker(t, "Ravi")

	_, err := f.posts.AssignWorkers(ctx, post.ID, []string{w.ID, "9b2f4b4e-1d0c-4c43-9a43-2f0b7d1f0e11"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AssignedWorkers)
}

func TestAssignWorkersInputErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	w := f.worker(t, "Ravi")

	_, err := f.posts.AssignWorkers(ctx, post.ID, nil)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.posts.AssignWorkers(ctx, post.ID, []string{"nope"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.posts.AssignWorkers(ctx, "6f1c7d8e-0000-4000-8000-000000000000", []string{w.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	f.wdir.fail(errDown, nil, nil)
	_, err = f.posts.AssignWorkers(ctx, post.ID, []string{w.ID})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLogWorkerActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	w := f.worker(t, "Ravi")

	detail, err := f.posts.LogWorkerActivity(ctx, post.ID, ActivityInput{WorkerID: w.ID, Action: "inspected", Description: "site visit"})
	require.NoError(t, err)
	require.Len(t, detail.ActivityLog, 1)
	activity := detail.ActivityLog[0]
	assert.Equal(t, "inspected", activity.Action)
	assert.Equal(t, post.ID, activity.PostID)
	assert.Contains(t, []string(detail.Activities), activity.ID)

	got, err := f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Contains(t, []string(got.WorkerActivities), activity.ID)
	require.Len(t, got.Activities, 1)

	stored, err := f.workers.FindOne(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{activity.ID}, []string(stored.Activities))
}

func TestLogWorkerActivityUnknownWorkerWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)

	_, err := f.posts.LogWorkerActivity(ctx, post.ID, ActivityInput{WorkerID: "6f1c7d8e-0000-4000-8000-000000000000", Action: "fixed"})
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	require.NoError(t, f.db.Model(&models.WorkerActivity{}).Count(&n).Error)
	assert.Zero(t, n)

	_, err = f.posts.LogWorkerActivity(ctx, post.ID, ActivityInput{WorkerID: f.worker(t, "x").ID})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLogWorkerActivityWorkerAppendFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	w := f.worker(t, "Ravi")
	f.wdir.fail(nil, errDown, nil)

	detail, err := f.posts.LogWorkerActivity(ctx, post.ID, ActivityInput{WorkerID: w.ID, Action: "fixed"})
	require.NoError(t, err)
	require.Len(t, detail.ActivityLog, 1)
	assert.Equal(t, []string{models.NotifyWorkerActivityAppend}, f.outbox.kinds())

	stored, err := f.workers.FindOne(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Activities)
}

func TestGetWorkerActivitiesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	w := f.worker(t, "Ravi")

	for _, action := range []string{"inspected", "started", "fixed"} {
		_, err := f.posts.LogWorkerActivity(ctx, post.ID, ActivityInput{WorkerID: w.ID, Action: action})
		require.NoError(t, err)
	}

	activities, err := f.posts.GetWorkerActivities(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.Equal(t, "fixed", activities[0].Action)
	assert.Equal(t, "inspected", activities[2].Action)
	for _, a := range activities {
		require.NotNil(t, a.Worker)
		assert.Equal(t, "Ravi", a.Worker.Name)
	}

	empty := f.post(t, f.user(t).ID)
	activities, err = f.posts.GetWorkerActivities(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)

	_, err = f.posts.GetWorkerActivities(ctx, "6f1c7d8e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.posts.GetWorkerActivities(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGetPostSkipsDeletedWorkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	keep, gone := f.worker(t, "Ravi"), f.worker(t, "Meena")

	_, err := f.posts.AssignWorkers(ctx, post.ID, []string{keep.ID, gone.ID})
	require.NoError(t, err)
	require.NoError(t, f.workers.Remove(ctx, gone.ID))

	got, err := f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, got.AssignedWorkers, 2)
	require.Len(t, got.Workers, 1)
	assert.Equal(t, keep.ID, got.Workers[0].ID)

	f.wdir.fail(errDown, nil, nil)
	got, err = f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Workers)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)

	status := "active"
	title := "Pothole, now bigger"
	updated, err := f.posts.UpdatePost(ctx, post.ID, UpdatePostInput{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, models.PostActive, updated.Status)
	assert.Equal(t, post.Content, updated.Content)

	bad := "closed"
	_, err = f.posts.UpdatePost(ctx, post.ID, UpdatePostInput{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGetPostStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uid := f.user(t).ID
	for _, status := range []string{"active", "active", "resolved", ""} {
		p := f.post(t, uid)
		if status != "" {
			s := status
			_, err := f.posts.UpdatePost(ctx, p.ID, UpdatePostInput{Status: &s})
			require.NoError(t, err)
		}
	}

	stats, err := f.posts.GetPostStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, PostStats{TotalPosts: 4, ActivePosts: 2, ResolvedPosts: 1}, *stats)
}

func TestRemovePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t)
	post := f.post(t, u.ID)
	w := f.worker(t, "Ravi")
	_, err := f.workers.UpdateAssignedPosts(ctx, w.ID, []string{post.ID})
	require.NoError(t, err)
	_, err = f.posts.LogWorkerActivity(ctx, post.ID, ActivityInput{WorkerID: w.ID, Action: "fixed"})
	require.NoError(t, err)

	require.NoError(t, f.posts.RemovePost(ctx, post.ID))

	_, err = f.posts.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var n int64
	require.NoError(t, f.db.Model(&models.WorkerActivity{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.Zero(t, n)

	stored, err := f.workers.FindOne(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssignedPosts)
	author, err := f.users.FindOne(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, author.PostIDs)

	assert.ErrorIs(t, f.posts.RemovePost(ctx, post.ID), ErrNotFound)
}

func TestRemovePostSurvivesCollaboratorOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	f.wdir.fail(nil, nil, errDown)
	f.udir.setErr(errDown)

	require.NoError(t, f.posts.RemovePost(ctx, post.ID))
	assert.ElementsMatch(t, []string{models.NotifyWorkerPostRemove, models.NotifyUserPostRemove}, f.outbox.kinds())
}

func TestPostReadsAreCachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newFixture(t, WithCache(utils.NewCache(rc, time.Minute)))
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)

	list, err := f.posts.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, mr.Exists(postListCacheKey))

	_, err = f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(postDetailCacheKey+post.ID))

	title := "Renamed"
	_, err = f.posts.UpdatePost(ctx, post.ID, UpdatePostInput{Title: &title})
	require.NoError(t, err)
	assert.False(t, mr.Exists(postListCacheKey))
	assert.False(t, mr.Exists(postDetailCacheKey+post.ID))

	got, err := f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestPostReadsSkipCacheWhenWorkerLookupFails(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := newFixture(t, WithCache(utils.NewCache(rc, time.Minute)))
	ctx := context.Background()
	post := f.post(t, f.user(t).ID)
	w := f.worker(t, "Ravi")
	_, err := f.posts.AssignWorkers(ctx, post.ID, []string{w.ID})
	require.NoError(t, err)

	f.wdir.fail(errDown, nil, nil)
	got, err := f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Workers)
	assert.False(t, mr.Exists(postDetailCacheKey+post.ID))

	list, err := f.posts.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, mr.Exists(postListCacheKey))

	f.wdir.fail(nil, nil, nil)
	got, err = f.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Workers, 1)
	assert.Equal(t, w.ID, got.Workers[0].ID)
	assert.True(t, mr.Exists(postDetailCacheKey+post.ID))

	list, err = f.posts.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list[0].Workers, 1)
	assert.True(t, mr.Exists(postListCacheKey))
}
