package clients

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/services"
)

var _ services.WorkerDirectory = (*WorkerClient)(nil)

// WorkerClient talks to the worker service.
type WorkerClient struct {
	client
}

func NewWorkerClient(baseURL string, timeout time.Duration) *WorkerClient {
	return &WorkerClient{client: newClient(baseURL, timeout)}
}

func (c *WorkerClient) FindByIDs(ctx context.Context, ids []string) ([]models.Worker, error) {
	var workers []models.Worker
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/workers/findByIds", q, nil, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

func (c *WorkerClient) FindOne(ctx context.Context, id string) (*models.Worker, error) {
	var worker models.Worker
	if err := c.do(ctx, http.MethodGet, "/api/v1/workers/"+url.PathEscape(id), nil, nil, &worker); err != nil {
		return nil, err
	}
	return &worker, nil
}

func (c *WorkerClient) AppendActivity(ctx context.Context, workerID, activityID string) (*models.Worker, error) {
	var worker models.Worker
	body := map[string]string{"activityId": activityID}
	if err := c.do(ctx, http.MethodPost, "/api/v1/workers/"+url.PathEscape(workerID)+"/activities", nil, body, &worker); err != nil {
		return nil, err
	}
	return &worker, nil
}

func (c *WorkerClient) RemovePostAssignment(ctx context.Context, postID string) error {
	body := map[string]string{"postId": postID}
	return c.do(ctx, http.MethodPost, "/api/v1/workers/remove-post-assignment", nil, body, nil)
}
