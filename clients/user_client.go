package clients

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/flameberry/PrimePatrol/services"
)

var _ services.UserDirectory = (*UserClient)(nil)

// UserClient talks to the user service.
type UserClient struct {
	client
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{client: newClient(baseURL, timeout)}
}

func (c *UserClient) AddPost(ctx context.Context, userID, postID string) error {
	body := map[string]string{"postId": postID}
	return c.do(ctx, http.MethodPost, "/api/v1/users/"+url.PathEscape(userID)+"/posts", nil, body, nil)
}

func (c *UserClient) RemovePost(ctx context.Context, userID, postID string) error {
	path := "/api/v1/users/" + url.PathEscape(userID) + "/posts/" + url.PathEscape(postID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
