package restapi

import (
	"Vibeshare/internal/api/dto"
	"context"
	"net/http"
	"strconv"
)

// Me 当前登录用户
func (c *Client) Me(ctx context.Context) (*dto.UserDTO, error) {
	var res dto.UserDTO
	if err := c.do(ctx, "me", c.request(), http.MethodGet, "/api/users/me", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Follow(ctx context.Context, userID int64) error {
	url := "/api/users/follow/" + strconv.FormatInt(userID, 10)
	return c.do(ctx, "follow", c.request(), http.MethodPost, url, nil)
}

func (c *Client) Unfollow(ctx context.Context, userID int64) error {
	url := "/api/users/unfollow/" + strconv.FormatInt(userID, 10)
	return c.do(ctx, "unfollow", c.request(), http.MethodDelete, url, nil)
}
