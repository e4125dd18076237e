package restapi

import (
	"Vibeshare/internal/api/dto"
	"context"
	"fmt"
	"net/http"
	"strconv"
)

func postURL(postID int64) string {
	return "/api/posts/" + strconv.FormatInt(postID, 10)
}

func bookmarkURL(postID int64) string {
	return "/api/bookmarks/" + strconv.FormatInt(postID, 10)
}

func (c *Client) GetPost(ctx context.Context, postID int64) (*dto.PostDTO, error) {
	var res dto.PostDTO
	if err := c.do(ctx, "get_post", c.request(), http.MethodGet, postURL(postID), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// LikePost 返回带权威 liked/likeCount 的帖子
func (c *Client) LikePost(ctx context.Context, postID int64) (*dto.PostDTO, error) {
	var res dto.PostDTO
	if err := c.do(ctx, "like_post", c.request(), http.MethodPost, postURL(postID)+"/like", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UnlikePost(ctx context.Context, postID int64) (*dto.PostDTO, error) {
	var res dto.PostDTO
	if err := c.do(ctx, "unlike_post", c.request(), http.MethodDelete, postURL(postID)+"/like", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) AddBookmark(ctx context.Context, postID int64) error {
	return c.do(ctx, "add_bookmark", c.request(), http.MethodPost, bookmarkURL(postID), nil)
}

func (c *Client) RemoveBookmark(ctx context.Context, postID int64) error {
	return c.do(ctx, "remove_bookmark", c.request(), http.MethodDelete, bookmarkURL(postID), nil)
}

func (c *Client) GetBookmarks(ctx context.Context) ([]dto.BookmarkDTO, error) {
	var res []dto.BookmarkDTO
	if err := c.do(ctx, "get_bookmarks", c.request(), http.MethodGet, "/api/bookmarks", &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) IsBookmarked(ctx context.Context, postID int64) (bool, error) {
	var res bool
	if err := c.do(ctx, "check_bookmark", c.request(), http.MethodGet, bookmarkURL(postID)+"/check", &res); err != nil {
		return false, err
	}
	return res, nil
}

func (c *Client) GetComments(ctx context.Context, postID int64) ([]dto.CommentDTO, error) {
	var res []dto.CommentDTO
	url := "/api/comments/" + strconv.FormatInt(postID, 10)
	if err := c.do(ctx, "get_comments", c.request(), http.MethodGet, url, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) AddComment(ctx context.Context, req *dto.CommentCreateDTO) (*dto.CommentDTO, error) {
	var res dto.CommentDTO
	if err := c.do(ctx, "add_comment", c.request().SetBody(req), http.MethodPost, "/api/comments", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteComment 后端返回纯文本，忽略响应体
func (c *Client) DeleteComment(ctx context.Context, commentID, userID int64) error {
	url := fmt.Sprintf("/api/comments/%d", commentID)
	req := c.request().SetQueryParam("userId", strconv.FormatInt(userID, 10))
	return c.do(ctx, "delete_comment", req, http.MethodDelete, url, nil)
}
