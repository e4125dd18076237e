package handler

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/pkg/response"
	"Vibeshare/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type PostActionHandler struct {
	actionSvc service.InteractionService
}

func NewPostActionHandler(actionSvc service.InteractionService) *PostActionHandler {
	return &PostActionHandler{
		actionSvc: actionSvc,
	}
}

func postParam(c *gin.Context) (int64, bool) {
	postID, err := strconv.ParseInt(c.Param("post_id"), 10, 64)
	if err != nil || postID <= 0 {
		return 0, false
	}
	return postID, true
}

// bindBaseline 请求体为空时基线为零值
func bindBaseline(c *gin.Context) (*dto.InteractionReq, bool) {
	var req dto.InteractionReq
	if c.Request.ContentLength == 0 {
		return &req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, false
	}
	return &req, true
}

// GetInteraction 帖子的本地交互状态，基线由查询参数给出
func (s *PostActionHandler) GetInteraction(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var req dto.InteractionReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	response.Success(c, s.actionSvc.Interaction(postID, req.Baseline()))
}

// LikePost 点赞/取消点赞帖子
func (s *PostActionHandler) LikePost(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	req, ok := bindBaseline(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	rec, err := s.actionSvc.ToggleLike(c.Request.Context(), postID, req.Baseline())
	if err != nil {
		response.FailWithData(c, err, rec)
		return
	}
	response.Success(c, rec)
}

// SavePost 收藏/取消收藏帖子
func (s *PostActionHandler) SavePost(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	req, ok := bindBaseline(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	rec, err := s.actionSvc.ToggleSave(c.Request.Context(), postID, req.Baseline())
	if err != nil {
		response.FailWithData(c, err, rec)
		return
	}
	response.Success(c, rec)
}

// CreateComment 发表评论
func (s *PostActionHandler) CreateComment(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var req dto.CommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.actionSvc.AddComment(c.Request.Context(), postID, req.Text, req.Baseline())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// DeleteComment 删除评论
func (s *PostActionHandler) DeleteComment(c *gin.Context) {
	postID, ok := postParam(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	commentID, err := strconv.ParseInt(c.Param("comment_id"), 10, 64)
	if err != nil || commentID <= 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	req, ok := bindBaseline(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	rec, err := s.actionSvc.DeleteComment(c.Request.Context(), postID, commentID, req.Baseline())
	if err != nil {
		response.FailWithData(c, err, rec)
		return
	}
	response.Success(c, rec)
}
