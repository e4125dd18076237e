package handler

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/pkg/response"
	"Vibeshare/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type UserFollowHandler struct {
	actionSvc service.InteractionService
}

func NewUserFollowHandler(actionSvc service.InteractionService) *UserFollowHandler {
	return &UserFollowHandler{actionSvc: actionSvc}
}

// Follow 关注/取关，请求体给出界面当前所见的关注状态
func (s *UserFollowHandler) Follow(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	var req dto.FollowReq
	if c.Request.ContentLength != 0 {
		if err = c.ShouldBindJSON(&req); err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
	}
	following := req.Following != nil && *req.Following

	state, err := s.actionSvc.ToggleFollow(c.Request.Context(), userID, following)
	if err != nil {
		response.FailWithData(c, err, state)
		return
	}
	response.Success(c, state)
}
