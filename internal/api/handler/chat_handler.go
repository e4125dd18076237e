package handler

import (
	"Vibeshare/internal/api/dto"
	"Vibeshare/internal/pkg/response"
	"Vibeshare/internal/service"
	log "log/slog"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxAttachmentSize = 32 << 20

type ChatHandler struct {
	syncSvc service.SyncService
}

func NewChatHandler(syncSvc service.SyncService) *ChatHandler {
	return &ChatHandler{syncSvc: syncSvc}
}

func conversationParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetConversations 会话目录（含未读数）
func (s *ChatHandler) GetConversations(c *gin.Context) {
	response.Success(c, s.syncSvc.Conversations())
}

// RefreshConversations 重新拉取会话目录，失败时保留旧目录
func (s *ChatHandler) RefreshConversations(c *gin.Context) {
	if err := s.syncSvc.LoadConversations(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.syncSvc.Conversations())
}

// StartConversation 创建或获取会话
func (s *ChatHandler) StartConversation(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	conv, err := s.syncSvc.StartConversation(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conv)
}

// SetActive 打开、切换或关闭当前会话
func (s *ChatHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if req.ConversationID != nil && *req.ConversationID <= 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	refresh := req.Refresh == nil || *req.Refresh

	if _, err := s.syncSvc.SetActiveConversation(c.Request.Context(), req.ConversationID, refresh); err != nil {
		response.Error(c, err)
		return
	}
	if req.ConversationID == nil {
		response.Success(c, nil)
		return
	}
	response.Success(c, s.syncSvc.Messages(*req.ConversationID))
}

// GetMessages 本地消息记录与派生状态
func (s *ChatHandler) GetMessages(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if c.Query("refresh") == "true" {
		if _, err := s.syncSvc.LoadMessages(c.Request.Context(), convID); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.Success(c, s.syncSvc.Messages(convID))
}

// SendMessage 向当前会话发送消息
func (s *ChatHandler) SendMessage(c *gin.Context) {
	var req struct {
		ConversationID int64 `json:"conversationId" binding:"required,gt=0"`
		dto.SendMessageReq
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.syncSvc.SendMessage(c.Request.Context(), req.ConversationID, &req.SendMessageReq); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SendTyping 发送输入状态
func (s *ChatHandler) SendTyping(c *gin.Context) {
	var req struct {
		ConversationID int64 `json:"conversationId" binding:"required,gt=0"`
		dto.TypingReq
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.syncSvc.SendTyping(c.Request.Context(), req.ConversationID, req.IsTyping); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// SendAttachment 上传附件并发送附件消息
func (s *ChatHandler) SendAttachment(c *gin.Context) {
	convID, err := strconv.ParseInt(c.PostForm("conversationId"), 10, 64)
	if err != nil || convID <= 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader.Size == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		response.Fail(c, response.BadRequest, "文件过大")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.ErrorContext(c.Request.Context(), "打开上传文件失败", "err", err)
		response.Error(c, service.UnExpectedError)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	res, err := s.syncSvc.SendAttachment(c.Request.Context(), convID, fileHeader.Filename, file, strings.TrimSpace(c.PostForm("caption")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetPresence 用户在线状态
func (s *ChatHandler) GetPresence(c *gin.Context) {
	username := c.Param("username")
	status, ok := s.syncSvc.Presence(username)
	if !ok {
		response.Success(c, gin.H{"username": username, "isOnline": false})
		return
	}
	response.Success(c, status)
}

// GetTypingUsers 会话内正在输入的用户
func (s *ChatHandler) GetTypingUsers(c *gin.Context) {
	convID, ok := conversationParam(c)
	if !ok {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	response.Success(c, s.syncSvc.TypingUsers(convID))
}
