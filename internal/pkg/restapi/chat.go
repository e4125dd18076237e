package restapi

import (
	"Vibeshare/internal/api/dto"
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

func (c *Client) GetConversations(ctx context.Context) ([]dto.ConversationDTO, error) {
	var res []dto.ConversationDTO
	if err := c.do(ctx, "get_conversations", c.request(), http.MethodGet, "/api/chat/conversations", &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) CreateOrGetConversation(ctx context.Context, req *dto.ChatRequest) (*dto.ConversationDTO, error) {
	var res dto.ConversationDTO
	if err := c.do(ctx, "create_conversation", c.request().SetBody(req), http.MethodPost, "/api/chat/conversation", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetMessages(ctx context.Context, conversationID int64) ([]dto.MessageDTO, error) {
	var res []dto.MessageDTO
	url := "/api/chat/messages/" + strconv.FormatInt(conversationID, 10)
	if err := c.do(ctx, "get_messages", c.request(), http.MethodGet, url, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// UploadAttachment multipart 上传附件，返回可访问的 URL
func (c *Client) UploadAttachment(ctx context.Context, filename string, r io.Reader) (string, error) {
	var res dto.AttachmentDTO
	req := c.http.R().SetFileReader("file", filename, r)
	if err := c.do(ctx, "upload_attachment", req, http.MethodPost, "/api/chat/attachment", &res); err != nil {
		return "", err
	}
	if res.URL == "" {
		return "", errors.New("upload attachment: empty url")
	}
	return res.URL, nil
}
