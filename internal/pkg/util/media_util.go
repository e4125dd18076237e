package util

import (
	"Vibeshare/internal/model"
	"Vibeshare/internal/pkg/consts"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrUnsupportedMedia = errors.New("不支持的文件类型")

// GetSafeContentType 按文件内容探测 MIME，探测后将 reader 复位
func GetSafeContentType(r io.ReadSeeker) (string, error) {
	mime, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mime.String(), nil
}

// AttachmentMessageType 由 MIME 推断消息类型
func AttachmentMessageType(contentType string) (model.MessageType, error) {
	switch {
	case strings.HasPrefix(contentType, consts.MimePrefixImage):
		return model.MessageTypeImage, nil
	case strings.HasPrefix(contentType, consts.MimePrefixVideo):
		return model.MessageTypeVideo, nil
	case strings.HasPrefix(contentType, consts.MimePrefixAudio):
		return model.MessageTypeVoice, nil
	}
	return "", ErrUnsupportedMedia
}
