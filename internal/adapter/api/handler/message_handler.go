package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"chatsync/internal/domain/entity"
	"chatsync/internal/usecase"
	"chatsync/pkg/errors"
	"chatsync/pkg/response"
)

type MessageHandler struct {
	msgUseCase *usecase.MessageUseCase
}

func NewMessageHandler(msgUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		msgUseCase: msgUseCase,
	}
}

type mediaRefRequest struct {
	URL             string  `json:"url" validate:"required,url"`
	FileName        string  `json:"file_name"`
	FileSize        int64   `json:"file_size"`
	MimeType        string  `json:"mime_type"`
	DurationSeconds float64 `json:"duration_seconds"`
	ThumbnailURL    string  `json:"thumbnail_url" validate:"omitempty,url"`
}

type sendMessageRequest struct {
	Type      string           `json:"type" validate:"required,oneof=text image video audio file"`
	Content   string           `json:"content"`
	Media     *mediaRefRequest `json:"media"`
	ReplyToID string           `json:"reply_to_id"`
}

type markMessagesRequest struct {
	MessageIDs []string `json:"message_ids" validate:"required,min=1"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

// messageBody maps the flat request onto the payload variant for its
// type. Media-carrying types require a media reference; text forbids one.
func messageBody(req sendMessageRequest) (entity.Body, error) {
	kind := entity.MessageType(req.Type)

	if kind == entity.TypeText {
		return entity.TextBody{Content: req.Content}, nil
	}

	if req.Media == nil {
		return nil, errors.BadRequest(req.Type+" messages require a media reference", nil)
	}
	media := entity.MediaRef{
		URL:             req.Media.URL,
		FileName:        req.Media.FileName,
		FileSize:        req.Media.FileSize,
		MimeType:        req.Media.MimeType,
		DurationSeconds: req.Media.DurationSeconds,
		ThumbnailURL:    req.Media.ThumbnailURL,
	}

	switch kind {
	case entity.TypeImage:
		return entity.ImageBody{Caption: req.Content, Media: media}, nil
	case entity.TypeVideo:
		return entity.VideoBody{Caption: req.Content, Media: media}, nil
	case entity.TypeAudio:
		return entity.AudioBody{Media: media}, nil
	case entity.TypeFile:
		return entity.FileBody{Caption: req.Content, Media: media}, nil
	}
	return nil, errors.BadRequest("unsupported message type", nil)
}

func (h *MessageHandler) Send(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	body, err := messageBody(req)
	if err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	msg, err := h.msgUseCase.Send(c.Request().Context(), userID, usecase.SendMessageInput{
		ConversationID: c.Param("id"),
		Body:           body,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *MessageHandler) GetPage(c echo.Context) error {
	userID := c.Get("uid").(string)

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.msgUseCase.GetPage(c.Request().Context(), userID, c.Param("id"), limit, c.QueryParam("cursor"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Page(c, page.Messages, page.NextCursor)
}

func (h *MessageHandler) MarkRead(c echo.Context) error {
	var req markMessagesRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.msgUseCase.MarkRead(c.Request().Context(), c.Param("id"), userID, req.MessageIDs); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "read"})
}

func (h *MessageHandler) MarkDelivered(c echo.Context) error {
	var req markMessagesRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.msgUseCase.MarkDelivered(c.Request().Context(), c.Param("id"), userID, req.MessageIDs); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "delivered"})
}

func (h *MessageHandler) Edit(c echo.Context) error {
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	err := h.msgUseCase.Edit(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "edited"})
}

// Delete removes a message for the caller, or for everyone when
// ?for=everyone is given (sender only).
func (h *MessageHandler) Delete(c echo.Context) error {
	userID := c.Get("uid").(string)
	ctx := c.Request().Context()
	conversationID := c.Param("id")
	messageID := c.Param("messageId")

	if c.QueryParam("for") == "everyone" {
		if err := h.msgUseCase.DeleteForEveryone(ctx, conversationID, messageID, userID); err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, map[string]string{"status": "deleted for everyone"})
	}

	if err := h.msgUseCase.DeleteForSelf(ctx, conversationID, messageID, userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "deleted"})
}

func (h *MessageHandler) AddReaction(c echo.Context) error {
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	err := h.msgUseCase.AddReaction(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID, req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "reacted"})
}

func (h *MessageHandler) RemoveReaction(c echo.Context) error {
	userID := c.Get("uid").(string)

	err := h.msgUseCase.RemoveReaction(c.Request().Context(), c.Param("id"), c.Param("messageId"), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "reaction removed"})
}
