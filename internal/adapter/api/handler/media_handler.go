package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"chatsync/internal/infrastructure/media"
	"chatsync/pkg/errors"
	"chatsync/pkg/response"
)

// 50 MB, matching the mobile clients' upload cap.
const maxUploadBytes = 50 << 20

type MediaHandler struct {
	uploader *media.Uploader
}

func NewMediaHandler(uploader *media.Uploader) *MediaHandler {
	return &MediaHandler{
		uploader: uploader,
	}
}

// Upload receives a multipart attachment and returns the media reference
// the client embeds in its subsequent send.
func (h *MediaHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("file is required", err))
	}
	if fileHeader.Size > maxUploadBytes {
		return response.Error(c, errors.BadRequest("file exceeds the upload size limit", nil))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("failed to open uploaded file", err))
	}
	defer file.Close()

	duration := 0.0
	if durationStr := c.FormValue("duration_seconds"); durationStr != "" {
		if parsed, err := strconv.ParseFloat(durationStr, 64); err == nil && parsed > 0 {
			duration = parsed
		}
	}

	ref, err := h.uploader.Upload(c.Request().Context(), file, media.UploadInput{
		FileName:        fileHeader.Filename,
		MimeType:        fileHeader.Header.Get("Content-Type"),
		DurationSeconds: duration,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, ref)
}
