package handler

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/usecase"
	"chatsync/pkg/response"
)

type ConversationHandler struct {
	convUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(convUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		convUseCase: convUseCase,
	}
}

type createDirectRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

type createGroupRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	PhotoURL    string   `json:"photo_url" validate:"omitempty,url"`
	MemberIDs   []string `json:"member_ids" validate:"required,min=1"`
}

type updateMetadataRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PhotoURL    *string `json:"photo_url"`
}

type addMembersRequest struct {
	MemberIDs []string `json:"member_ids" validate:"required,min=1"`
}

type promoteAdminRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type setFlagsRequest struct {
	Archived *bool `json:"archived"`
	Pinned   *bool `json:"pinned"`
	Muted    *bool `json:"muted"`
}

func (h *ConversationHandler) CreateDirect(c echo.Context) error {
	var req createDirectRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conv, err := h.convUseCase.CreateDirect(c.Request().Context(), userID, req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, conv)
}

func (h *ConversationHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conv, err := h.convUseCase.CreateGroup(c.Request().Context(), userID, usecase.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, conv)
}

// FindDirect looks up the existing direct conversation with another user
// without creating one.
func (h *ConversationHandler) FindDirect(c echo.Context) error {
	userID := c.Get("uid").(string)

	conv, err := h.convUseCase.FindExistingDirect(c.Request().Context(), userID, c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

func (h *ConversationHandler) List(c echo.Context) error {
	userID := c.Get("uid").(string)

	convs, err := h.convUseCase.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, convs)
}

func (h *ConversationHandler) Get(c echo.Context) error {
	userID := c.Get("uid").(string)

	conv, err := h.convUseCase.GetByID(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

func (h *ConversationHandler) UpdateMetadata(c echo.Context) error {
	var req updateMetadataRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	err := h.convUseCase.UpdateMetadata(c.Request().Context(), c.Param("id"), userID, usecase.UpdateMetadataInput{
		Name:        req.Name,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "updated"})
}

func (h *ConversationHandler) AddMembers(c echo.Context) error {
	var req addMembersRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.convUseCase.AddMembers(c.Request().Context(), c.Param("id"), userID, req.MemberIDs); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "members added"})
}

func (h *ConversationHandler) RemoveMember(c echo.Context) error {
	userID := c.Get("uid").(string)

	err := h.convUseCase.RemoveMember(c.Request().Context(), c.Param("id"), userID, c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "member removed"})
}

func (h *ConversationHandler) Leave(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.convUseCase.LeaveConversation(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "left"})
}

func (h *ConversationHandler) PromoteAdmin(c echo.Context) error {
	var req promoteAdminRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.convUseCase.PromoteAdmin(c.Request().Context(), c.Param("id"), userID, req.UserID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "promoted"})
}

// SetFlags updates any subset of the caller's per-member flags. Absent
// fields stay untouched.
func (h *ConversationHandler) SetFlags(c echo.Context) error {
	var req setFlagsRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	ctx := c.Request().Context()
	conversationID := c.Param("id")

	if req.Archived != nil {
		if err := h.convUseCase.SetArchived(ctx, conversationID, userID, *req.Archived); err != nil {
			return response.Error(c, err)
		}
	}
	if req.Pinned != nil {
		if err := h.convUseCase.SetPinned(ctx, conversationID, userID, *req.Pinned); err != nil {
			return response.Error(c, err)
		}
	}
	if req.Muted != nil {
		if err := h.convUseCase.SetMuted(ctx, conversationID, userID, *req.Muted); err != nil {
			return response.Error(c, err)
		}
	}
	return response.Success(c, map[string]string{"status": "flags updated"})
}

func (h *ConversationHandler) Delete(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.convUseCase.DeleteConversation(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"status": "deleted"})
}
