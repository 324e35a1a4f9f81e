package handler

import (
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/conversation"
	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
)

type MessageHandler struct {
	svc   conversation.Service
	files file.Service
}

func NewMessageHandler(svc conversation.Service, files file.Service) *MessageHandler {
	return &MessageHandler{svc: svc, files: files}
}

func participant(c fiber.Ctx) (repo.Participant, bool) {
	actor, valid := middleware.ActorFromFiber(c)
	if !valid {
		return repo.Participant{}, false
	}
	return repo.Participant{ID: actor.ID, Kind: actor.Kind}, true
}

// GET /message/get-chat-list
func (h *MessageHandler) ChatList(c fiber.Ctx) error {
	who, valid := participant(c)
	if !valid {
		return unauthorized(c)
	}
	res, err := h.svc.ChatList(c.Context(), who, conversation.ChatListRequest{
		SearchTerm: strings.TrimSpace(c.Query("searchTerm")),
		Page:       queryPage(c),
	})
	if err != nil {
		return mapConversationError(c, err)
	}
	return okPage(c, "Chat list retrieved successfully", res.Items,
		pagination(res.Page, res.PerPage, res.Total, res.TotalPages))
}

// GET /message/get_single_conversation/:id
func (h *MessageHandler) Conversation(c fiber.Ctx) error {
	who, valid := participant(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.svc.Conversation(c.Context(), who, id, queryPage(c))
	if err != nil {
		return mapConversationError(c, err)
	}
	return okPage(c, "Conversation retrieved successfully", fiber.Map{
		"conversation": res.Conversation,
		"participant":  res.Participant,
		"messages":     res.Messages,
	}, pagination(res.Page, res.PerPage, res.Total, res.TotalPages))
}

// media uploads one kind of attachment and remembers it for rollback.
func (h *MessageHandler) media(c fiber.Ctx, uploaded *[]string, parts []*multipart.FileHeader) ([]string, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	urls, err := h.files.UploadURLs(c.Context(), file.FolderMessages, parts)
	if err != nil {
		return nil, err
	}
	*uploaded = append(*uploaded, urls...)
	return urls, nil
}

// POST /message/send-message
func (h *MessageHandler) Send(c fiber.Ctx) error {
	who, valid := participant(c)
	if !valid {
		return unauthorized(c)
	}
	var body struct {
		ReceiverID string   `json:"receiverId"`
		CaseID     *string  `json:"caseId"`
		Text       string   `json:"text"`
		Images     []string `json:"imageUrl"`
		Audio      []string `json:"audioUrl"`
		Video      []string `json:"videoUrl"`
	}
	if err := decodeBody(c, &body, "imageUrl", "audioUrl", "videoUrl"); err != nil {
		return badRequest(c, "Invalid request body")
	}
	receiver, err := uuidField(&body.ReceiverID)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if receiver == nil {
		return badRequest(c, conversation.ErrReceiverRequired.Error())
	}
	caseID, err := uuidField(body.CaseID)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var uploaded []string
	req := conversation.SendRequest{ReceiverID: *receiver, CaseID: caseID, Text: body.Text}
	for _, m := range []struct {
		dst   *[]string
		given []string
		parts []*multipart.FileHeader
	}{
		{&req.Images, body.Images, files(c, "images", "image")},
		{&req.Audio, body.Audio, files(c, "audio")},
		{&req.Video, body.Video, files(c, "video")},
	} {
		urls, err := h.media(c, &uploaded, m.parts)
		if err != nil {
			h.files.Remove(c.Context(), uploaded...)
			return mapFileError(c, err)
		}
		*m.dst = append(m.given, urls...)
	}

	msg, err := h.svc.Send(c.Context(), who, req)
	if err != nil {
		h.files.Remove(c.Context(), uploaded...)
		return mapConversationError(c, err)
	}
	return created(c, "Message sent successfully", msg)
}

// PATCH /message/edit-message/:id
func (h *MessageHandler) Edit(c fiber.Ctx) error {
	who, valid := participant(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid request body")
	}
	msg, err := h.svc.Edit(c.Context(), who, id, body.Text)
	if err != nil {
		return mapConversationError(c, err)
	}
	return ok(c, "Message updated successfully", msg)
}

// DELETE /message/delete-message/:id
func (h *MessageHandler) Delete(c fiber.Ctx) error {
	who, valid := participant(c)
	if !valid {
		return unauthorized(c)
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.svc.Delete(c.Context(), who, id)
	if err != nil {
		return mapConversationError(c, err)
	}
	return ok(c, "Message deleted successfully", res)
}

func mapConversationError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, conversation.ErrNotFound),
		errors.Is(err, conversation.ErrMessageNotFound),
		errors.Is(err, conversation.ErrReceiverNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, conversation.ErrNotParticipant),
		errors.Is(err, conversation.ErrNotSender):
		return forbidden(c, err.Error())
	case errors.Is(err, conversation.ErrReceiverRequired),
		errors.Is(err, conversation.ErrSelfMessage),
		errors.Is(err, conversation.ErrEmptyMessage):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
