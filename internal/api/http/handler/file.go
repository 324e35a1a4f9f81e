package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
)

type FileHandler struct {
	svc file.Service
}

func NewFileHandler(svc file.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

// uploadFolders are the folders a client may upload into directly. Socket
// messages carry media by URL, so chat clients upload here first.
var uploadFolders = map[string]file.Folder{
	"messages": file.FolderMessages,
	"cases":    file.FolderCases,
}

// POST /file/upload?folder=messages
// Multipart field "files"; returns the stored attachments.
func (h *FileHandler) Upload(c fiber.Ctx) error {
	folder, known := uploadFolders[c.Query("folder", "messages")]
	if !known {
		return badRequest(c, "Unknown upload folder")
	}
	atts, err := h.svc.Upload(c.Context(), folder, files(c, "files", "file"))
	if err != nil {
		return mapFileError(c, err)
	}
	return created(c, "Files uploaded successfully", atts)
}

// GET /file/download?url=
// Redirects to a presigned link for a stored object.
func (h *FileHandler) Download(c fiber.Ctx) error {
	link, err := h.svc.DownloadURL(c.Context(), c.Query("url"))
	if err != nil {
		if errors.Is(err, file.ErrForeignURL) {
			return badRequest(c, err.Error())
		}
		return internalError(c, err)
	}
	return c.Redirect().To(link)
}
