package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatService "github.com/digi-assistant/digi/backend/internal/service/chat"
	"github.com/digi-assistant/digi/backend/internal/service/upload"
	"github.com/digi-assistant/digi/backend/pkg/utils"
)

const (
	msgMessageRequired = "Message is required"
	msgImageRequired   = "Image file is required"
	msgImageTooLarge   = "Image file exceeds the size limit"
	msgImageType       = "Unsupported image type"
	msgTextFailed      = "Failed to get response from AI"
	msgImageFailed     = "Failed to process image"
	msgBodyTooLarge    = "Request body too large"

	// Room for the multipart envelope and the message field.
	multipartOverhead = 1 << 20
	maxChatBody       = 1 << 20
)

// Response is the success body of both relay endpoints.
type Response struct {
	Response string `json:"response"`
}

// Handler exposes the relay over HTTP.
type Handler struct {
	chatSvc     *chatService.Service
	uploads     *upload.Store
	logger      *zap.Logger
	readTimeout time.Duration
}

// New creates the chat handler.
func New(chatSvc *chatService.Service, uploads *upload.Store, logger *zap.Logger) *Handler {
	return &Handler{
		chatSvc:     chatSvc,
		uploads:     uploads,
		logger:      logger.Named("chat"),
		readTimeout: defaultReadTimeout,
	}
}

// RegisterRoutes registers the relay endpoints under the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/chat/image", h.handleChatImage)
	r.Get("/chat/ws", h.handleWebSocket)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.RespondError(w, http.StatusBadRequest, msgBodyTooLarge)
			return
		}
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.chatSvc.Chat(r.Context(), payload.Message)
	if err != nil {
		if errors.Is(err, chatService.ErrMessageRequired) {
			utils.RespondError(w, http.StatusBadRequest, msgMessageRequired)
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, msgTextFailed)
		return
	}

	utils.RespondJSON(w, http.StatusOK, Response{Response: reply})
}

func (h *Handler) handleChatImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes()+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utils.RespondError(w, http.StatusBadRequest, msgImageTooLarge)
			return
		}
		utils.RespondError(w, http.StatusBadRequest, msgImageRequired)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, msgImageRequired)
		return
	}
	defer file.Close()

	if header.Size > h.uploads.MaxBytes() {
		utils.RespondError(w, http.StatusBadRequest, msgImageTooLarge)
		return
	}

	saved, err := h.uploads.Save(file, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrTooLarge):
			utils.RespondError(w, http.StatusBadRequest, msgImageTooLarge)
		case errors.Is(err, upload.ErrUnsupportedType):
			utils.RespondError(w, http.StatusBadRequest, msgImageType)
		default:
			h.logger.Error("failed to store upload", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, msgImageFailed)
		}
		return
	}

	reply, err := h.chatSvc.ChatImage(r.Context(), r.FormValue("message"), saved)
	if err != nil {
		if errors.Is(err, chatService.ErrImageRequired) {
			utils.RespondError(w, http.StatusBadRequest, msgImageRequired)
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, msgImageFailed)
		return
	}

	utils.RespondJSON(w, http.StatusOK, Response{Response: reply})
}
