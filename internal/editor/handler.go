package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"hebedit/internal/editor/model"
	"hebedit/internal/editor/service"
	"hebedit/middleware"
	"hebedit/pkg/logger"
	"hebedit/socket"

	"github.com/gabriel-vasile/mimetype"
)

const (
	maxUploadSize   = 16 << 20
	dispatchTimeout = 30 * time.Second
)

type EditorHandler struct {
	Hub *socket.Hub
}

func NewEditorHandler(hub *socket.Hub) *EditorHandler {
	return &EditorHandler{Hub: hub}
}

// GetRecord returns the caller's persisted editor record.
func (h *EditorHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	rec, ok, err := h.Hub.Store().Get(r.Context(), socket.StoreKey(userID))
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to load record: %v", err)
		http.Error(w, "Failed to load record", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "No saved content", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (h *EditorHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	if err := h.Hub.Store().Delete(r.Context(), socket.StoreKey(userID)); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete record: %v", err)
		http.Error(w, "Failed to delete record", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Record deleted successfully"))
}

// Download serves the persisted content as a text attachment.
func (h *EditorHandler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	rec, _, err := h.Hub.Store().Get(r.Context(), socket.StoreKey(userID))
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to load record: %v", err)
		http.Error(w, "Failed to load record", http.StatusInternalServerError)
		return
	}
	if service.IsBlank(rec.Content) {
		http.Error(w, service.ErrEmptyContent.Error(), http.StatusBadRequest)
		return
	}

	name := rec.FileName
	if name == "" {
		name = model.DefaultFileName
	}
	w.Header().Set("Content-Type", model.TextContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Write([]byte(rec.Content))
}

// Upload opens a multipart "file" in the caller's live editor, as if it had
// been picked there.
func (h *EditorHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	client, ok := h.Hub.Lookup(userID)
	if !ok {
		http.Error(w, "No open editor", http.StatusConflict)
		return
	}

	f := model.File{
		Name:     header.Filename,
		MimeType: detectType(header.Header.Get("Content-Type"), data),
		Data:     data,
	}

	ctx, cancel := context.WithTimeout(r.Context(), dispatchTimeout)
	defer cancel()

	err = client.Dispatch(ctx, service.FilePicked{File: f})
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("File loaded successfully"))
	case errors.Is(err, service.ErrUnsupportedType):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, service.ErrDecodeFailure):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, socket.ErrClientGone):
		http.Error(w, "No open editor", http.StatusConflict)
	default:
		logger.Sugar.Errorf("Handler: Failed to load upload: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// detectType trusts the part's declared type unless it is missing or
// generic, in which case the content is sniffed.
func detectType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
