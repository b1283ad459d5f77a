package handlers

import (
	"bugpilot/internal/storage"
	"bugpilot/internal/tickets"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead deckt Boundary und Header-Zeilen über der eigentlichen Datei ab.
const multipartOverhead = 64 << 10

type TicketHandlers struct {
	Tickets *tickets.Service
}

func NewTicketHandlers(ticketService *tickets.Service) *TicketHandlers {
	return &TicketHandlers{Tickets: ticketService}
}

func (h *TicketHandlers) CreateTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	var req CreateTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.Tickets.Create(ctx, actor, tickets.CreateInput{
		ProjectID:   req.Project,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, view, http.StatusCreated)
}

func (h *TicketHandlers) GetMyTicketsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	list, err := h.Tickets.ListMine(ctx, actor)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, list, http.StatusOK)
}

func (h *TicketHandlers) GetProjectTicketsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	list, err := h.Tickets.ListByProject(ctx, actor, chi.URLParam(r, "projectID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, list, http.StatusOK)
}

func (h *TicketHandlers) GetTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	view, err := h.Tickets.Get(ctx, actor, chi.URLParam(r, "ticketID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, view, http.StatusOK)
}

func (h *TicketHandlers) UpdateTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	var req UpdateTicketRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.Tickets.Update(ctx, actor, chi.URLParam(r, "ticketID"), tickets.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Assignees:   req.Assignees,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, view, http.StatusOK)
}

func (h *TicketHandlers) DeleteTicketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}

	if err := h.Tickets.Delete(ctx, actor, chi.URLParam(r, "ticketID")); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, MessageResponse{Message: "Ticket gelöscht"}, http.StatusOK)
}

func (h *TicketHandlers) AddCommentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.Tickets.AddComment(ctx, actor, chi.URLParam(r, "ticketID"), req.Text)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, comment, http.StatusCreated)
}

// UploadScreenshotHandler liest den Multipart-Body als Stream; die Datei wird nicht zwischengepuffert.
func (h *TicketHandlers) UploadScreenshotHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxScreenshotSize+multipartOverhead)
	defer r.Body.Close()

	reader, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "Multipart-Formular erwartet", http.StatusBadRequest)
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			writeJSONError(w, "Keine Datei hochgeladen", http.StatusBadRequest)
			return
		}
		if err != nil {
			writeUploadError(w, r, err)
			return
		}
		if part.FormName() != storage.FieldName || part.FileName() == "" {
			part.Close()
			continue
		}

		url, err := h.Tickets.AttachScreenshot(ctx, actor, chi.URLParam(r, "ticketID"), part.FileName(), part)
		part.Close()
		if err != nil {
			writeUploadError(w, r, err)
			return
		}
		writeJSONResponse(w, UploadResponse{Message: "Screenshot hochgeladen", ImageURL: url}, http.StatusOK)
		return
	}
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		slog.WarnContext(r.Context(), "Upload überschreitet die Größenbeschränkung", slog.Int64("limit", maxBytesErr.Limit))
		err = storage.ErrFileTooLarge
	}
	writeServiceError(r.Context(), w, err)
}
