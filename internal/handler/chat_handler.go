package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"tchatsouvenir/bookshop/internal/bookgen"
	"tchatsouvenir/bookshop/internal/chatexport"
	"tchatsouvenir/bookshop/internal/model"
)

type ExtractResponse struct {
	Messages    []chatexport.Message    `json:"messages"`
	Attachments []chatexport.Attachment `json:"attachments,omitempty"`
	Summary     chatexport.Summary      `json:"summary"`
}

type CreateDesignResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	DesignID string `json:"design_id"`
}

// readUpload returns the bytes and name of the multipart "file" field.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", fmt.Errorf("%w: %v", chatexport.ErrArchiveTooLarge, err)
		}
		return nil, "", fmt.Errorf("%w: invalid multipart form", model.ErrValidation)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: file is required", model.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return data, header.Filename, nil
}

func (h *Handler) ExtractMessages(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if r.FormValue("platform") == "" {
		badRequest(w, "platform is required")
		return
	}
	platform, err := chatexport.ParsePlatform(r.FormValue("platform"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	filter := chatexport.Filter{
		ExcludePhotos:      formBool(r, "exclude_photos"),
		ExcludeVideos:      formBool(r, "exclude_videos"),
		ExcludeVoice:       formBool(r, "exclude_voice"),
		ExcludeAttachments: formBool(r, "exclude_attachments"),
		StripEmojis:        formBool(r, "strip_emojis"),
	}
	if filter.From, err = parseTime(r.FormValue("from"), false); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.To, err = parseTime(r.FormValue("to"), true); err != nil {
		h.writeError(w, r, err)
		return
	}
	for _, p := range strings.Split(r.FormValue("participants"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			filter.Participants = append(filter.Participants, p)
		}
	}

	ex, err := chatexport.Extract(r.Context(), platform, name, data, filter, chatexport.ArchiveOptions{
		MaxUncompressed: h.opts.MaxArchive,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExtractResponse{
		Messages:    ex.Messages,
		Attachments: ex.Attachments,
		Summary:     ex.Summary,
	})
}

func (h *Handler) CreateDesign(w http.ResponseWriter, r *http.Request) {
	var d bookgen.Design
	if !decodeJSON(w, r, &d) {
		return
	}
	id, err := h.opts.Runner.Submit(d)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, CreateDesignResponse{
		Success:  true,
		Message:  "Création du livre démarrée",
		DesignID: id,
	})
}

func (h *Handler) DesignStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.opts.Runner.Status(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) CancelDesign(w http.ResponseWriter, r *http.Request) {
	job, err := h.opts.Runner.Cancel(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GenerateBook renders a WhatsApp zip upload into a stored HTML book.
func (h *Handler) GenerateBook(w http.ResponseWriter, r *http.Request) {
	data, _, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	d := bookgen.Design{
		CoverTitle:    r.FormValue("title"),
		CoverSubtitle: r.FormValue("subtitle"),
	}
	if raw := r.FormValue("design"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			badRequest(w, "design is not valid JSON")
			return
		}
	}
	if f := r.FormValue("format"); f != "" {
		format, ok := model.ParseBookFormat(f)
		if !ok {
			badRequest(w, "unknown book format")
			return
		}
		d.Format = format
	}

	res, err := h.opts.Generator.GenerateFromArchive(r.Context(), bookgen.NewBookID(), bytes.NewReader(data), int64(len(data)), d.WithDefaults())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) DownloadBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := h.opts.Store.OpenBook(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".html"))
	serveFile(w, r, f)
}

func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	f, err := h.opts.Store.OpenMedia(chi.URLParam(r, "id"), chi.URLParam(r, "file"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	serveFile(w, r, f)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(chi.URLParam(r, "file"), ".html")
	f, err := h.opts.Store.OpenPreview(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	serveFile(w, r, f)
}

func serveFile(w http.ResponseWriter, r *http.Request, f *os.File) {
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, path.Base(f.Name()), st.ModTime(), f)
}
