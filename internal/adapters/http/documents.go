package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mpetrenko/taxmate/internal/core/domain"
	"github.com/mpetrenko/taxmate/internal/core/ports"
)

const maxUploadBytes = 32 << 20

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}
	taxReturnID := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse upload",
			errors.New("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	doc, err := rt.uploader.Upload(r.Context(), ports.UploadRequest{
		UserID:       uid,
		TaxReturnID:  taxReturnID,
		FileName:     fileHeader.Filename,
		FileType:     fileHeader.Header.Get("Content-Type"),
		FileSize:     fileHeader.Size,
		DeclaredType: domain.ParseDocumentType(r.FormValue("documentType")),
		Body:         file,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	// Ownership via the owning return; a mismatch reads as missing.
	if _, err := rt.reader.GetReturn(r.Context(), uid, doc.TaxReturnID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	result, err := rt.processor.Process(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	if err := rt.maintenance.DeleteDocument(r.Context(), uid, r.PathValue("id")); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (rt *Router) resolveDuplicate(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse duplicate resolution",
			errors.New("invalid json body")))
		return
	}

	result, err := rt.maintenance.ResolveDuplicate(r.Context(), uid, r.PathValue("id"),
		domain.DuplicateResolution(req.Action))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if result == nil {
		// cancel: the document is gone.
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
