package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heygen-community/heygen-streaming/internal/heygen"
	"github.com/heygen-community/heygen-streaming/internal/log"
)

// handleCreateKnowledgeBase creates a knowledge base for chat sessions.
// POST /streaming/knowledge-bases
func (s *Server) handleCreateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req heygen.KnowledgeBaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
		return
	}

	var kb *heygen.KnowledgeBaseInfo
	err := s.upstream(func() error {
		var callErr error
		kb, callErr = s.client.CreateKnowledgeBase(r.Context(), &req)
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	log.FromContext(r.Context()).Info().
		Str(log.FieldKBID, kb.KnowledgeBaseID).
		Msg("knowledge base created")

	writeJSON(w, http.StatusCreated, kb)
}

// handleListKnowledgeBases lists existing knowledge bases.
// GET /streaming/knowledge-bases
func (s *Server) handleListKnowledgeBases(w http.ResponseWriter, r *http.Request) {
	var kbs []heygen.KnowledgeBaseInfo
	err := s.upstream(func() error {
		var callErr error
		kbs, callErr = s.client.ListKnowledgeBases(r.Context())
		return callErr
	})
	if err != nil {
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"knowledge_bases": kbs,
		"count":           len(kbs),
	})
}

// handleUpdateKnowledgeBase updates a knowledge base's content.
// PUT /streaming/knowledge-bases/{kbID}
func (s *Server) handleUpdateKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	kbID := chi.URLParam(r, "kbID")

	var req heygen.KnowledgeBaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		RespondError(w, r, http.StatusBadRequest, ErrInvalidInput, err.Error())
		return
	}

	var kb *heygen.KnowledgeBaseInfo
	err := s.upstream(func() error {
		var callErr error
		kb, callErr = s.client.UpdateKnowledgeBase(r.Context(), kbID, &req)
		return callErr
	})
	if err != nil {
		if errors.Is(err, heygen.ErrNotFound) {
			RespondError(w, r, http.StatusNotFound, ErrKnowledgeBaseNotFound)
			return
		}
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, kb)
}

// handleDeleteKnowledgeBase deletes a knowledge base.
// DELETE /streaming/knowledge-bases/{kbID}
func (s *Server) handleDeleteKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	kbID := chi.URLParam(r, "kbID")

	err := s.upstream(func() error {
		return s.client.DeleteKnowledgeBase(r.Context(), kbID)
	})
	if err != nil {
		if errors.Is(err, heygen.ErrNotFound) {
			RespondError(w, r, http.StatusNotFound, ErrKnowledgeBaseNotFound)
			return
		}
		respondUpstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
