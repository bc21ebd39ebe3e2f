package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/batchio"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/adapters/sqlstore"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/core"
	"github.com/hugo-lorenzo-mato/hybridqa/internal/service/workflow"
)

const maxBodyBytes = 8 << 20

// AnswerResponse is returned by POST /api/v1/answer?trace=true.
type AnswerResponse struct {
	Result core.Result    `json:"result"`
	Trace  workflow.Trace `json:"trace"`
}

// BatchRequest is the body of POST /api/v1/batch.
type BatchRequest struct {
	Questions []core.Question `json:"questions"`
}

// BatchResponse carries results in request order.
type BatchResponse struct {
	Results []core.Result         `json:"results"`
	Summary workflow.BatchSummary `json:"summary"`
}

// SchemaResponse describes the relational store.
type SchemaResponse struct {
	Tables []string `json:"tables"`
	Schema string   `json:"schema"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// handleAnswer answers one question. A missing id is generated.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var q core.Question
	if !s.decode(w, r, &q) {
		return
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := batchio.CheckQuestion(&q); err != nil {
		s.respondDomainError(w, err)
		return
	}

	res, tr := s.answerer.AnswerWithTrace(r.Context(), q)
	if withTrace, _ := strconv.ParseBool(r.URL.Query().Get("trace")); withTrace {
		if tr == nil {
			tr = workflow.Trace{}
		}
		s.respondJSON(w, http.StatusOK, AnswerResponse{Result: withCitations(res), Trace: tr})
		return
	}
	s.respondJSON(w, http.StatusOK, withCitations(res))
}

// handleBatch answers up to maxBatch questions concurrently.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Questions) == 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "no questions")
		return
	}
	if len(req.Questions) > s.maxBatch {
		s.respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d exceeds the limit of %d", len(req.Questions), s.maxBatch))
		return
	}
	for i := range req.Questions {
		if req.Questions[i].ID == "" {
			req.Questions[i].ID = uuid.NewString()
		}
	}
	records := batchio.CheckBatch(req.Questions)
	for _, rec := range records {
		if !rec.Accepted() {
			s.logger.Warn("skipping invalid question", "index", rec.Line, "id", rec.Question.ID, "error", rec.Err)
		}
	}

	answered := s.batch.Run(r.Context(), batchio.Accepted(records))
	results := batchio.Merge(records, answered)
	for i := range results {
		results[i] = withCitations(results[i])
	}
	s.respondJSON(w, http.StatusOK, BatchResponse{
		Results: results,
		Summary: workflow.Summarize(results),
	})
}

// handleSchema returns the table list and schema text. ?match= filters the
// tables by fuzzy name match. Responses carry an ETag over the schema text.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	text, err := s.schema.Schema(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	names, err := s.schema.TableNames(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	etag := schemaETag(text)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	s.respondJSON(w, http.StatusOK, SchemaResponse{
		Tables: sqlstore.MatchNames(names, r.URL.Query().Get("match")),
		Schema: text,
	})
}

func schemaETag(text string) string {
	sum := sha256.Sum256([]byte(text))
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

func withCitations(r core.Result) core.Result {
	if r.Citations == nil {
		r.Citations = []string{}
	}
	return r
}
