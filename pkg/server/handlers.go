package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coolbeans/lexcanon/pkg/citation"
	"github.com/coolbeans/lexcanon/pkg/conflict"
	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/entry"
	"github.com/coolbeans/lexcanon/pkg/harness"
	"github.com/coolbeans/lexcanon/pkg/source"
)

// IdentifyResponse describes a source's derived identity.
type IdentifyResponse struct {
	Type               source.SourceType     `json:"type"`
	Jurisdiction       string                `json:"jurisdiction"`
	AuthorityLevel     source.AuthorityLevel `json:"authority_level"`
	CanonicalID        source.CanonicalID    `json:"canonical_id"`
	Citation           string                `json:"citation,omitempty"`
	NormalizedCitation string                `json:"normalized_citation,omitempty"`
	CanonCitation      string                `json:"canon_citation,omitempty"`
	Detection          *citation.Detection   `json:"detection,omitempty"`
	Findings           []citation.Finding    `json:"findings,omitempty"`
}

// ValidateResponse is the outcome of checking one entry.
type ValidateResponse struct {
	Slug        string                  `json:"slug"`
	Publishable bool                    `json:"publishable"`
	Violations  []entry.Violation       `json:"violations"`
	Warnings    []harness.Warning       `json:"warnings"`
	Ordered     []harness.OrderedSource `json:"ordered"`
}

// ResolveRequest names two sources and the point they disagree on.
type ResolveRequest struct {
	Left  corpus.SourceRecord `json:"left"`
	Right corpus.SourceRecord `json:"right"`
	Point string              `json:"point"`
	Note  string              `json:"note,omitempty"`
}

// ResolveResponse is a conflict resolution.
type ResolveResponse struct {
	Outcome     conflict.Outcome   `json:"outcome"`
	Point       string             `json:"point"`
	Controlling source.CanonicalID `json:"controlling,omitempty"`
	Subordinate source.CanonicalID `json:"subordinate,omitempty"`
	Tied        []string           `json:"tied,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"id_format":     source.IDFormatVersion,
		"jurisdictions": s.registry.Count(),
	})
}

// handleIdentify handles POST /v1/sources/identify.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var record corpus.SourceRecord
	if !decodeJSON(w, r, &record) {
		return
	}
	record.AuthorityLevel = ""
	record.CanonicalID = ""

	built, err := corpus.BuildSource(record, s.registry, corpus.BuildOptions{})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed_source", err)
		return
	}

	descriptor := built.Descriptor()
	response := IdentifyResponse{
		Type:               descriptor.Type(),
		Jurisdiction:       descriptor.Jurisdiction().Code,
		AuthorityLevel:     built.AuthorityLevel(),
		CanonicalID:        built.CanonicalID(),
		Citation:           descriptor.Citation(),
		NormalizedCitation: descriptor.NormalizedCitation(),
	}
	if descriptor.Citation() != "" {
		detection := citation.Detect(descriptor.Citation())
		response.CanonCitation = citation.Canon(descriptor.Citation())
		response.Detection = &detection
		response.Findings = citation.Lint(descriptor.Citation())
	}
	writeJSON(w, http.StatusOK, response)
}

// handleValidate handles POST /v1/entries/validate. A failing entry is a
// successful request: violations are data.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var record corpus.EntryRecord
	if !decodeJSON(w, r, &record) {
		return
	}
	if record.Slug == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing_slug", errors.New("entry has no slug"))
		return
	}

	result := s.harness.CheckEntry(record, s.registry, corpus.BuildOptions{})
	response := ValidateResponse{
		Slug:        result.Slug,
		Publishable: result.Passed,
		Violations:  nonNil(result.Violations),
		Warnings:    nonNil(result.Warnings),
		Ordered:     nonNil(result.Ordered),
	}
	s.logger.Debug().
		Str("request_id", requestID(r)).
		Str("slug", record.Slug).
		Bool("publishable", response.Publishable).
		Int("violations", len(response.Violations)).
		Msg("entry validated")
	writeJSON(w, http.StatusOK, response)
}

// handleResolve handles POST /v1/conflicts/resolve.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var request ResolveRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	left, err := s.identify(request.Left)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed_source", fmt.Errorf("left: %w", err))
		return
	}
	right, err := s.identify(request.Right)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed_source", fmt.Errorf("right: %w", err))
		return
	}

	assertion := conflict.Assertion{
		Left:  left.CanonicalID(),
		Right: right.CanonicalID(),
		Point: request.Point,
		Note:  request.Note,
	}
	resolution, err := conflict.Resolve(left, right, assertion)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_assertion", err)
		return
	}

	response := ResolveResponse{Outcome: resolution.Outcome, Point: request.Point}
	if resolution.Resolved() {
		response.Controlling = resolution.Controlling.CanonicalID()
		response.Subordinate = resolution.Subordinate.CanonicalID()
	} else {
		response.Tied = []string{
			resolution.Tied[0].CanonicalID().String(),
			resolution.Tied[1].CanonicalID().String(),
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// identify builds a source from its descriptor alone; persisted identity in
// the request is ignored.
func (s *Server) identify(record corpus.SourceRecord) (source.Source, error) {
	record.AuthorityLevel = ""
	record.CanonicalID = ""
	return corpus.BuildSource(record, s.registry, corpus.BuildOptions{})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
