package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/internal/requests"
)

const maxBodyBytes = 1 << 20

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	submissionSchema = mustSchema("schemas/submission.json")
	updateSchema     = mustSchema("schemas/update.json")
)

func mustSchema(name string) *jsonschema.Schema {
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read %s: %v", name, err))
	}
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(b, rs); err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return rs
}

type RequestsHandler struct {
	store *requests.Store
	stats *requests.Aggregator
	dev   bool
}

// NewRequestsHandler creates a new RequestsHandler with required dependencies.
func NewRequestsHandler(store *requests.Store, stats *requests.Aggregator, dev bool) *RequestsHandler {
	return &RequestsHandler{store: store, stats: stats, dev: dev}
}

// readBody reads a JSON body and checks it against schema. Schema
// violations are reported as a ValidationError.
func (h *RequestsHandler) readBody(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.NewValidationError("body", msgInvalidBody)
	}
	if !json.Valid(body) {
		return nil, apperr.NewValidationError("body", msgInvalidBody)
	}

	kerrs, err := schema.ValidateBytes(r.Context(), body)
	if err != nil {
		return nil, fmt.Errorf("schema check: %w", err)
	}
	if len(kerrs) > 0 {
		ve := &apperr.ValidationError{}
		for _, ke := range kerrs {
			field := strings.TrimPrefix(ke.PropertyPath, "/")
			if field == "" {
				field = "body"
			}
			ve.Add(field, ke.Message)
		}
		return nil, ve
	}
	return body, nil
}

func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r, submissionSchema)
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}
	var in requests.Submission
	if err := json.Unmarshal(body, &in); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	sr, err := h.store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Request submitted successfully", Data: sr})
}

func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiOr(q.Get("page"), 1)
	limit := atoiOr(q.Get("limit"), requests.DefaultLimit)

	p, err := h.store.List(r.Context(), q.Get("status"), page, limit)
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: p.Records, Pagination: &p.Pagination})
}

func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sr, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: sr})
}

func (h *RequestsHandler) Update(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r, updateSchema)
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}
	var p requests.Patch
	if err := json.Unmarshal(body, &p); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if clearsDeadline(body) {
		empty := ""
		p.Deadline = &empty
	}

	sr, err := h.store.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: sr})
}

func (h *RequestsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err, h.dev)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Request deleted successfully"})
}

func (h *RequestsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ov, err := h.stats.Overview(r.Context())
	if err != nil {
		writeError(w, r, err, h.dev)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: ov})
}

// clearsDeadline reports whether body sets deadline to an explicit null.
func clearsDeadline(body []byte) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	v, ok := raw["deadline"]
	return ok && bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// atoiOr parses a positive integer query value, falling back to def.
func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
