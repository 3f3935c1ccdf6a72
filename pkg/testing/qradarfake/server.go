// Package qradarfake provides an in-memory QRadar REST API for tests. It
// serves the log source management and offense endpoints the modules use and
// records every request it receives.
package qradarfake

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/Harrysk/ibm.qradar/config"
)

const (
	// Token is the SEC token the fake accepts
	Token = "fake-sec-token"

	logSourcesPath     = "/api/config/event_sources/log_source_management/log_sources"
	logSourceTypesPath = "/api/config/event_sources/log_source_management/log_source_types"
	offensesPath       = "/api/siem/offenses"
	closingReasonsPath = "/api/siem/offense_closing_reasons"
)

// Request is a request received by the fake
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Object is a JSON object as stored by the fake
type Object = map[string]interface{}

type failure struct {
	method string
	path   string
	status int
}

// Server is a fake QRadar console
type Server struct {
	*httptest.Server
	t *testing.T

	mu             sync.Mutex
	logSources     []Object
	logSourceTypes []Object
	offenses       []Object
	closingReasons []Object
	requests       []Request
	failures       []failure
	nextID         int64
}

// NewServer starts a fake QRadar API that is closed when the test ends
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{t: t, nextID: 1000}

	router := mux.NewRouter()
	router.Use(s.recordMiddleware, s.authMiddleware, s.failureMiddleware)

	router.HandleFunc(logSourcesPath, s.listLogSources).Methods(http.MethodGet)
	router.HandleFunc(logSourcesPath, s.upsertLogSources).Methods(http.MethodPost)
	router.HandleFunc(logSourcesPath+"/{id:[0-9]+}", s.deleteLogSource).Methods(http.MethodDelete)
	router.HandleFunc(logSourceTypesPath, s.listLogSourceTypes).Methods(http.MethodGet)
	router.HandleFunc(offensesPath, s.listOffenses).Methods(http.MethodGet)
	router.HandleFunc(offensesPath+"/{id:[0-9]+}", s.getOffense).Methods(http.MethodGet)
	router.HandleFunc(closingReasonsPath, s.listClosingReasons).Methods(http.MethodGet)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)

	return s
}

// Connection returns connection settings that point at the fake
func (s *Server) Connection() config.ConnectionConfig {
	return config.ConnectionConfig{
		Host:          s.URL,
		Token:         Token,
		ValidateCerts: false,
		Timeout:       5 * time.Second,
		APIVersion:    "9.1",
	}
}

// AddLogSource stores a log source and returns its id. An id is assigned
// when the object has none.
func (s *Server) AddLogSource(obj Object) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(&s.logSources, obj)
}

// AddLogSourceType stores a log source type
func (s *Server) AddLogSourceType(id int64, name string, protocolIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	protocols := make([]interface{}, 0, len(protocolIDs))
	for _, pid := range protocolIDs {
		protocols = append(protocols, Object{"protocol_id": pid, "documented": true})
	}
	s.logSourceTypes = append(s.logSourceTypes, Object{
		"id":             id,
		"name":           name,
		"protocol_types": protocols,
		"internal":       false,
	})
}

// AddOffense stores an offense
func (s *Server) AddOffense(obj Object) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(&s.offenses, obj)
}

// AddClosingReason stores an offense closing reason
func (s *Server) AddClosingReason(id int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closingReasons = append(s.closingReasons, Object{
		"id":          id,
		"text":        text,
		"is_deleted":  false,
		"is_reserved": false,
	})
}

// FailNext makes the next request matching method and path answer with status
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
}

// LogSource returns a copy of the stored log source with the given name
func (s *Server) LogSource(name string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range s.logSources {
		if obj["name"] == name {
			return copyObject(obj), true
		}
	}
	return nil, false
}

// LogSourceCount returns the number of stored log sources
func (s *Server) LogSourceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logSources)
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts received requests with the given method whose path
// starts with pathPrefix
func (s *Server) CountRequests(method, pathPrefix string) int {
	count := 0
	for _, req := range s.Requests() {
		if req.Method == method && strings.HasPrefix(req.Path, pathPrefix) {
			count++
		}
	}
	return count
}

// MutatingRequests counts POST and DELETE requests
func (s *Server) MutatingRequests() int {
	return s.CountRequests(http.MethodPost, "/") + s.CountRequests(http.MethodDelete, "/")
}

// LastRequest returns the most recent request with the given method
func (s *Server) LastRequest(method string) (Request, bool) {
	requests := s.Requests()
	for i := len(requests) - 1; i >= 0; i-- {
		if requests[i].Method == method {
			return requests[i], true
		}
	}
	return Request{}, false
}

// Middleware

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("SEC") != Token {
			if _, _, ok := r.BasicAuth(); !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "No SEC header present in request")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		for i, f := range s.failures {
			if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.path) {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				s.mu.Unlock()
				writeError(w, f.status, http.StatusText(f.status), "injected failure")
				return
			}
		}
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Handlers

func (s *Server) listLogSources(w http.ResponseWriter, r *http.Request) {
	key, value, ok := parseFilter(r.URL.Query().Get("filter"))

	s.mu.Lock()
	defer s.mu.Unlock()

	result := []Object{}
	for _, obj := range s.logSources {
		if !ok || matches(obj, key, value) {
			result = append(result, obj)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) upsertLogSources(w http.ResponseWriter, r *http.Request) {
	var items []Object
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&items); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Object, 0, len(items))
	for _, item := range items {
		if id, ok := objectID(item); ok {
			if idx := indexByID(s.logSources, id); idx >= 0 {
				s.logSources[idx] = item
				result = append(result, item)
				continue
			}
		}
		item["id"] = s.store(&s.logSources, item)
		result = append(result, item)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) deleteLogSource(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexByID(s.logSources, id)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Log source not found", fmt.Sprintf("log source %d does not exist", id))
		return
	}
	s.logSources = append(s.logSources[:idx], s.logSources[idx+1:]...)
	writeJSON(w, http.StatusAccepted, Object{"id": id, "status": "COMPLETED"})
}

func (s *Server) listLogSourceTypes(w http.ResponseWriter, r *http.Request) {
	key, value, ok := parseFilter(r.URL.Query().Get("filter"))

	s.mu.Lock()
	defer s.mu.Unlock()

	result := []Object{}
	for _, obj := range s.logSourceTypes {
		if !ok || matches(obj, key, value) {
			result = append(result, obj)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getOffense(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := indexByID(s.offenses, id)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Offense not found", fmt.Sprintf("offense %d does not exist", id))
		return
	}
	writeJSON(w, http.StatusOK, s.offenses[idx])
}

func (s *Server) listOffenses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fields := []string{"status", "assigned_to", "closing_reason_id", "follow_up", "protected"}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := []Object{}
	for _, obj := range s.offenses {
		keep := true
		for _, field := range fields {
			if want, ok := query[field]; ok && !matches(obj, field, want[0]) {
				keep = false
				break
			}
		}
		if keep {
			result = append(result, obj)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) listClosingReasons(w http.ResponseWriter, r *http.Request) {
	key, value, ok := parseFilter(r.URL.Query().Get("filter"))

	s.mu.Lock()
	defer s.mu.Unlock()

	result := []Object{}
	for _, obj := range s.closingReasons {
		if !ok || matches(obj, key, value) {
			result = append(result, obj)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// Helpers

var filterPattern = regexp.MustCompile(`^(\w+)="(.*)"$`)

// parseFilter understands the single key="value" filters the modules send
func parseFilter(filter string) (string, string, bool) {
	m := filterPattern.FindStringSubmatch(filter)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func matches(obj Object, key, value string) bool {
	v, ok := obj[key]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == value
}

func (s *Server) store(list *[]Object, obj Object) int64 {
	obj = copyObject(obj)
	id, ok := objectID(obj)
	if !ok {
		s.nextID++
		id = s.nextID
		obj["id"] = id
	}
	*list = append(*list, obj)
	return id
}

func objectID(obj Object) (int64, bool) {
	switch v := obj["id"].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func indexByID(list []Object, id int64) int {
	for i, obj := range list {
		if objID, ok := objectID(obj); ok && objID == id {
			return i
		}
	}
	return -1
}

func copyObject(obj Object) Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, description string) {
	writeJSON(w, status, Object{
		"http_response": Object{"code": status, "message": http.StatusText(status)},
		"code":          status,
		"message":       message,
		"description":   description,
	})
}
