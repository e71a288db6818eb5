package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tabchat/internal/hermes"
	"github.com/MikeSquared-Agency/tabchat/internal/store"
)

// Repository is the persistence the records API needs. *store.Store implements it.
type Repository interface {
	InsertRecord(ctx context.Context, company, url, data string) (*store.Record, error)
	ListRecords(ctx context.Context) ([]store.Record, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*store.Record, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, patch store.RecordPatch) (*store.Record, error)
	DeleteRecord(ctx context.Context, id uuid.UUID) error
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Record is the wire shape of a stored entry.
type Record struct {
	ID      string `json:"id"`
	Company string `json:"Company"`
	URL     string `json:"URL"`
	Data    string `json:"Data"`
}

// Patch is a partial update. Absent fields are left unchanged.
type Patch struct {
	Company *string `json:"Company,omitempty"`
	URL     *string `json:"URL,omitempty"`
	Data    *string `json:"Data,omitempty"`
}

type Server struct {
	router *chi.Mux
	http   *http.Server
	port   int
	repo   Repository
	events Publisher
	logger *slog.Logger
}

// NewServer wires the records routes. events may be nil.
func NewServer(port int, repo Repository, events Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	s := &Server{
		router: router,
		port:   port,
		repo:   repo,
		events: events,
		logger: logger,
	}

	router.Get("/", s.root)
	router.Post("/add_data", s.add)
	router.Get("/get_data", s.list)
	router.Get("/get_data/{id}", s.get)
	router.Put("/update_data/{id}", s.update)
	router.Delete("/delete_data/{id}", s.delete)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.logger.Info("records API starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Records API is running"})
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var in Record
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if strings.TrimSpace(in.Company) == "" || strings.TrimSpace(in.URL) == "" {
		writeDetail(w, http.StatusBadRequest, "Company and URL are required")
		return
	}

	rec, err := s.repo.InsertRecord(r.Context(), in.Company, in.URL, in.Data)
	if err != nil {
		s.fail(w, "insert record", err)
		return
	}
	s.publish(hermes.SubjectRecordCreated, rec)

	out := fromStore(rec)
	writeJSON(w, http.StatusOK, map[string]string{
		"id":      out.ID,
		"Company": out.Company,
		"URL":     out.URL,
		"Data":    out.Data,
		"message": "Data added successfully",
	})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	recs, err := s.repo.ListRecords(r.Context())
	if err != nil {
		s.fail(w, "list records", err)
		return
	}
	data := make([]Record, 0, len(recs))
	for i := range recs {
		data = append(data, fromStore(&recs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(data), "data": data})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := s.repo.GetRecord(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		s.fail(w, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, fromStore(rec))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var p Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	patch := store.RecordPatch{Company: p.Company, URL: p.URL, Data: p.Data}
	if patch.Empty() {
		writeDetail(w, http.StatusBadRequest, "No fields to update")
		return
	}

	rec, err := s.repo.UpdateRecord(r.Context(), id, patch)
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		s.fail(w, "update record", err)
		return
	}
	s.publish(hermes.SubjectRecordUpdated, rec)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Data updated successfully",
		"updated_data": p,
	})
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	err := s.repo.DeleteRecord(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		s.fail(w, "delete record", err)
		return
	}
	s.publish(hermes.SubjectRecordDeleted, &store.Record{ID: id})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Data deleted successfully"})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) publish(subject string, rec *store.Record) {
	if s.events == nil {
		return
	}
	evt := hermes.RecordEvent{
		ID:        rec.ID.String(),
		Company:   rec.Company,
		URL:       rec.URL,
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.Publish(subject, evt); err != nil {
		s.logger.Warn("failed to publish record event", "subject", subject, "error", err)
	}
}

// parseID treats a malformed id as a missing entry.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Entry not found")
		return uuid.Nil, false
	}
	return id, true
}

func fromStore(r *store.Record) Record {
	return Record{ID: r.ID.String(), Company: r.Company, URL: r.URL, Data: r.Data}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
