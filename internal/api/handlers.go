package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/neexbeast/itinera/internal/export"
	"github.com/neexbeast/itinera/internal/planner"
	"github.com/neexbeast/itinera/internal/storage"
	"github.com/neexbeast/itinera/internal/trip"
)

const maxBodyBytes = 1 << 20

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	planner  Planner
	plans    PlanRepo
	validate *validator.Validate
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(p Planner, plans PlanRepo, log *slog.Logger) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{
		planner:  p,
		plans:    plans,
		validate: v,
		log:      log,
	}
}

// planRequest is the body of POST /recommendations and POST /plans.
type planRequest struct {
	StartDate   string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	Budget      float64  `json:"budget" validate:"gte=0"`
	LuxuryLevel string   `json:"luxury_level" validate:"omitempty,max=16"`
	Preferences []string `json:"preferences" validate:"max=20,dive,required,max=32"`
	Interests   string   `json:"interests" validate:"max=500"`
	Buffer      *float64 `json:"buffer" validate:"omitempty,gte=0,lte=0.25"`
	Shortlist   int      `json:"shortlist" validate:"omitempty,gte=2,lte=15"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status: invalid input is 400, unknown
// catalog entries are 404 and anything else is a logged 500.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case trip.IsInvalidInput(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, trip.ErrCatalogMissingEntry):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.log.ErrorContext(r.Context(), msg, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// decode reads and validates a planning request body.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request) (planner.Request, bool) {
	var body planRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return planner.Request{}, false
	}

	if err := h.validate.Struct(body); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return planner.Request{}, false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request", "fields": fields})
		return planner.Request{}, false
	}

	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, r, err, "parsing plan request")
		return planner.Request{}, false
	}
	return req, true
}

func (b planRequest) toRequest() (planner.Request, error) {
	start, err := time.Parse(trip.DateLayout, b.StartDate)
	if err != nil {
		return planner.Request{}, &trip.InvalidInputError{Field: "start_date", Reason: err}
	}
	end, err := time.Parse(trip.DateLayout, b.EndDate)
	if err != nil {
		return planner.Request{}, &trip.InvalidInputError{Field: "end_date", Reason: err}
	}
	tier, err := trip.ParseTier(b.LuxuryLevel)
	if err != nil {
		return planner.Request{}, err
	}
	buffer := trip.DefaultBuffer
	if b.Buffer != nil {
		buffer = *b.Buffer
	}

	return planner.Request{
		Query: trip.Query{
			Budget:      b.Budget,
			Start:       start,
			End:         end,
			Preferences: trip.NewPreferences(b.Preferences...),
			Tier:        tier,
			Buffer:      buffer,
		},
		Interests: b.Interests,
		Shortlist: b.Shortlist,
	}, nil
}

// ListDestinations handles GET /api/v1/destinations.
func (h *Handlers) ListDestinations(w http.ResponseWriter, r *http.Request) {
	dests := h.planner.Destinations()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(dests), "destinations": dests})
}

// GetPOIs handles GET /api/v1/destinations/{city}/pois?preferences=a,b.
func (h *Handlers) GetPOIs(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "city")
	var prefs trip.Preferences
	if raw := r.URL.Query().Get("preferences"); raw != "" {
		prefs = trip.NewPreferences(strings.Split(raw, ",")...)
	}

	acts, err := h.planner.POIs(city, prefs)
	if err != nil {
		h.writeError(w, r, err, "listing pois")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "pois": acts})
}

// Recommend handles POST /api/v1/recommendations.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	rec, err := h.planner.Recommend(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "recommend failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreatePlan handles POST /api/v1/plans.
func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "plan failed")
		return
	}
	if res.ID != uuid.Nil {
		w.Header().Set("Location", "/api/v1/plans/"+res.ID.String())
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListPlans handles GET /api/v1/plans?city=&luxury_level=&within_target=&limit=.
func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.ListFilter{City: q.Get("city")}

	if lvl := q.Get("luxury_level"); lvl != "" {
		tier, err := trip.ParseTier(lvl)
		if err != nil {
			h.writeError(w, r, err, "parsing luxury level")
			return
		}
		f.LuxuryLevel = tier.String()
	}
	if raw := q.Get("within_target"); raw != "" {
		within, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "within_target must be true or false"})
			return
		}
		f.WithinTarget = &within
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		f.Limit = limit
	}

	plans, err := h.plans.ListPlans(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err, "db list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(plans), "plans": plans})
}

// loadPlan resolves {id} into a stored plan, writing the error response itself.
func (h *Handlers) loadPlan(w http.ResponseWriter, r *http.Request) (*storage.Plan, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid plan id"})
		return nil, false
	}

	p, err := h.plans.GetPlan(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "db get failed")
		return nil, false
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "plan not found"})
		return nil, false
	}
	return p, true
}

// GetPlan handles GET /api/v1/plans/{id}.
func (h *Handlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func attachment(w http.ResponseWriter, p *storage.Plan, ext string) {
	name := fmt.Sprintf("itinera-%s-%s.%s", strings.ToLower(strings.ReplaceAll(p.City, " ", "-")), p.Record.Start, ext)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

// ExportMarkdown handles GET /api/v1/plans/{id}/export.md.
func (h *Handlers) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPlan(w, r)
	if !ok {
		return
	}
	attachment(w, p, "md")
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.ToMarkdown(p.Record)))
}

// ExportJSON handles GET /api/v1/plans/{id}/export.json.
func (h *Handlers) ExportJSON(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadPlan(w, r)
	if !ok {
		return
	}
	b, err := export.ToJSON(p.Record)
	if err != nil {
		h.writeError(w, r, err, "export failed")
		return
	}
	attachment(w, p, "json")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
// Returns 200 if both answer, 503 otherwise.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
