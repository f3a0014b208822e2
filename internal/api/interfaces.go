package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/itinerary"
	"github.com/neexbeast/itinera/internal/planner"
	"github.com/neexbeast/itinera/internal/storage"
	"github.com/neexbeast/itinera/internal/trip"
)

// Planner defines the planning operations needed by handlers.
type Planner interface {
	Destinations() []catalog.Destination
	POIs(city string, prefs trip.Preferences) ([]itinerary.Activity, error)
	Recommend(ctx context.Context, req planner.Request) (planner.Recommendation, error)
	Plan(ctx context.Context, req planner.Request) (*planner.Result, error)
}

// PlanRepo defines the storage operations needed by handlers.
type PlanRepo interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*storage.Plan, error)
	ListPlans(ctx context.Context, f storage.ListFilter) ([]storage.PlanSummary, error)
}

// UsageCounter counts anonymous requests per caller.
type UsageCounter interface {
	IncrUsage(ctx context.Context, caller string) (int64, error)
}
