package httpapi

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notify-pipeline/internal/models"
	"notify-pipeline/internal/routing"
	"notify-pipeline/internal/store"
)

// Processor runs one event through the decision pipeline.
type Processor interface {
	Process(ctx context.Context, ev models.Event) (models.Outcome, error)
}

// RecipientRegistry stores recipient plans and preferences.
type RecipientRegistry interface {
	Register(userID string, p routing.RecipientProfile)
	Profile(userID string) (routing.RecipientProfile, bool)
}

// App holds the handler dependencies.
type App struct {
	Logger     *zap.Logger
	Pipeline   Processor
	Store      store.Store
	Routing    *routing.Table
	Recipients RecipientRegistry

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) newEventID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return "evt-" + uuid.NewString()
}
