package ports

import (
	"context"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

// TransitionPublisher announces observed ON/OFF changes
// This is a PORT - adapters (MQTT) will implement it
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, event domain.TransitionEvent) error
}

// EvaluationSink receives every fresh evaluation
// This is a PORT - adapters (WebSocket hub) will implement it
type EvaluationSink interface {
	PublishEvaluation(ev domain.Evaluation)
}
