package grpc

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/transfer"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/view"
)

// Schedule is the live schedule the handler serves; ports.Monitor implements it
type Schedule interface {
	Snapshot() domain.Evaluation
	Config() domain.Record
	Location() *time.Location
	Now() time.Time
	UpdateConfig(ctx context.Context, rec domain.Record) (domain.Evaluation, error)
	ImportConfig(ctx context.Context, payload []byte) (transfer.Result, error)
	ExportConfig(format transfer.Format) ([]byte, error)
	Transitions(ctx context.Context, start, end time.Time) ([]*domain.TransitionEvent, error)
}

// PhotoperiodHandler implements the gRPC PhotoperiodService
type PhotoperiodHandler struct {
	schedule Schedule
}

// NewPhotoperiodHandler creates a new gRPC handler
func NewPhotoperiodHandler(schedule Schedule) *PhotoperiodHandler {
	return &PhotoperiodHandler{schedule: schedule}
}

// GetEvaluation returns the latest evaluation of the live schedule
func (h *PhotoperiodHandler) GetEvaluation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log.Info().Msg("GetEvaluation called")

	return evaluationResponse(h.schedule.Snapshot())
}

// Evaluate evaluates an ad-hoc record without touching the live schedule.
// Request: {"config": {...}, "asOf": RFC3339 (optional, defaults to now)}
func (h *PhotoperiodHandler) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	log.Info().Interface("request", fields).Msg("Evaluate called")

	asOf := h.schedule.Now()
	if s, ok := fields["asOf"].(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "asOf must be RFC3339")
		}
		asOf = t
	}

	rec := recordFromFields(fields["config"])
	return evaluationResponse(domain.Evaluate(rec, asOf, h.schedule.Location()))
}

// Validate reports the first violated rule of a record.
// Request: {"config": {...}}
func (h *PhotoperiodHandler) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log.Info().Msg("Validate called")

	_, err := domain.Validate(recordFromFields(req.AsMap()["config"]), h.schedule.Location())
	return toStruct(view.NewValidation(err))
}

// GetConfig returns the live record verbatim
func (h *PhotoperiodHandler) GetConfig(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log.Info().Msg("GetConfig called")

	return toStruct(map[string]any{"config": h.schedule.Config()})
}

// UpdateConfig replaces the live record.
// Request: {"config": {...}}; invalid records are stored and reported.
func (h *PhotoperiodHandler) UpdateConfig(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rec := recordFromFields(req.AsMap()["config"])
	log.Info().Interface("config", rec).Msg("UpdateConfig called")

	ev, err := h.schedule.UpdateConfig(ctx, rec)
	if kind := domain.ErrorKind(err); kind != "" {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to update config")
		return nil, status.Error(codes.Internal, "failed to update config")
	}

	return evaluationResponse(ev)
}

// ImportConfig merges a JSON or YAML payload into the live record.
// Request: {"payload": "..."}
func (h *PhotoperiodHandler) ImportConfig(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log.Info().Msg("ImportConfig called")

	payload, _ := req.AsMap()["payload"].(string)
	res, err := h.schedule.ImportConfig(ctx, []byte(payload))
	if errors.Is(err, domain.ErrMalformedImportPayload) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to import config")
		return nil, status.Error(codes.Internal, "failed to import config")
	}

	applied := res.Applied
	if applied == nil {
		applied = []string{}
	}
	return toStruct(map[string]any{"config": res.Record, "applied": applied})
}

// ExportConfig encodes the live record.
// Request: {"format": "json" | "yaml"}
func (h *PhotoperiodHandler) ExportConfig(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log.Info().Msg("ExportConfig called")

	name, _ := req.AsMap()["format"].(string)
	format, err := transfer.ParseFormat(name)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out, err := h.schedule.ExportConfig(format)
	if err != nil {
		log.Error().Err(err).Msg("failed to export config")
		return nil, status.Error(codes.Internal, "failed to export config")
	}

	return toStruct(map[string]any{"format": string(format), "payload": string(out)})
}

// GetTransitions returns recorded transitions in [start, end).
// Request: {"start": RFC3339, "end": RFC3339}
func (h *PhotoperiodHandler) GetTransitions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	log.Info().Interface("request", fields).Msg("GetTransitions called")

	start, err := parseInstant(fields["start"])
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "start must be RFC3339")
	}
	end, err := parseInstant(fields["end"])
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "end must be RFC3339")
	}

	events, err := h.schedule.Transitions(ctx, start, end)
	if err != nil {
		log.Error().Err(err).Msg("failed to get transitions")
		return nil, status.Error(codes.Internal, "failed to get transitions")
	}

	return toStruct(map[string]any{"transitions": view.NewTransitions(events)})
}

// recordFromFields reads a record from a decoded Struct value.
// Missing or mistyped fields stay zero and surface through validation.
func recordFromFields(v any) domain.Record {
	fields, _ := v.(map[string]any)

	var rec domain.Record
	rec.StartDate, _ = fields["startDate"].(string)
	rec.LightHours, _ = fields["lightHours"].(float64)
	rec.DarkHours, _ = fields["darkHours"].(float64)
	if days, ok := fields["durationDays"].(float64); ok && days == math.Trunc(days) && math.Abs(days) <= math.MaxInt32 {
		rec.DurationDays = int(days)
	}
	return rec
}

func parseInstant(v any) (time.Time, error) {
	s, _ := v.(string)
	return time.Parse(time.RFC3339, s)
}

func evaluationResponse(ev domain.Evaluation) (*structpb.Struct, error) {
	return toStruct(view.NewEvaluation(ev))
}

// toStruct converts a JSON-serializable value to a protobuf Struct
func toStruct(v any) (*structpb.Struct, error) {
	m, err := view.ToMap(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to convert response")
		return nil, status.Error(codes.Internal, "failed to build response")
	}

	s, err := structpb.NewStruct(m)
	if err != nil {
		log.Error().Err(err).Msg("failed to convert response")
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return s, nil
}
