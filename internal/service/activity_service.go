package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

var sensitiveKeyParts = []string{"token", "key", "secret", "password", "email", "authorization"}

// ActivityActor represents who triggered a scoring run.
type ActivityActor struct {
	ID   uint
	Role string
}

// ActivityEntry captures the details required to persist a scoring event.
type ActivityEntry struct {
	Actor      ActivityActor
	Action     string
	EntityType string
	EntityID   uint
	Details    map[string]interface{}
}

// ActivityRecorder appends scoring events.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService records and lists scoring events.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("entity type is required")
	}

	model := models.ActivityLog{
		ActorRole:  normalizeRole(entry.Actor.Role),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Details:    sanitizeDetails(entry.Details),
	}
	if entry.Actor.ID > 0 {
		actorID := entry.Actor.ID
		model.ActorID = &actorID
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Uint("entity_id", model.EntityID).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     strings.TrimSpace(req.Action),
		EntityType: strings.TrimSpace(req.EntityType),
	}
	if req.EntityID > 0 {
		entityID := req.EntityID
		filter.EntityID = &entityID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}

	return dto.ActivityListResponse{Items: responses, Pagination: pagination}, nil
}

func sanitizeDetails(details map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range details {
		if isSensitiveKey(key) {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
