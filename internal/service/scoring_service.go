package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/prompt"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/rubric"
	"github.com/noah-isme/gema-eval-api/internal/scoring"
	"github.com/noah-isme/gema-eval-api/internal/storage"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
	"github.com/noah-isme/gema-eval-api/pkg/extract"
)

// Extractor turns a stored document into text.
type Extractor interface {
	Extract(ctx context.Context, path string, hint string) (string, error)
}

// ScoreOptions tunes one scoring call.
type ScoreOptions struct {
	// Target is "submission", "task" or empty. Empty tries submissions
	// first, then tasks.
	Target     string
	BonusItems []scoring.BonusItem
	Actor      ActivityActor

	batchID string
}

// ScoringConfig holds the engine knobs.
type ScoringConfig struct {
	DefaultTotalScore  float64
	ExtensionFileTypes map[string]string
	Bonus              scoring.BonusPolicy
	CacheTTL           time.Duration
	BatchConcurrency   int
}

// ScoringDependencies wires the collaborators of the scoring service.
type ScoringDependencies struct {
	Submissions repository.SubmissionRepository
	Tasks       repository.TaskRepository
	Results     repository.ScoringResultRepository
	Activity    ActivityService
	Registry    *rubric.Registry
	Prompts     *prompt.Builder
	Extractor   Extractor
	Scorer      ai.Scorer
	Resolver    *storage.Resolver
	Cache       *redis.Client
	Events      EventPublisher
}

// ScoringService drives extraction, prompting, scoring and persistence.
type ScoringService interface {
	ScoreSubmission(ctx context.Context, id uint, opts ScoreOptions) (dto.ScoringResultResponse, error)
	ScoreBatch(ctx context.Context, ids []uint, opts ScoreOptions) (dto.BatchScoreResponse, error)
	GetResult(ctx context.Context, id uint, target string) (dto.ScoringResultResponse, error)
	History(ctx context.Context, id uint, target string) ([]dto.ScoringResultResponse, error)
	Activities(ctx context.Context, id uint, target string) (dto.ActivityListResponse, error)
}

type scoringService struct {
	deps      ScoringDependencies
	cfg       ScoringConfig
	evaluator *scoring.Evaluator
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
}

type scoringTarget struct {
	Type     string
	ID       uint
	Primary  models.SubmissionFile
	HasFile  bool
	Template *models.EvaluationTemplate
}

// NewScoringService constructs the scoring orchestrator.
func NewScoringService(deps ScoringDependencies, cfg ScoringConfig, logger zerolog.Logger) ScoringService {
	if cfg.DefaultTotalScore <= 0 {
		cfg.DefaultTotalScore = models.DefaultTotalScore
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.ExtensionFileTypes == nil {
		cfg.ExtensionFileTypes = map[string]string{}
	}
	if deps.Events == nil {
		deps.Events = NoopPublisher{}
	}
	if deps.Resolver == nil {
		deps.Resolver = storage.NewResolver(nil)
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewBuilder(deps.Registry)
	}

	return &scoringService{
		deps:      deps,
		cfg:       cfg,
		evaluator: scoring.NewEvaluator(cfg.Bonus),
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-eval-api/internal/service/scoring"),
		logger:    logger.With().Str("component", "scoring_service").Logger(),
	}
}

func (s *scoringService) ScoreSubmission(ctx context.Context, id uint, opts ScoreOptions) (dto.ScoringResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "scoring.submission", trace.WithAttributes(
		attribute.Int64("scoring.id", int64(id)),
		attribute.String("scoring.target", opts.Target),
	))
	defer span.End()

	start := time.Now()
	target, err := s.loadTarget(ctx, id, opts.Target)
	if err != nil {
		kind := ErrorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		observability.ScoringRuns().WithLabelValues(targetLabel(opts.Target), "failed").Inc()
		return dto.ScoringResultResponse{}, &ScoringFailedError{TargetType: targetLabel(opts.Target), TargetID: id, Kind: kind, Err: err}
	}
	span.SetAttributes(attribute.String("scoring.target_type", target.Type))

	logger := s.logger.With().Str("target", target.Type).Uint("target_id", target.ID).Str("batch_id", opts.batchID).Logger()

	if !target.HasFile {
		return dto.ScoringResultResponse{}, s.fail(ctx, span, logger, target, opts, start,
			fmt.Errorf("%w: %s %d has no files", ErrSubmissionNotFound, target.Type, target.ID))
	}

	if err := s.updateStatus(ctx, target, models.ScoringStatusScoring); err != nil {
		logger.Warn().Err(err).Msg("failed to mark target as scoring")
	}

	file := target.Primary
	s.record(ctx, logger, opts.Actor, models.ActionScoringStarted, target, map[string]interface{}{
		"file_name": file.Name,
		"batch_id":  opts.batchID,
	})

	record, err := s.run(ctx, logger, target, file, opts.BonusItems)
	if err != nil {
		return dto.ScoringResultResponse{}, s.fail(ctx, span, logger, target, opts, start, err)
	}

	s.record(ctx, logger, opts.Actor, models.ActionScoringCompleted, target, map[string]interface{}{
		"result_id":      record.ID,
		"file_type":      record.FileType,
		"final_score":    record.FinalScore,
		"grade":          record.Grade,
		"veto_triggered": record.VetoTriggered,
		"attempts":       record.Attempts,
		"batch_id":       opts.batchID,
	})
	s.invalidate(ctx, logger, target.Type, target.ID)
	s.publish(ctx, logger, ScoringEvent{
		Type:       EventScoringCompleted,
		TargetType: target.Type,
		TargetID:   target.ID,
		ResultID:   record.ID,
		FinalScore: record.FinalScore,
		Grade:      record.Grade,
		Vetoed:     record.VetoTriggered,
		BatchID:    opts.batchID,
		OccurredAt: time.Now().UTC(),
	})

	outcome := "scored"
	if record.VetoTriggered {
		outcome = "vetoed"
	}
	observability.ScoringRuns().WithLabelValues(target.Type, outcome).Inc()
	observability.ScoringLatency().WithLabelValues(target.Type).Observe(time.Since(start).Seconds())
	if record.TotalScore > 0 {
		observability.ScoringFinalPercent().WithLabelValues(record.FileType).Observe(100 * record.FinalScore / record.TotalScore)
	}
	span.SetAttributes(
		attribute.Float64("scoring.final_score", record.FinalScore),
		attribute.String("scoring.grade", record.Grade),
	)
	logger.Info().Uint("result_id", record.ID).Float64("final_score", record.FinalScore).Str("grade", record.Grade).Msg("scoring completed")

	return dto.NewScoringResultResponse(record, scoring.GradeLabel(record.Grade)), nil
}

// run executes resolve, extract, prompt, score, evaluate and persist.
func (s *scoringService) run(ctx context.Context, logger zerolog.Logger, target scoringTarget, file models.SubmissionFile, bonus []scoring.BonusItem) (models.ScoringResult, error) {
	path, err := s.deps.Resolver.TryRoots(file.Path)
	if err != nil {
		return models.ScoringResult{}, err
	}

	fileType := s.fileTypeFor(file)
	total, criteria, vetoes := s.templateRubric(logger, target.Template)

	text, err := s.deps.Extractor.Extract(ctx, path, extensionOf(file))
	if err != nil {
		return models.ScoringResult{}, err
	}

	promptText := s.deps.Prompts.Build(prompt.Input{
		FileType:   fileType,
		Content:    text,
		TotalScore: total,
		Criteria:   criteria,
		Vetoes:     vetoes,
	})

	resp, err := s.deps.Scorer.Score(ctx, ai.ScoringRequest{Prompt: promptText, TotalScore: total})
	if err != nil {
		return models.ScoringResult{}, err
	}

	outcome := s.evaluator.WithPolicy(s.bonusPolicy(fileType)).Evaluate(resp, bonus, total)
	record := s.buildRecord(outcome, target, file, fileType, resp)

	if err := s.deps.Results.Save(ctx, &record); err != nil {
		return models.ScoringResult{}, persistenceError{err: err}
	}
	return record, nil
}

func (s *scoringService) fail(ctx context.Context, span trace.Span, logger zerolog.Logger, target scoringTarget, opts ScoreOptions, start time.Time, cause error) error {
	kind := ErrorKind(cause)
	span.RecordError(cause)
	span.SetStatus(codes.Error, kind)

	s.record(ctx, logger, opts.Actor, models.ActionScoringFailed, target, map[string]interface{}{
		"error_kind": kind,
		"error":      cause.Error(),
		"batch_id":   opts.batchID,
	})
	if err := s.updateStatus(ctx, target, models.ScoringStatusFailed); err != nil {
		logger.Error().Err(err).Msg("failed to mark target as failed")
	}
	s.publish(ctx, logger, ScoringEvent{
		Type:       EventScoringFailed,
		TargetType: target.Type,
		TargetID:   target.ID,
		ErrorKind:  kind,
		BatchID:    opts.batchID,
		OccurredAt: time.Now().UTC(),
	})

	observability.ScoringRuns().WithLabelValues(target.Type, "failed").Inc()
	observability.ScoringLatency().WithLabelValues(target.Type).Observe(time.Since(start).Seconds())
	logger.Warn().Err(cause).Str("error_kind", kind).Msg("scoring failed")

	return &ScoringFailedError{TargetType: target.Type, TargetID: target.ID, Kind: kind, Err: cause}
}

func (s *scoringService) ScoreBatch(ctx context.Context, ids []uint, opts ScoreOptions) (dto.BatchScoreResponse, error) {
	if len(ids) == 0 {
		return dto.BatchScoreResponse{}, fmt.Errorf("%w: no ids given", ErrSubmissionNotFound)
	}

	batchID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "scoring.batch", trace.WithAttributes(
		attribute.String("scoring.batch_id", batchID),
		attribute.Int("scoring.batch_size", len(ids)),
	))
	defer span.End()

	start := time.Now()
	items := make([]dto.BatchItemResponse, len(ids))

	var group errgroup.Group
	group.SetLimit(s.cfg.BatchConcurrency)
	for idx, id := range ids {
		idx, id := idx, id
		itemOpts := opts
		itemOpts.batchID = batchID
		group.Go(func() error {
			result, err := s.ScoreSubmission(ctx, id, itemOpts)
			if err != nil {
				items[idx] = dto.BatchItemResponse{ID: id, Error: err.Error(), ErrorKind: ErrorKind(err)}
				return nil
			}
			items[idx] = dto.BatchItemResponse{ID: id, Success: true, Result: &result}
			return nil
		})
	}
	_ = group.Wait()

	response := dto.BatchScoreResponse{BatchID: batchID, Total: len(ids), Items: items}
	for _, item := range items {
		if item.Success {
			response.Succeeded++
		} else {
			response.Failed++
		}
	}

	observability.ScoringBatchDuration().Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("scoring.batch_succeeded", response.Succeeded),
		attribute.Int("scoring.batch_failed", response.Failed),
	)
	s.logger.Info().Str("batch_id", batchID).Int("total", response.Total).Int("succeeded", response.Succeeded).Int("failed", response.Failed).Msg("batch scoring finished")

	return response, nil
}

func (s *scoringService) GetResult(ctx context.Context, id uint, target string) (dto.ScoringResultResponse, error) {
	types, err := targetOrder(target)
	if err != nil {
		return dto.ScoringResultResponse{}, err
	}

	for _, targetType := range types {
		if cached, ok := s.cached(ctx, targetType, id); ok {
			cached.CacheHit = true
			return cached, nil
		}

		record, err := s.deps.Results.Latest(ctx, targetType, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return dto.ScoringResultResponse{}, err
		}

		response := dto.NewScoringResultResponse(record, scoring.GradeLabel(record.Grade))
		s.store(ctx, targetType, id, response)
		return response, nil
	}
	return dto.ScoringResultResponse{}, ErrResultNotFound
}

func (s *scoringService) History(ctx context.Context, id uint, target string) ([]dto.ScoringResultResponse, error) {
	types, err := targetOrder(target)
	if err != nil {
		return nil, err
	}

	for _, targetType := range types {
		records, err := s.deps.Results.History(ctx, targetType, id)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		responses := make([]dto.ScoringResultResponse, 0, len(records))
		for _, record := range records {
			responses = append(responses, dto.NewScoringResultResponse(record, scoring.GradeLabel(record.Grade)))
		}
		return responses, nil
	}
	return []dto.ScoringResultResponse{}, nil
}

func (s *scoringService) Activities(ctx context.Context, id uint, target string) (dto.ActivityListResponse, error) {
	types, err := targetOrder(target)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	var last dto.ActivityListResponse
	for _, targetType := range types {
		list, err := s.deps.Activity.List(ctx, dto.ActivityListRequest{EntityType: targetType, EntityID: id})
		if err != nil {
			return dto.ActivityListResponse{}, err
		}
		if len(list.Items) > 0 {
			return list, nil
		}
		last = list
	}
	return last, nil
}

func (s *scoringService) loadTarget(ctx context.Context, id uint, target string) (scoringTarget, error) {
	types, err := targetOrder(target)
	if err != nil {
		return scoringTarget{}, err
	}

	for _, targetType := range types {
		switch targetType {
		case models.TargetSubmission:
			submission, err := s.deps.Submissions.GetByID(ctx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return scoringTarget{}, fmt.Errorf("load submission %d: %w", id, err)
			}
			primary, ok := submission.PrimaryFile()
			return scoringTarget{Type: targetType, ID: submission.ID, Primary: primary, HasFile: ok, Template: submission.Template}, nil
		case models.TargetTask:
			if s.deps.Tasks == nil {
				continue
			}
			task, err := s.deps.Tasks.GetByID(ctx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return scoringTarget{}, fmt.Errorf("load task %d: %w", id, err)
			}
			primary, ok := task.PrimaryFile()
			return scoringTarget{Type: targetType, ID: task.ID, Primary: primary, HasFile: ok, Template: task.Template}, nil
		}
	}
	return scoringTarget{}, fmt.Errorf("%w: id %d", ErrSubmissionNotFound, id)
}

func (s *scoringService) updateStatus(ctx context.Context, target scoringTarget, status string) error {
	switch target.Type {
	case models.TargetTask:
		return s.deps.Tasks.UpdateStatus(ctx, target.ID, status)
	default:
		return s.deps.Submissions.UpdateStatus(ctx, target.ID, status)
	}
}

// fileTypeFor uses the declared file-type, else the extension map, else
// the default rubric.
func (s *scoringService) fileTypeFor(file models.SubmissionFile) string {
	if declared := strings.TrimSpace(file.FileType); declared != "" {
		if canonical, ok := rubric.Canonical(declared); ok {
			return canonical
		}
		return declared
	}
	if fileType, ok := s.cfg.ExtensionFileTypes[extract.NormalizeFormat(extensionOf(file))]; ok {
		return fileType
	}
	return rubric.DefaultFileType
}

// templateRubric returns the total, explicit criteria and veto override of
// a template. Criteria whose caps do not add up to the total are ignored.
func (s *scoringService) templateRubric(logger zerolog.Logger, template *models.EvaluationTemplate) (float64, []rubric.Criterion, []string) {
	if template == nil {
		return s.cfg.DefaultTotalScore, nil, nil
	}

	total := template.EffectiveTotal(s.cfg.DefaultTotalScore)
	var criteria []rubric.Criterion
	if len(template.Criteria) > 0 {
		if math.Abs(template.CriteriaTotal()-total) > 1e-6 {
			logger.Warn().Uint("template_id", template.ID).Float64("criteria_total", template.CriteriaTotal()).Float64("total_score", total).Msg("template criteria do not sum to total, using default rubric")
		} else {
			for _, criterion := range template.Criteria {
				criteria = append(criteria, rubric.Criterion{Name: criterion.Name, MaxScore: criterion.MaxScore})
			}
		}
	}
	return total, criteria, []string(template.Vetoes)
}

func (s *scoringService) bonusPolicy(fileType string) scoring.BonusPolicy {
	policy := s.cfg.Bonus
	if s.deps.Registry == nil {
		return policy
	}
	rule := s.deps.Registry.Resolve(fileType).Bonus
	if rule.MaxItem > 0 {
		policy.MaxItem = rule.MaxItem
	}
	if rule.MaxTotal > 0 {
		policy.MaxTotal = rule.MaxTotal
	}
	return policy
}

func (s *scoringService) buildRecord(outcome scoring.Outcome, target scoringTarget, file models.SubmissionFile, fileType string, resp ai.ScoringResponse) models.ScoringResult {
	record := models.ScoringResult{
		TargetType:  target.Type,
		FileType:    fileType,
		FileName:    file.Name,
		ScoringType: models.ScoringTypeAuto,
		Model:       resp.Model,
		Attempts:    maxInt(resp.Attempts, 1),
		Grade:       outcome.Grade(),
		FinalScore:  outcome.Final(),
	}
	record.SubmissionID = target.ID

	var common scoring.Common
	switch o := outcome.(type) {
	case scoring.VetoOutcome:
		common = o.Common
		record.VetoTriggered = true
		record.VetoReason = s.clean(o.Reason)
	case scoring.ScoredOutcome:
		common = o.Common
		record.BaseScore = o.Base
		record.BonusScore = o.Bonus
		record.BonusDetails = make([]models.BonusDetail, 0, len(o.BonusDetails))
		for _, item := range o.BonusDetails {
			record.BonusDetails = append(record.BonusDetails, models.BonusDetail{Name: s.clean(item.Name), Score: item.Score})
		}
	}

	record.TotalScore = common.TotalScore
	record.Summary = s.clean(common.Summary)
	record.ScoredAt = common.ScoredAt
	record.ScoreDetails = make([]models.ScoreDetail, 0, len(common.ScoreDetails))
	for _, detail := range common.ScoreDetails {
		record.ScoreDetails = append(record.ScoreDetails, models.ScoreDetail{
			Indicator: s.clean(detail.Indicator),
			Score:     detail.Score,
			MaxScore:  detail.MaxScore,
			Reason:    s.clean(detail.Reason),
		})
	}
	if record.BonusDetails == nil {
		record.BonusDetails = []models.BonusDetail{}
	}
	return record
}

// clean strips markup from model-authored text.
func (s *scoringService) clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(text)))
}

func (s *scoringService) record(ctx context.Context, logger zerolog.Logger, actor ActivityActor, action string, target scoringTarget, details map[string]interface{}) {
	if s.deps.Activity == nil {
		return
	}
	if details["batch_id"] == "" {
		delete(details, "batch_id")
	}
	if _, err := s.deps.Activity.Record(ctx, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: target.Type,
		EntityID:   target.ID,
		Details:    details,
	}); err != nil {
		logger.Error().Err(err).Str("action", action).Msg("failed to append activity log")
	}
}

func (s *scoringService) publish(ctx context.Context, logger zerolog.Logger, event ScoringEvent) {
	if err := s.deps.Events.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish scoring event")
	}
}

func resultCacheKey(targetType string, id uint) string {
	return fmt.Sprintf("scoring:result:%s:%d", targetType, id)
}

func (s *scoringService) cached(ctx context.Context, targetType string, id uint) (dto.ScoringResultResponse, bool) {
	if s.deps.Cache == nil {
		return dto.ScoringResultResponse{}, false
	}
	payload, err := s.deps.Cache.Get(ctx, resultCacheKey(targetType, id)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read scoring result cache")
		}
		return dto.ScoringResultResponse{}, false
	}

	var response dto.ScoringResultResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to decode cached scoring result")
		return dto.ScoringResultResponse{}, false
	}
	return response, true
}

func (s *scoringService) store(ctx context.Context, targetType string, id uint, response dto.ScoringResultResponse) {
	if s.deps.Cache == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.deps.Cache.Set(ctx, resultCacheKey(targetType, id), payload, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store scoring result cache")
	}
}

func (s *scoringService) invalidate(ctx context.Context, logger zerolog.Logger, targetType string, id uint) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Del(ctx, resultCacheKey(targetType, id)).Err(); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate scoring result cache")
	}
}

func targetOrder(target string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(target)) {
	case "":
		return []string{models.TargetSubmission, models.TargetTask}, nil
	case models.TargetSubmission:
		return []string{models.TargetSubmission}, nil
	case models.TargetTask:
		return []string{models.TargetTask}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
}

func targetLabel(target string) string {
	if target == "" {
		return "unknown"
	}
	return target
}

func extensionOf(file models.SubmissionFile) string {
	if ext := filepath.Ext(file.Path); ext != "" {
		return ext
	}
	return filepath.Ext(file.Name)
}
