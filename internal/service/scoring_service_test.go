package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/rubric"
	"github.com/noah-isme/gema-eval-api/internal/scoring"
	"github.com/noah-isme/gema-eval-api/internal/storage"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
	"github.com/noah-isme/gema-eval-api/pkg/extract"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.MaterialSubmission
}

func (f *fakeSubmissionRepo) Create(ctx context.Context, submission *models.MaterialSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions[submission.ID] = *submission
	return nil
}

func (f *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (models.MaterialSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	submission, ok := f.submissions[id]
	if !ok {
		return models.MaterialSubmission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (f *fakeSubmissionRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	submission, ok := f.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	submission.Status = status
	f.submissions[id] = submission
	return nil
}

func (f *fakeSubmissionRepo) status(id uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions[id].Status
}

type fakeTaskRepo struct {
	tasks map[uint]models.EvaluationTask
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *models.EvaluationTask) error {
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeTaskRepo) GetByID(ctx context.Context, id uint) (models.EvaluationTask, error) {
	task, ok := f.tasks[id]
	if !ok {
		return models.EvaluationTask{}, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (f *fakeTaskRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	task, ok := f.tasks[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	task.Status = status
	f.tasks[id] = task
	return nil
}

type fakeResultRepo struct {
	mu          sync.Mutex
	records     []models.ScoringResult
	saveErr     error
	submissions *fakeSubmissionRepo
	tasks       *fakeTaskRepo
}

func (f *fakeResultRepo) Save(ctx context.Context, result *models.ScoringResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	result.ID = uint(len(f.records) + 1)
	f.records = append(f.records, *result)
	f.mu.Unlock()

	if result.TargetType == models.TargetTask {
		return f.tasks.UpdateStatus(ctx, result.SubmissionID, models.ScoringStatusScored)
	}
	return f.submissions.UpdateStatus(ctx, result.SubmissionID, models.ScoringStatusScored)
}

func (f *fakeResultRepo) Latest(ctx context.Context, targetType string, targetID uint) (models.ScoringResult, error) {
	history, _ := f.History(ctx, targetType, targetID)
	if len(history) == 0 {
		return models.ScoringResult{}, gorm.ErrRecordNotFound
	}
	return history[0], nil
}

func (f *fakeResultRepo) History(ctx context.Context, targetType string, targetID uint) ([]models.ScoringResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ScoringResult
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].TargetType == targetType && f.records[i].SubmissionID == targetID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeResultRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type stubScorer struct {
	mu        sync.Mutex
	responses []ai.ScoringResponse
	err       error
	prompts   []string
}

func (s *stubScorer) Score(ctx context.Context, req ai.ScoringRequest) (ai.ScoringResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	if s.err != nil {
		return ai.ScoringResponse{}, s.err
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ScoringEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event ScoringEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type scoringFixture struct {
	dir          string
	submissions  *fakeSubmissionRepo
	tasks        *fakeTaskRepo
	results      *fakeResultRepo
	activity     *memoryActivityRepo
	events       *recordingPublisher
	scorer       ai.Scorer
	cache        *redis.Client
	defaultTotal float64
}

func newScoringFixture(t *testing.T, scorer ai.Scorer) *scoringFixture {
	t.Helper()
	submissions := &fakeSubmissionRepo{submissions: map[uint]models.MaterialSubmission{}}
	tasks := &fakeTaskRepo{tasks: map[uint]models.EvaluationTask{}}
	return &scoringFixture{
		dir:         t.TempDir(),
		submissions: submissions,
		tasks:       tasks,
		results:     &fakeResultRepo{submissions: submissions, tasks: tasks},
		activity:    &memoryActivityRepo{},
		events:      &recordingPublisher{},
		scorer:      scorer,
	}
}

func (f *scoringFixture) service() ScoringService {
	registry := rubric.NewRegistry(testLogger())
	defaultTotal := 100.0
	if f.defaultTotal > 0 {
		defaultTotal = f.defaultTotal
	}
	return NewScoringService(ScoringDependencies{
		Submissions: f.submissions,
		Tasks:       f.tasks,
		Results:     f.results,
		Activity:    NewActivityService(f.activity, testLogger()),
		Registry:    registry,
		Extractor:   extract.New(testLogger()),
		Scorer:      f.scorer,
		Resolver:    storage.NewResolver([]storage.Root{{Prefix: "/media/", Dir: f.dir}}),
		Cache:       f.cache,
		Events:      f.events,
	}, ScoringConfig{
		DefaultTotalScore: defaultTotal,
		ExtensionFileTypes: map[string]string{
			"pdf": rubric.LessonPlan, "docx": rubric.LessonPlan, "txt": rubric.LessonPlan,
			"pptx": rubric.Courseware,
		},
		Bonus: scoring.DefaultBonusPolicy(),
	}, testLogger())
}

func (f *scoringFixture) addSubmission(t *testing.T, id uint, name, content string, template *models.EvaluationTemplate) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o600))
	f.submissions.submissions[id] = models.MaterialSubmission{
		ID:       id,
		Status:   models.ScoringStatusPending,
		Template: template,
		Files:    []models.SubmissionFile{{Name: name, Path: "/media/" + name}},
	}
}

func validResponse(base float64) ai.ScoringResponse {
	return ai.ScoringResponse{
		ScoreDetails: []ai.IndicatorScore{
			{Indicator: "教学目标", Score: 18, MaxScore: 20, Reason: "<b>目标明确</b> &amp; 可测"},
		},
		BaseScore:       base,
		GradeSuggestion: "Good",
		Summary:         "<p>【总体评价】结构完整</p>",
		Model:           "deepseek-chat",
		Attempts:        1,
	}
}

func TestScoreSubmissionHappyPath(t *testing.T) {
	scorer := &stubScorer{responses: []ai.ScoringResponse{validResponse(85)}}
	fx := newScoringFixture(t, scorer)
	fx.addSubmission(t, 1, "plan.txt", "教学目标：理解分数的意义", nil)

	result, err := fx.service().ScoreSubmission(context.Background(), 1, ScoreOptions{})
	require.NoError(t, err)
	require.Equal(t, 85.0, result.BaseScore)
	require.Equal(t, 0.0, result.BonusScore)
	require.Equal(t, 85.0, result.FinalScore)
	require.Equal(t, scoring.GradeGood, result.Grade)
	require.Equal(t, "良好", result.GradeLabel)
	require.False(t, result.VetoTriggered)
	require.Equal(t, rubric.LessonPlan, result.FileType)
	require.Equal(t, "plan.txt", result.FileName)
	require.Equal(t, "【总体评价】结构完整", result.Summary)
	require.Equal(t, "目标明确 & 可测", result.ScoreDetails[0].Reason)
	require.Equal(t, models.ScoringTypeAuto, result.ScoringType)

	require.Equal(t, models.ScoringStatusScored, fx.submissions.status(1))
	require.Equal(t, []string{models.ActionScoringStarted, models.ActionScoringCompleted}, fx.activity.actions(models.TargetSubmission, 1))
	require.Len(t, fx.events.events, 1)
	require.Equal(t, EventScoringCompleted, fx.events.events[0].Type)

	require.Len(t, scorer.prompts, 1)
	require.Contains(t, scorer.prompts[0], "教学目标：理解分数的意义")
	require.Contains(t, scorer.prompts[0], "「教案」")
}

func TestScoreSubmissionVetoDominates(t *testing.T) {
	resp := validResponse(60)
	resp.VetoCheck = ai.VetoCheck{Triggered: true, Reason: "未提交核心文件"}
	fx := newScoringFixture(t, &stubScorer{responses: []ai.ScoringResponse{resp}})
	fx.addSubmission(t, 2, "plan.txt", "内容", nil)

	result, err := fx.service().ScoreSubmission(context.Background(), 2, ScoreOptions{BonusItems: []scoring.BonusItem{{Name: "a", Score: 5}}})
	require.NoError(t, err)
	require.True(t, result.VetoTriggered)
	require.Equal(t, "未提交核心文件", result.VetoReason)
	require.Equal(t, 0.0, result.BaseScore)
	require.Equal(t, 0.0, result.BonusScore)
	require.Equal(t, 0.0, result.FinalScore)
	require.Equal(t, scoring.GradeFail, result.Grade)
	require.Len(t, result.ScoreDetails, 1)
}

func TestScoreSubmissionAppliesBonusCaps(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{responses: []ai.ScoringResponse{validResponse(90)}})
	fx.addSubmission(t, 3, "plan.txt", "内容", nil)

	result, err := fx.service().ScoreSubmission(context.Background(), 3, ScoreOptions{
		BonusItems: []scoring.BonusItem{{Name: "a", Score: 7}, {Name: "b", Score: 8}},
	})
	require.NoError(t, err)
	require.Equal(t, 10.0, result.BonusScore)
	require.Equal(t, 100.0, result.FinalScore)
	require.Equal(t, scoring.GradeExcellent, result.Grade)
	require.Len(t, result.BonusDetails, 2)
	require.Equal(t, 5.0, result.BonusDetails[0].Score)
}

func TestScoreSubmissionCustomTemplate(t *testing.T) {
	scorer := &stubScorer{responses: []ai.ScoringResponse{validResponse(40)}}
	fx := newScoringFixture(t, scorer)
	template := &models.EvaluationTemplate{
		ID:         4,
		FileType:   rubric.LessonPlan,
		TotalScore: 50,
		Criteria:   []models.TemplateCriterion{{Name: "设计", MaxScore: 25}, {Name: "实施", MaxScore: 25}},
	}
	fx.addSubmission(t, 4, "plan.txt", "内容", template)

	result, err := fx.service().ScoreSubmission(context.Background(), 4, ScoreOptions{})
	require.NoError(t, err)
	require.Equal(t, 50.0, result.TotalScore)
	require.Equal(t, 40.0, result.FinalScore)
	require.Equal(t, scoring.GradeGood, result.Grade)
	require.Contains(t, scorer.prompts[0], "1. 设计（满分 25 分）")
	require.Contains(t, scorer.prompts[0], "总分 50 分")
}

func TestScoreSubmissionTemplateWithoutTotalUsesConfiguredDefault(t *testing.T) {
	scorer := &stubScorer{responses: []ai.ScoringResponse{validResponse(55)}}
	fx := newScoringFixture(t, scorer)
	fx.defaultTotal = 60
	template := &models.EvaluationTemplate{
		ID:       5,
		FileType: rubric.LessonPlan,
		Criteria: []models.TemplateCriterion{{Name: "设计", MaxScore: 30}, {Name: "实施", MaxScore: 30}},
	}
	fx.addSubmission(t, 5, "plan.txt", "内容", template)

	result, err := fx.service().ScoreSubmission(context.Background(), 5, ScoreOptions{})
	require.NoError(t, err)
	require.Equal(t, 60.0, result.TotalScore)
	require.Equal(t, 55.0, result.FinalScore)
	require.Equal(t, scoring.GradeExcellent, result.Grade)
	require.Contains(t, scorer.prompts[0], "1. 设计（满分 30 分）")
	require.Contains(t, scorer.prompts[0], "总分 60 分")
}

func TestScoreSubmissionRetriesTransientFailure(t *testing.T) {
	var calls int32
	reply, err := json.Marshal(map[string]interface{}{
		"veto_check":       map[string]interface{}{"triggered": false, "reason": ""},
		"score_details":    []interface{}{},
		"base_score":       88,
		"grade_suggestion": "良好",
		"summary":          "【总体评价】良好",
	})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"busy","type":"server_error"}}`))
			return
		}
		body, _ := json.Marshal(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": string(reply)}}},
		})
		_, _ = w.Write(body)
	}))
	defer server.Close()

	policy := ai.NewRetryPolicy(2)
	policy.BaseDelay = time.Millisecond
	scorer, err := ai.NewChatScorer(ai.ChatConfig{
		EndpointURL: server.URL + "/chat/completions",
		APIKey:      "sk-test",
		Timeout:     time.Second,
		Policy:      policy,
		Logger:      testLogger(),
	})
	require.NoError(t, err)

	fx := newScoringFixture(t, scorer)
	fx.addSubmission(t, 6, "plan.txt", "内容", nil)

	result, err := fx.service().ScoreSubmission(context.Background(), 6, ScoreOptions{})
	require.NoError(t, err)
	require.Equal(t, 88.0, result.FinalScore)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
	require.Equal(t, 1, fx.results.count())
	require.Equal(t, 2, fx.results.records[0].Attempts)

	completed := 0
	for _, action := range fx.activity.actions(models.TargetSubmission, 6) {
		if action == models.ActionScoringCompleted {
			completed++
		}
	}
	require.Equal(t, 1, completed)
}

func TestScoreSubmissionUnsupportedFormat(t *testing.T) {
	scorer := &stubScorer{responses: []ai.ScoringResponse{validResponse(80)}}
	fx := newScoringFixture(t, scorer)
	fx.addSubmission(t, 7, "bundle.zip", "PK", nil)

	_, err := fx.service().ScoreSubmission(context.Background(), 7, ScoreOptions{})
	require.ErrorIs(t, err, ErrScoringFailed)
	require.ErrorIs(t, err, extract.ErrUnsupportedFormat)

	var failed *ScoringFailedError
	require.True(t, errors.As(err, &failed))
	require.Equal(t, KindInput, failed.Kind)

	require.Zero(t, fx.results.count())
	require.Empty(t, scorer.prompts)
	require.Equal(t, models.ScoringStatusFailed, fx.submissions.status(7))
	require.Equal(t, []string{models.ActionScoringStarted, models.ActionScoringFailed}, fx.activity.actions(models.TargetSubmission, 7))

	last := fx.activity.entries[len(fx.activity.entries)-1]
	require.Equal(t, KindInput, last.Details["error_kind"])
	require.Contains(t, last.Details["error"], ".zip")
	require.Equal(t, EventScoringFailed, fx.events.events[0].Type)
}

func TestScoreSubmissionMissingFileNamesCandidates(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{responses: []ai.ScoringResponse{validResponse(80)}})
	fx.submissions.submissions[8] = models.MaterialSubmission{ID: 8, Files: []models.SubmissionFile{{Name: "a.pdf", Path: "/media/gone.pdf"}}}

	_, err := fx.service().ScoreSubmission(context.Background(), 8, ScoreOptions{})
	require.ErrorIs(t, err, storage.ErrFileNotFound)
	require.Contains(t, err.Error(), filepath.Join(fx.dir, "gone.pdf"))
	require.Equal(t, models.ScoringStatusFailed, fx.submissions.status(8))
}

func TestScoreSubmissionNotFound(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{})

	_, err := fx.service().ScoreSubmission(context.Background(), 99, ScoreOptions{})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
	require.Equal(t, KindInput, ErrorKind(err))
	require.Empty(t, fx.activity.entries)
}

func TestScoreSubmissionWithoutFilesFails(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{})
	fx.submissions.submissions[5] = models.MaterialSubmission{ID: 5, Status: models.ScoringStatusPending}

	_, err := fx.service().ScoreSubmission(context.Background(), 5, ScoreOptions{})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
	require.Equal(t, models.ScoringStatusFailed, fx.submissions.status(5))
}

func TestScoreSubmissionFallsBackToTask(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{responses: []ai.ScoringResponse{validResponse(70)}})
	require.NoError(t, os.WriteFile(filepath.Join(fx.dir, "deck.txt"), []byte("课件文字"), 0o600))
	fx.tasks.tasks[11] = models.EvaluationTask{
		ID:     11,
		Title:  "期中检查",
		Status: models.ScoringStatusPending,
		Files:  []models.SubmissionFile{{Name: "deck.txt", Path: "/media/deck.txt", FileType: "courseware"}},
	}

	result, err := fx.service().ScoreSubmission(context.Background(), 11, ScoreOptions{})
	require.NoError(t, err)
	require.Equal(t, models.TargetTask, result.TargetType)
	require.Equal(t, rubric.Courseware, result.FileType)
	require.Equal(t, scoring.GradePass, result.Grade)
	require.Equal(t, models.ScoringStatusScored, fx.tasks.tasks[11].Status)

	_, err = fx.service().ScoreSubmission(context.Background(), 11, ScoreOptions{Target: models.TargetSubmission})
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestScoreSubmissionRejectsUnknownTarget(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{})
	_, err := fx.service().ScoreSubmission(context.Background(), 1, ScoreOptions{Target: "course"})
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestScoreSubmissionClassifiesFailures(t *testing.T) {
	cases := map[string]struct {
		err  error
		kind string
	}{
		"auth":       {err: ai.ErrAuthentication, kind: KindAuthentication},
		"timeout":    {err: &ai.TimeoutError{Attempts: 3, Err: context.DeadlineExceeded}, kind: KindTransport},
		"api":        {err: &ai.APIError{StatusCode: 503, Attempts: 3}, kind: KindTransport},
		"validation": {err: &ai.ValidationError{Reason: "no json"}, kind: KindContract},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newScoringFixture(t, &stubScorer{err: tc.err})
			fx.addSubmission(t, 1, "plan.txt", "内容", nil)

			_, err := fx.service().ScoreSubmission(context.Background(), 1, ScoreOptions{})
			var failed *ScoringFailedError
			require.True(t, errors.As(err, &failed))
			require.Equal(t, tc.kind, failed.Kind)
			require.Zero(t, fx.results.count())
		})
	}
}

func TestScoreSubmissionPersistenceFailureMarksFailed(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{responses: []ai.ScoringResponse{validResponse(80)}})
	fx.results.saveErr = errors.New("disk full")
	fx.addSubmission(t, 1, "plan.txt", "内容", nil)

	_, err := fx.service().ScoreSubmission(context.Background(), 1, ScoreOptions{})
	require.Equal(t, KindPersistence, ErrorKind(err))
	require.Equal(t, models.ScoringStatusFailed, fx.submissions.status(1))
}

func TestScoreBatchIsolatesFailures(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{responses: []ai.ScoringResponse{validResponse(82)}})
	fx.addSubmission(t, 1, "a.txt", "内容一", nil)
	fx.addSubmission(t, 2, "b.zip", "PK", nil)
	fx.addSubmission(t, 3, "c.txt", "内容三", nil)

	batch, err := fx.service().ScoreBatch(context.Background(), []uint{1, 2, 404, 3}, ScoreOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, batch.BatchID)
	require.Equal(t, 4, batch.Total)
	require.Equal(t, 2, batch.Succeeded)
	require.Equal(t, 2, batch.Failed)

	require.True(t, batch.Items[0].Success)
	require.False(t, batch.Items[1].Success)
	require.Equal(t, KindInput, batch.Items[1].ErrorKind)
	require.Equal(t, uint(404), batch.Items[2].ID)
	require.False(t, batch.Items[2].Success)
	require.True(t, batch.Items[3].Success)
	require.Equal(t, 82.0, batch.Items[3].Result.FinalScore)

	require.Equal(t, batch.BatchID, fx.events.events[0].BatchID)
}

func TestScoreBatchRequiresIDs(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{})
	_, err := fx.service().ScoreBatch(context.Background(), nil, ScoreOptions{})
	require.Error(t, err)
}

func TestGetResultUsesCacheAndInvalidatesOnSave(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	scorer := &stubScorer{responses: []ai.ScoringResponse{validResponse(75), validResponse(92)}}
	fx := newScoringFixture(t, scorer)
	fx.cache = client
	fx.addSubmission(t, 1, "plan.txt", "内容", nil)
	svc := fx.service()

	_, err = svc.GetResult(context.Background(), 1, "")
	require.ErrorIs(t, err, ErrResultNotFound)

	_, err = svc.ScoreSubmission(context.Background(), 1, ScoreOptions{})
	require.NoError(t, err)

	first, err := svc.GetResult(context.Background(), 1, "")
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, 75.0, first.FinalScore)
	require.True(t, server.Exists(resultCacheKey(models.TargetSubmission, 1)))

	cached, err := svc.GetResult(context.Background(), 1, models.TargetSubmission)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, 75.0, cached.FinalScore)

	_, err = svc.ScoreSubmission(context.Background(), 1, ScoreOptions{})
	require.NoError(t, err)
	require.False(t, server.Exists(resultCacheKey(models.TargetSubmission, 1)))

	latest, err := svc.GetResult(context.Background(), 1, "")
	require.NoError(t, err)
	require.Equal(t, 92.0, latest.FinalScore)

	history, err := svc.History(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 92.0, history[0].FinalScore)
}

func TestActivitiesListsEmissionOrder(t *testing.T) {
	fx := newScoringFixture(t, &stubScorer{responses: []ai.ScoringResponse{validResponse(75)}})
	fx.addSubmission(t, 1, "plan.txt", "内容", nil)
	svc := fx.service()

	_, err := svc.ScoreSubmission(context.Background(), 1, ScoreOptions{Actor: ActivityActor{ID: 3, Role: "admin"}})
	require.NoError(t, err)

	list, err := svc.Activities(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, models.ActionScoringStarted, list.Items[0].Action)
	require.Equal(t, models.ActionScoringCompleted, list.Items[1].Action)
	require.Equal(t, "admin", list.Items[0].ActorRole)
}
