package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/internal/dto"
	"github.com/noah-isme/gema-eval-api/internal/service"
)

type recordingService struct {
	ids  []uint
	opts service.ScoreOptions
}

func (r *recordingService) ScoreSubmission(ctx context.Context, id uint, opts service.ScoreOptions) (dto.ScoringResultResponse, error) {
	r.ids, r.opts = []uint{id}, opts
	return dto.ScoringResultResponse{SubmissionID: id, FinalScore: 88, Grade: "Good"}, nil
}

func (r *recordingService) ScoreBatch(ctx context.Context, ids []uint, opts service.ScoreOptions) (dto.BatchScoreResponse, error) {
	r.ids, r.opts = ids, opts
	return dto.BatchScoreResponse{Total: len(ids), Succeeded: len(ids)}, nil
}

func (r *recordingService) GetResult(ctx context.Context, id uint, target string) (dto.ScoringResultResponse, error) {
	r.ids = []uint{id}
	return dto.ScoringResultResponse{SubmissionID: id, TargetType: target}, nil
}

func (r *recordingService) History(ctx context.Context, id uint, target string) ([]dto.ScoringResultResponse, error) {
	return []dto.ScoringResultResponse{{ID: 2}, {ID: 1}}, nil
}

func (r *recordingService) Activities(ctx context.Context, id uint, target string) (dto.ActivityListResponse, error) {
	return dto.ActivityListResponse{}, nil
}

func run(t *testing.T, svc service.ScoringService, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	closed := false
	root := newRootCommand(func(ctx context.Context, verbose bool) (service.ScoringService, func(), error) {
		return svc, func() { closed = true }, nil
	}, &out)
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	err := root.ExecuteContext(context.Background())
	if err == nil {
		require.True(t, closed)
	}
	return out.String(), err
}

func TestScoreCommand(t *testing.T) {
	svc := &recordingService{}
	out, err := run(t, svc, "score", "42", "--target", "task", "--bonus", "公开课=3", "--bonus", "竞赛=2.5")
	require.NoError(t, err)

	var result dto.ScoringResultResponse
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, 88.0, result.FinalScore)
	require.Equal(t, []uint{42}, svc.ids)
	require.Equal(t, "task", svc.opts.Target)
	require.Len(t, svc.opts.BonusItems, 2)
	require.Equal(t, 2.5, svc.opts.BonusItems[1].Score)
}

func TestBatchCommand(t *testing.T) {
	svc := &recordingService{}
	out, err := run(t, svc, "batch", "1", "2", "3")
	require.NoError(t, err)
	require.Equal(t, []uint{1, 2, 3}, svc.ids)
	require.Contains(t, out, `"succeeded": 3`)
}

func TestResultCommand(t *testing.T) {
	svc := &recordingService{}
	out, err := run(t, svc, "result", "7", "--target", "submission")
	require.NoError(t, err)
	require.Contains(t, out, `"target_type": "submission"`)

	out, err = run(t, svc, "result", "7", "--history")
	require.NoError(t, err)
	var history []dto.ScoringResultResponse
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history, 2)
}

func TestCommandsRejectBadInput(t *testing.T) {
	_, err := run(t, &recordingService{}, "score", "abc")
	require.Error(t, err)

	_, err = run(t, &recordingService{}, "score", "1", "--bonus", "noscore")
	require.Error(t, err)

	_, err = run(t, &recordingService{}, "batch")
	require.Error(t, err)
}
