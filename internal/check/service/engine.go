// Package service implements the plagiarism engine: normalize, embed and
// cluster submissions per problem.
package service

import (
	"context"

	"codearena/internal/check/embed"
	"codearena/internal/check/model"
	"codearena/internal/check/normalize"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultThreshold is the cosine similarity above which two submissions
// are considered copies.
const DefaultThreshold = 0.97

// Engine runs the full check over a batch. One batch is processed
// single-threaded; concurrency lives at the HTTP layer.
type Engine struct {
	normalizer normalize.Normalizer
	embedder   *embed.Embedder
	cache      *embed.Cache
	threshold  float32
}

// NewEngine wires the engine. cache may be nil to disable memoization;
// threshold <= 0 selects the default.
func NewEngine(normalizer normalize.Normalizer, embedder *embed.Embedder, cache *embed.Cache, threshold float32) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{normalizer: normalizer, embedder: embedder, cache: cache, threshold: threshold}
}

// Check produces one report per problem found in the batch, in first-seen
// problem order.
func (e *Engine) Check(ctx context.Context, batch []model.UserData) (model.CheckResponse, error) {
	if len(batch) == 0 {
		return model.CheckResponse{}, appErr.New(appErr.CheckBatchInvalid)
	}

	problems, order := collectProblems(batch)

	resp := model.CheckResponse{Results: make([]model.ProblemReport, 0, len(order))}
	for _, pid := range order {
		problem := problems[pid]
		clusters, err := e.checkProblem(ctx, problem)
		if err != nil {
			return model.CheckResponse{}, err
		}
		resp.Results = append(resp.Results, model.ProblemReport{
			ProblemID:   pid,
			ProblemName: problem.name,
			CheckResult: clusters,
		})
	}
	return resp, nil
}

// problemBatch is every user's submissions for one problem.
type problemBatch struct {
	name      string
	userOrder []string
	byUser    map[string][]model.ClusterMember
}

func collectProblems(batch []model.UserData) (map[string]*problemBatch, []string) {
	problems := make(map[string]*problemBatch)
	var order []string

	for _, user := range batch {
		for _, up := range user.Problems {
			pid := up.Problem.ID
			pb, ok := problems[pid]
			if !ok {
				pb = &problemBatch{
					name:   up.Problem.Name,
					byUser: make(map[string][]model.ClusterMember),
				}
				problems[pid] = pb
				order = append(order, pid)
			}
			for _, sub := range up.Submissions {
				if _, seen := pb.byUser[user.User.ID]; !seen {
					pb.userOrder = append(pb.userOrder, user.User.ID)
				}
				pb.byUser[user.User.ID] = append(pb.byUser[user.User.ID], model.ClusterMember{
					SubmissionID: sub.ID,
					UserID:       user.User.ID,
					Username:     user.User.Username,
					Code:         sub.Code,
				})
			}
		}
	}
	return problems, order
}

func (e *Engine) checkProblem(ctx context.Context, pb *problemBatch) ([][]model.ClusterMember, error) {
	total := 0
	for _, subs := range pb.byUser {
		total += len(subs)
	}
	if total < 2 || len(pb.userOrder) < 2 {
		return nil, nil
	}

	embedded := make(map[string][]entry, len(pb.byUser))
	for _, uid := range pb.userOrder {
		for _, member := range pb.byUser[uid] {
			vec, err := e.embedOne(ctx, member.Code)
			if err != nil {
				return nil, err
			}
			embedded[uid] = append(embedded[uid], entry{member: member, vector: vec})
		}
	}

	pairs := suspiciousPairs(embedded, pb.userOrder, e.threshold)
	return clusterPairs(pairs, e.threshold), nil
}

// embedOne normalizes and embeds one submission, consulting the cache on
// both sides. Normalization failures fall back to the raw code.
func (e *Engine) embedOne(ctx context.Context, code string) ([]float32, error) {
	normalized, err := e.normalizer.Normalize(ctx, code)
	if err != nil {
		logger.Warn(ctx, "normalization failed, using raw code", zap.Error(err))
		normalized = code
	}

	key := embed.Key(normalized)
	if e.cache != nil {
		if vec, err := e.cache.Get(ctx, key); err == nil && vec != nil {
			return vec, nil
		}
	}

	vectors, err := e.embedder.Embed(ctx, []string{normalized})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, appErr.New(appErr.EmbeddingFailed)
	}
	vec := embed.NormalizeL2(vectors[0])

	if e.cache != nil {
		if err := e.cache.Put(ctx, key, normalized, vec); err != nil {
			logger.Warn(ctx, "embedding cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}
