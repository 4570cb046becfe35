package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"codearena/internal/common/cache"
	"codearena/internal/judge/model"
	appErr "codearena/pkg/errors"
)

// Registration links a user to a contest with an approval status.
type Registration struct {
	User struct {
		ID string `json:"_id"`
	} `json:"user"`
	Status string `json:"status"`
}

// ContestProblem is one problem inside a contest payload, carrying the
// testcases the gateway attaches to evaluation tasks.
type ContestProblem struct {
	ID             string           `json:"_id"`
	Testcases      []model.Testcase `json:"testcases"`
	MaxSubmissions int              `json:"maxSubmissions"`
}

// Contest is the catalog entry stored under contest_{id}.
type Contest struct {
	Registrations []Registration   `json:"registrations"`
	Problems      []ContestProblem `json:"problems"`
}

// HasApprovedRegistration reports whether the user is registered and approved.
func (c *Contest) HasApprovedRegistration(userID string) bool {
	for _, reg := range c.Registrations {
		if reg.User.ID == userID && reg.Status == "approved" {
			return true
		}
	}
	return false
}

// FindProblem returns the contest problem with the given id.
func (c *Contest) FindProblem(problemID string) (ContestProblem, bool) {
	for _, p := range c.Problems {
		if p.ID == problemID {
			return p, true
		}
	}
	return ContestProblem{}, false
}

// ContestRepository reads the contest catalog out of the shared cache.
type ContestRepository struct {
	cache cache.Cache
}

// NewContestRepository creates a contest repository.
func NewContestRepository(c cache.Cache) *ContestRepository {
	return &ContestRepository{cache: c}
}

// GetContest loads and decodes contest_{id}. Some writers wrap the payload
// in a {"value": …} envelope; both shapes are accepted.
func (r *ContestRepository) GetContest(ctx context.Context, contestID string) (*Contest, error) {
	raw, err := r.cache.Get(ctx, fmt.Sprintf("contest_%s", contestID))
	if err != nil {
		if err == cache.ErrKeyNotFound {
			return nil, appErr.Newf(appErr.ContestNotActive, "contest %s not found", contestID)
		}
		return nil, appErr.Wrap(err, appErr.CacheError)
	}

	payload := []byte(raw)
	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.Value) > 0 {
		payload = envelope.Value
	}

	var contest Contest
	if err := json.Unmarshal(payload, &contest); err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "decode contest %s failed", contestID)
	}
	return &contest, nil
}
