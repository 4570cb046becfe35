// Package model defines the plagiarism check wire types. Field aliases
// (_id) match the platform's document store exports.
package model

// UserRef identifies a submitting user.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ProblemRef identifies a problem.
type ProblemRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Submission is one submitted solution.
type Submission struct {
	ID        string  `json:"_id"`
	Code      string  `json:"code"`
	Language  string  `json:"language,omitempty"`
	Processor string  `json:"processor,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// UserProblem groups one user's submissions for one problem.
type UserProblem struct {
	Problem     ProblemRef   `json:"problem"`
	Submissions []Submission `json:"submissions"`
}

// UserData is one element of the check batch.
type UserData struct {
	User     UserRef       `json:"user"`
	Problems []UserProblem `json:"problems"`
}

// ClusterMember is one submission inside a copy cluster.
type ClusterMember struct {
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Code         string `json:"code"`
}

// SuspiciousPair is an above-threshold match between two users' submissions.
type SuspiciousPair struct {
	First      ClusterMember `json:"first"`
	Second     ClusterMember `json:"second"`
	Similarity float32       `json:"similarity"`
}

// ProblemReport is the per-problem check outcome.
type ProblemReport struct {
	ProblemID   string            `json:"problem_id"`
	ProblemName string            `json:"problem_name"`
	CheckResult [][]ClusterMember `json:"checkResult"`
}

// CheckResponse is the /semantic-code response body.
type CheckResponse struct {
	Results []ProblemReport `json:"results"`
}
