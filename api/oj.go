package api

import (
	"context"
	"fmt"
)

// Online-judge shapes; grading itself is entirely server-side.
type Problem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	InitCode    string `json:"init_code"`
	TimeLimit   int    `json:"time_limit"`
	MemoryLimit int    `json:"memory_limit"`
}

type SubmitRequest struct {
	ProblemID int64  `json:"problem_id"`
	Code      string `json:"code"`
	Language  string `json:"language,omitempty"`
}

type Submission struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg"`
	TimeCost   int64  `json:"time_cost"`
	MemoryCost int64  `json:"memory_cost"`
	CreatedAt  string `json:"created_at"`
}

// Problem fetches one problem statement.
func (c *Client) Problem(ctx context.Context, problemID int64) (Problem, error) {
	var problem Problem
	if err := c.get(ctx, fmt.Sprintf("/oj/problems/%d", problemID), &problem); err != nil {
		return Problem{}, err
	}
	return problem, nil
}

// Submit sends code for grading and returns the queued submission.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	var submission Submission
	if err := c.post(ctx, "/oj/submit", req, &submission); err != nil {
		return Submission{}, err
	}
	return submission, nil
}
