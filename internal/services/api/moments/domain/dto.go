// Package domain holds DTOs for the learning moments http surface
package domain

// CaptureInput is one piece of free text to scan
type CaptureInput struct {
	Text        string `json:"text" validate:"max=200000" example:"Turns out the root cause was a stale lock."`
	SessionID   string `json:"session_id,omitempty" validate:"omitempty,max=200" example:"sess-42"`
	DirectiveID string `json:"directive_id,omitempty" validate:"omitempty,max=200" example:"dir-7"`
}

// CheckInput asks whether text holds any learning moment
type CheckInput struct {
	Text string `json:"text" validate:"max=200000" example:"in hindsight we should have paged earlier"`
}

// CheckResponse answers a CheckInput
type CheckResponse struct {
	HasLearningMoments bool `json:"hasLearningMoments" example:"true"`
}

// EnhanceInput carries the caller's retrospective record
type EnhanceInput struct {
	Retrospective map[string]any `json:"retrospective" validate:"required"`
}
