package service

import "errors"

// Service layer errors for better error handling
var (
	// Workflow errors
	ErrGenerationInFlight = errors.New("a generation is already running for this project")
	ErrGeneration         = errors.New("project generation failed")

	// Ownership errors
	ErrNotOwner = errors.New("project does not belong to this user")

	// Input errors
	ErrEmptyPrompt  = errors.New("prompt is empty")
	ErrEmptyMessage = errors.New("message is empty")
)
