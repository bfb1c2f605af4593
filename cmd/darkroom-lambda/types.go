package main

import (
	"github.com/fpang/darkroom/internal/darkroom"
	"github.com/fpang/darkroom/internal/photo"
	"github.com/fpang/darkroom/internal/store"
)

// DarkroomEvent is the Lambda input. Type selects the handler.
type DarkroomEvent struct {
	Type      string              `json:"type"`
	UserID    string              `json:"userId"`
	PhotoID   string              `json:"photoId,omitempty"`
	ImageURL  string              `json:"imageURL,omitempty"`
	Emoji     string              `json:"emoji,omitempty"`
	Decisions []photo.Decision    `json:"decisions,omitempty"`
	PhotoTags map[string][]string `json:"photoTags,omitempty"`
}

// RevealNowResult is returned by the reveal-now handler.
type RevealNowResult struct {
	UserID       string                   `json:"userId"`
	Count        int                      `json:"count"`
	NextRevealAt string                   `json:"nextRevealAt,omitempty"`
	Schedule     *darkroom.ScheduleResult `json:"schedule,omitempty"`
}

// BatchTriageResult is returned by the batch-triage handler.
type BatchTriageResult struct {
	UserID         string             `json:"userId"`
	JournaledCount int                `json:"journaledCount"`
	FailedCount    int                `json:"failedCount"`
	Items          []photo.ItemResult `json:"items"`
	Notified       bool               `json:"notified"`
}

// PhotoResult wraps a single photo (capture, react).
type PhotoResult struct {
	Photo *store.Photo `json:"photo"`
}
