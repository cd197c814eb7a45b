// Package model defines the domain types shared across the unpack worker,
// GPU worker, relational store, and blob store packages.
package model

import "time"

// ClipStatus is the lifecycle state of a single AudioRecord.
type ClipStatus string

const (
	ClipStatusPending     ClipStatus = "pending"
	ClipStatusTranscribed ClipStatus = "transcribed"
	ClipStatusFlagged     ClipStatus = "flagged"
	ClipStatusFailed      ClipStatus = "failed"
	// ClipStatusInReview marks a flagged clip claimed by a reviewer, so a
	// second concurrent reviewer's claim query skips it.
	ClipStatusInReview ClipStatus = "in_review"
)

// Batch describes one archive submitted for processing.
type Batch struct {
	ID         string
	ArchiveKey string
	Total      int64
	CreatedAt  time.Time
}

// ArchiveType identifies an archive's real format, detected from its
// content rather than trusted from a filename extension.
type ArchiveType string

const (
	ArchiveTypeTarGz   ArchiveType = "tar.gz"
	ArchiveTypeTar     ArchiveType = "tar"
	ArchiveTypeGzip    ArchiveType = "gzip"
	ArchiveTypeUnknown ArchiveType = "unknown"
)

// Archive describes a downloaded batch archive prior to extraction.
type Archive struct {
	BatchID      string
	ObjectKey    string
	DetectedType ArchiveType
	SizeBytes    int64
}

// AudioRecord is a single decoded clip extracted from a batch archive.
// Created by the GPU Worker on first sight of the clip; mutated only by
// that clip's processor.
type AudioRecord struct {
	ID               int64
	BatchID          string
	OriginalFilename string
	OpusPath         string
	ArchiveSource    string
	DurationSeconds  float64
	FileSizeBytes    int64
	Status           ClipStatus
	OpusObjectKey    *string
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

// Transcript is the text WhisperX produced for a clip.
type Transcript struct {
	AudioID    int64
	Text       string
	Language   string
	Confidence float64
}

// Classification is the harmful-content verdict for a clip's transcript.
type Classification struct {
	AudioID  int64
	Flagged  bool
	Score    float64
	Category *string
}

// TranscribeQueueItem is the JSON payload pushed onto the transcribe queue
// for each successfully transcoded clip.
type TranscribeQueueItem struct {
	BatchID          string `json:"batch_id"`
	OpusPath         string `json:"opus_path"`
	OriginalFilename string `json:"original_filename"`
}
