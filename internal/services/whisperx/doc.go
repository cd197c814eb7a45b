// Package whisperx wraps the WhisperX CLI for short audio clip transcription.
//
// The GPU worker invokes TranscribeClip on each clip's decoded opus file and
// receives plain text, a detected language code, and an approximate
// confidence score derived from WhisperX's per-segment log probabilities.
//
// Configuration (model, CUDA, VAD method) is passed via Config.
package whisperx
