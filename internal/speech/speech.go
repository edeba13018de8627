package speech

import "context"

// Bodies used in place of a transcription.
const (
	// UnavailablePlaceholder replaces the body when transcription fails;
	// ingestion proceeds regardless.
	UnavailablePlaceholder = "[transcription unavailable]"
	// NoSpeechPlaceholder is returned when the audio carries no
	// recognizable speech.
	NoSpeechPlaceholder = "[audio without recognizable speech]"
)

// Transcriber converts a downloadable audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, fileURL string) (string, error)
}
