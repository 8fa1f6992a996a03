package api

import "polyscribe/internal/transcribe"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TranscriptionResponse is the payload returned for a completed transcription.
type TranscriptionResponse struct {
	Text             string               `json:"text" yaml:"text"`
	Language         string               `json:"language" yaml:"language"`
	LanguageRendered string               `json:"language_rendered" yaml:"language_rendered"`
	Duration         float64              `json:"duration" yaml:"duration"`
	Segments         []transcribe.Segment `json:"segments" yaml:"segments"`
	Enhanced         bool                 `json:"enhanced" yaml:"enhanced"`
	Debug            Debug                `json:"debug" yaml:"debug"`
	Details          TranscriptionDetails `json:"transcriptionDetails" yaml:"transcriptionDetails"`
}

// Debug exposes how the language decision was reached.
type Debug struct {
	FileSize          int64                     `json:"fileSize" yaml:"fileSize"`
	FileType          string                    `json:"fileType" yaml:"fileType"`
	Strategy          transcribe.Strategy       `json:"strategy" yaml:"strategy"`
	DetectedLanguages []string                  `json:"detectedLanguages" yaml:"detectedLanguages"`
	PrimaryLanguage   string                    `json:"primaryLanguage" yaml:"primaryLanguage"`
	RenderingLanguage string                    `json:"renderingLanguage" yaml:"renderingLanguage"`
	Confidence        map[string]float64        `json:"confidence" yaml:"confidence"`
	ScriptAnalysis    transcribe.ScriptAnalysis `json:"francAnalysis" yaml:"francAnalysis"`
	TextAnalysis      TextAnalysis              `json:"textAnalysis" yaml:"textAnalysis"`
}

// TextAnalysis summarizes the final text.
type TextAnalysis struct {
	Length       int     `json:"length" yaml:"length"`
	HasChinese   bool    `json:"hasChinese" yaml:"hasChinese"`
	HasEnglish   bool    `json:"hasEnglish" yaml:"hasEnglish"`
	IsMixed      bool    `json:"isMixed" yaml:"isMixed"`
	ChineseRatio float64 `json:"chineseRatio" yaml:"chineseRatio"`
	EnglishRatio float64 `json:"englishRatio" yaml:"englishRatio"`
}

// TranscriptionDetails carries the complete outcome.
type TranscriptionDetails struct {
	Enhanced          transcribe.Outcome  `json:"enhanced" yaml:"enhanced"`
	Strategy          transcribe.Strategy `json:"strategy" yaml:"strategy"`
	ScriptDetected    string              `json:"francDetected" yaml:"francDetected"`
	RenderingLanguage string              `json:"renderingLanguage" yaml:"renderingLanguage"`
}

// FileInfo describes the submitted audio.
type FileInfo struct {
	Size        int64
	ContentType string
}

// ErrorResponse is returned for rejected or failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId"`
	StartedAt string `json:"startedAt"`
	Uptime    string `json:"uptime"`
	Pipeline  string `json:"pipeline"`
}

// TranscriptionEntry is one row of the transcription history.
type TranscriptionEntry struct {
	ID                string   `json:"id" yaml:"id"`
	CreatedAt         string   `json:"createdAt" yaml:"createdAt"`
	Source            string   `json:"source" yaml:"source"`
	FileName          string   `json:"fileName" yaml:"fileName"`
	FileSize          int64    `json:"fileSize" yaml:"fileSize"`
	Strategy          string   `json:"strategy" yaml:"strategy"`
	PrimaryLanguage   string   `json:"primaryLanguage" yaml:"primaryLanguage"`
	RenderingLanguage string   `json:"renderingLanguage" yaml:"renderingLanguage"`
	Languages         []string `json:"languages" yaml:"languages"`
	EngineCalls       int      `json:"engineCalls" yaml:"engineCalls"`
	EngineRequests    int      `json:"engineRequests" yaml:"engineRequests"`
	Fault             string   `json:"fault" yaml:"fault"`
	ElapsedMillis     int64    `json:"elapsedMs" yaml:"elapsedMs"`
	Text              string   `json:"text" yaml:"text"`
}

// HistoryResponse wraps a page of history entries.
type HistoryResponse struct {
	Transcriptions []TranscriptionEntry `json:"transcriptions"`
}
