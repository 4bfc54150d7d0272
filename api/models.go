package api

import "time"

// TranscriptionResult is the backend answer to an audio upload.
type TranscriptionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type TemplateInput struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
}

// TemplateUpdate only sends the members that are set.
type TemplateUpdate struct {
	Name        *string `json:"name,omitempty"`
	Content     *string `json:"content,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ProcessRequest struct {
	TemplateID    string `json:"template_id"`
	Transcription string `json:"transcription"`
}

// ProcessStatus is returned when a processing run starts and every time it is polled.
type ProcessStatus struct {
	ProcessID     string         `json:"process_id"`
	Status        string         `json:"status"`
	ProcessedText string         `json:"processed_text,omitempty"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Done reports whether the run reached a final status.
func (p ProcessStatus) Done() bool {
	switch p.Status {
	case "success", "completed", "failed", "error":
		return true
	default:
		return false
	}
}
