package store

// Message kinds pushed by the transcription backend over the realtime channel.
const (
	KindChunksInfo          = "chunks_info"
	KindTaskCreated         = "task_created"
	KindProgressUpdate      = "progress_update"
	KindStatusUpdate        = "status_update"
	KindTranscriptionResult = "transcription_result"
	KindError               = "error"
	KindInfo                = "info"
	KindWarning             = "warning"
)

type Progress struct {
	TotalChunks      int     `json:"total_chunks"`
	ProcessedChunks  int     `json:"processed_chunks"`
	EstimatedTime    float64 `json:"estimated_time"`
	AverageChunkTime float64 `json:"average_chunk_time"`
}

type Result struct {
	Text           string   `json:"text"`
	Confidence     *float64 `json:"confidence"`
	ProcessingTime float64  `json:"processing_time"`
}

// TranscriptionResult is the payload of a transcription_result message.
type TranscriptionResult struct {
	Type     string    `json:"type"`
	TaskID   string    `json:"task_id"`
	Status   string    `json:"status"`
	Result   Result    `json:"result"`
	Progress *Progress `json:"progress,omitempty"`
}
