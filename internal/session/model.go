package session

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
	StatusError  Status = "error"
)

// Counter fields kept in each hourly metrics hash.
const (
	MetricConnections        = "connections"
	MetricTranscriptsPartial = "transcripts_partial"
	MetricTranscriptsFinal   = "transcripts_final"
	MetricSilenceFrames      = "silence_frames"
	MetricClientFrames       = "client_frames"
	MetricCompletions        = "completions"
	MetricCompletionErrors   = "completion_errors"
	MetricStartFailures      = "start_failures"
	MetricStreamFailures     = "stream_failures"
)

type Stats struct {
	ClientFrames       int64 `json:"client_frames"`
	SilenceFrames      int64 `json:"silence_frames"`
	TranscriptsPartial int64 `json:"transcripts_partial"`
	TranscriptsFinal   int64 `json:"transcripts_final"`
	Completions        int64 `json:"completions"`
}

type Record struct {
	ID          string     `json:"id"`
	RemoteAddr  string     `json:"remote_addr"`
	Backend     string     `json:"backend"`
	Status      Status     `json:"status"`
	CloseReason string     `json:"close_reason,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Stats       Stats      `json:"stats"`
}

func (r *Record) RedisKey() string {
	return RecordRedisKey(r.ID)
}

func RecordRedisKey(id string) string {
	return "relay:session:" + id
}

type Metrics struct {
	Date               string `json:"date"`
	Hour               int    `json:"hour"`
	Connections        int64  `json:"connections"`
	TranscriptsPartial int64  `json:"transcripts_partial"`
	TranscriptsFinal   int64  `json:"transcripts_final"`
	SilenceFrames      int64  `json:"silence_frames"`
	ClientFrames       int64  `json:"client_frames"`
	Completions        int64  `json:"completions"`
	CompletionErrors   int64  `json:"completion_errors"`
	StartFailures      int64  `json:"start_failures"`
	StreamFailures     int64  `json:"stream_failures"`
}

func MetricsRedisKey(date string, hour int) string {
	return "relay:metrics:" + date + ":" + strconv.Itoa(hour)
}
