package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/eleven-am/voice-relay/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	sessionTTL = 24 * time.Hour
	metricsTTL = 7 * 24 * time.Hour
)

type Store struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient, now: time.Now}
}

// Open writes an active record and counts the connection in the current hour.
func (s *Store) Open(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = shared.NewID("conn_")
	}
	rec.Status = StatusActive
	if rec.StartedAt.IsZero() {
		rec.StartedAt = s.now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	key := MetricsRedisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, rec.RedisKey(), data, sessionTTL)
	pipe.HIncrBy(ctx, key, MetricConnections, 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.redis.Get(ctx, RecordRedisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close marks the record ended and stores the connection's final counts.
func (s *Store) Close(ctx context.Context, id string, status Status, reason string, stats Stats) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	ended := s.now()
	rec.Status = status
	rec.CloseReason = reason
	rec.EndedAt = &ended
	rec.Stats = stats

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, rec.RedisKey(), data, sessionTTL).Err()
}

func (s *Store) IncrementMetric(ctx context.Context, field string, value int64) error {
	if value == 0 {
		return nil
	}
	now := s.now().UTC()
	key := MetricsRedisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, field, value)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordStats folds a closed connection's counters into the current hour.
func (s *Store) RecordStats(ctx context.Context, stats Stats) error {
	now := s.now().UTC()
	key := MetricsRedisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	for field, v := range map[string]int64{
		MetricClientFrames:       stats.ClientFrames,
		MetricSilenceFrames:      stats.SilenceFrames,
		MetricTranscriptsPartial: stats.TranscriptsPartial,
		MetricTranscriptsFinal:   stats.TranscriptsFinal,
	} {
		if v > 0 {
			pipe.HIncrBy(ctx, key, field, v)
		}
	}
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// GetMetrics returns the non-empty hourly buckets for the last hours hours,
// newest first.
func (s *Store) GetMetrics(ctx context.Context, hours int) ([]*Metrics, error) {
	now := s.now().UTC()
	var metrics []*Metrics

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		key := MetricsRedisKey(t.Format("2006-01-02"), t.Hour())

		data, err := s.redis.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		m := &Metrics{
			Date: t.Format("2006-01-02"),
			Hour: t.Hour(),
		}
		for field, dst := range map[string]*int64{
			MetricConnections:        &m.Connections,
			MetricTranscriptsPartial: &m.TranscriptsPartial,
			MetricTranscriptsFinal:   &m.TranscriptsFinal,
			MetricSilenceFrames:      &m.SilenceFrames,
			MetricClientFrames:       &m.ClientFrames,
			MetricCompletions:        &m.Completions,
			MetricCompletionErrors:   &m.CompletionErrors,
			MetricStartFailures:      &m.StartFailures,
			MetricStreamFailures:     &m.StreamFailures,
		} {
			if v, ok := data[field]; ok {
				*dst, _ = strconv.ParseInt(v, 10, 64)
			}
		}

		metrics = append(metrics, m)
	}

	return metrics, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
