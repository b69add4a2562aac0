package transcription

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"
	"github.com/eleven-am/voice-relay/internal/audio"
)

type TranscribeAPI interface {
	StartStreamTranscription(ctx context.Context, params *transcribestreaming.StartStreamTranscriptionInput, optFns ...func(*transcribestreaming.Options)) (*transcribestreaming.StartStreamTranscriptionOutput, error)
}

// AWSBackend streams to Amazon Transcribe.
type AWSBackend struct {
	client    TranscribeAPI
	language  types.LanguageCode
	stability types.PartialResultsStability
}

func NewAWSBackend(client TranscribeAPI, cfg Config) *AWSBackend {
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	return &AWSBackend{
		client:    client,
		language:  types.LanguageCode(language),
		stability: types.PartialResultsStability(cfg.PartialStability),
	}
}

func (b *AWSBackend) Name() string {
	return "aws"
}

func (b *AWSBackend) input() *transcribestreaming.StartStreamTranscriptionInput {
	in := &transcribestreaming.StartStreamTranscriptionInput{
		LanguageCode:         b.language,
		MediaEncoding:        types.MediaEncodingPcm,
		MediaSampleRateHertz: aws.Int32(audio.SampleRate),
	}
	if b.stability != "" {
		in.EnablePartialResultsStabilization = true
		in.PartialResultsStability = b.stability
	}
	return in
}

func (b *AWSBackend) Open(ctx context.Context) (Stream, error) {
	out, err := b.client.StartStreamTranscription(ctx, b.input())
	if err != nil {
		return nil, fmt.Errorf("start stream transcription: %w", err)
	}

	es := out.GetStream()
	return &awsStream{
		events:    es,
		closeSend: es.Writer.Close,
	}, nil
}

type transcriptEventStream interface {
	Send(ctx context.Context, event types.AudioStream) error
	Events() <-chan types.TranscriptResultStream
	Close() error
	Err() error
}

type awsStream struct {
	events    transcriptEventStream
	closeSend func() error
	pending   []Hypothesis
	closeOnce sync.Once
}

func (s *awsStream) Send(ctx context.Context, pcm []byte) error {
	return s.events.Send(ctx, &types.AudioStreamMemberAudioEvent{
		Value: types.AudioEvent{AudioChunk: pcm},
	})
}

func (s *awsStream) CloseSend() error {
	return s.closeSend()
}

func (s *awsStream) Recv(ctx context.Context) (Hypothesis, error) {
	for len(s.pending) == 0 {
		select {
		case <-ctx.Done():
			return Hypothesis{}, ctx.Err()
		case evt, ok := <-s.events.Events():
			if !ok {
				if err := s.events.Err(); err != nil {
					return Hypothesis{}, err
				}
				return Hypothesis{}, io.EOF
			}
			te, ok := evt.(*types.TranscriptResultStreamMemberTranscriptEvent)
			if !ok || te.Value.Transcript == nil {
				continue
			}
			for _, r := range te.Value.Transcript.Results {
				s.pending = append(s.pending, resultToHypothesis(r))
			}
		}
	}

	h := s.pending[0]
	s.pending = s.pending[1:]
	return h, nil
}

func (s *awsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.events.Close()
	})
	return err
}

func resultToHypothesis(r types.Result) Hypothesis {
	alts := make([]string, 0, len(r.Alternatives))
	for _, a := range r.Alternatives {
		alts = append(alts, aws.ToString(a.Transcript))
	}
	return Hypothesis{
		Alternatives: alts,
		IsPartial:    r.IsPartial,
	}
}
