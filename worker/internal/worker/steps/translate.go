package steps

import (
	"context"
	"fmt"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// translateBatchSize bounds how many segment texts go into one service call.
const translateBatchSize = 20

// TranslateProcessor translates segment texts into the target language.
type TranslateProcessor struct {
	deps Deps
}

func NewTranslateProcessor(deps Deps) *TranslateProcessor {
	return &TranslateProcessor{deps: deps}
}

func (p *TranslateProcessor) Name() string {
	return "translate"
}

func (p *TranslateProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	var payload models.TranslatePayload
	if err := parsePayload(msg, &payload); err != nil {
		return err
	}

	segments, err := p.deps.Segments.Load(ctx, jobID)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("no segments to translate")
	}

	for start := 0; start < len(segments); start += translateBatchSize {
		end := min(start+translateBatchSize, len(segments))
		batch := segments[start:end]

		texts := make([]string, len(batch))
		for i, seg := range batch {
			texts[i] = seg.Text
		}

		translated, err := p.deps.Translate.Translate(ctx, texts, payload.SourceLanguage, payload.TargetLanguage)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}

		for i, text := range translated {
			if err := p.deps.Segments.UpdateTranslation(ctx, jobID, batch[i].Idx, text); err != nil {
				return fmt.Errorf("failed to store translation for segment %d: %w", batch[i].Idx, err)
			}
		}
	}

	p.deps.Logger.Info("Translation completed",
		zap.String("job_id", jobID.String()),
		zap.Int("segments", len(segments)),
		zap.String("target_language", payload.TargetLanguage),
	)

	next, err := nextMessage(jobID, "synthesize", msg.TraceID, models.SynthesizePayload{
		TargetLanguage: payload.TargetLanguage,
		BackgroundKey:  payload.BackgroundKey,
	})
	if err != nil {
		return err
	}

	if err := p.deps.Publisher.Publish(ctx, queue.RoutingKey("synthesize"), next); err != nil {
		return fmt.Errorf("failed to publish synthesize step: %w", err)
	}

	return nil
}
