package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/khanglvm/study-advisor/internal/llm"
	"github.com/khanglvm/study-advisor/internal/prompts"
	"github.com/khanglvm/study-advisor/internal/stage"
)

// Relay streams backend generations to emitters.
type Relay struct {
	gen    llm.Generator
	logger *zap.Logger
}

// New creates a relay over gen.
func New(gen llm.Generator, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{gen: gen, logger: logger}
}

// StreamStage runs one stage generation. Tokens are emitted as
// {stage, token} and completion as {stage, status: done, full_response}.
// When history is non-nil it is replaced by the request messages plus the
// assistant answer. On failure {stage, error} is emitted and no text is
// returned.
func (r *Relay) StreamStage(ctx context.Context, id stage.ID, req llm.ChatRequest, history *History, emitter Emitter) (string, error) {
	out := NewDetachable(emitter)
	key := id.Key()
	log := r.logger.With(zap.String("stage", key))

	text, err := r.consume(ctx, req, log, func(token string) error {
		return out.Emit(Event{Stage: key, Token: token})
	})
	if err != nil {
		log.Warn("Stage generation failed", zap.Error(err))
		r.emit(out, log, Event{Stage: key, Error: err.Error()})
		return "", err
	}

	if history != nil {
		history.Replace(append(req.Clone().Messages, llm.Message{Role: llm.RoleAssistant, Content: text}))
	}
	r.emit(out, log, Event{Stage: key, Status: StatusDone, FullResponse: text})
	return text, nil
}

// Chat sends message as a follow-up turn. The user turn is appended to
// history before the call. If the call fails, history is restored to the
// messages it held before, including any the append trimmed away.
func (r *Relay) Chat(ctx context.Context, history *History, model, message string, emitter Emitter) (string, error) {
	out := NewDetachable(emitter)
	log := r.logger.With(zap.String("model", model))

	before := history.Messages()
	history.Append(llm.Message{Role: llm.RoleUser, Content: message})
	req := llm.ChatRequest{Model: model, Messages: history.Messages(), Options: prompts.ChatOptions}

	text, err := r.consume(ctx, req, log, func(token string) error {
		return out.Emit(Event{Token: token})
	})
	if err != nil {
		history.Replace(before)
		log.Warn("Chat generation failed", zap.Error(err))
		r.emit(out, log, Event{Error: fmt.Sprintf("failed to chat: %v", err)})
		return "", err
	}

	history.Append(llm.Message{Role: llm.RoleAssistant, Content: text})
	r.emit(out, log, Event{Status: StatusDone})
	return text, nil
}

// consume pulls frames until the done frame. Malformed frames are skipped.
// Emit failures detach the client but frames are still read to the end.
func (r *Relay) consume(ctx context.Context, req llm.ChatRequest, log *zap.Logger, emit func(string) error) (string, error) {
	stream, err := r.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var text strings.Builder
	detached := false
	for {
		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return text.String(), nil
		}
		if err != nil {
			if llm.IsMalformedFrame(err) {
				log.Warn("Skipping malformed frame", zap.Error(err))
				continue
			}
			return "", err
		}

		if frame.Token != "" {
			text.WriteString(frame.Token)
			if !detached {
				if err := emit(frame.Token); err != nil {
					detached = true
					log.Warn("Client detached, draining stream", zap.Error(err))
				}
			}
		}
		if frame.Done {
			return text.String(), nil
		}
	}
}

func (r *Relay) emit(out *Detachable, log *zap.Logger, e Event) {
	if err := out.Emit(e); err != nil {
		log.Warn("Client detached", zap.Error(err))
	}
}
