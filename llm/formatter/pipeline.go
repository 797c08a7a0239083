package formatter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentscope/llm/observability"
	"github.com/BaSui01/agentscope/llm/tokenizer"
	"github.com/BaSui01/agentscope/types"
)

// EmitFunc converts one group into provider messages. index is the group's
// position before truncation, so index 0 is always the opening group of the
// conversation even when older groups were dropped.
type EmitFunc func(ctx context.Context, st *FormatState, index int, g MessageGroup) error

// Pipeline runs the shared part of every provider formatter: grouping, tool
// validation, token budget truncation, tracing and metrics.
type Pipeline struct {
	Provider string
	// Tokenizer and MaxTokens enable truncation when both are set.
	Tokenizer tokenizer.Tokenizer
	MaxTokens int
	Recorder  Recorder
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Run groups msgs and calls emit for every group in order with a fresh
// FormatState. Tool sequence messages are validated before any group is
// emitted.
func (p *Pipeline) Run(ctx context.Context, msgs []types.Message, emit EmitFunc) (err error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := p.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.Default()
	}

	start := time.Now()
	ctx, span := metrics.StartFormat(ctx, p.Provider, len(msgs))
	st := NewFormatState()
	res := observability.FormatResult{Messages: len(msgs), Groups: make(map[string]int)}

	defer func() {
		res.Duration = time.Since(start)
		res.Err = err
		res.MediaDegraded = st.DegradedTotal()
		metrics.EndFormat(ctx, span, p.Provider, res)

		recorder.ObserveFormat(p.Provider, res.Duration, len(msgs))
		for _, kind := range st.degradedKinds() {
			for i := 0; i < st.degraded[kind]; i++ {
				recorder.IncMediaDegraded(p.Provider, string(kind))
			}
		}

		groupCount := 0
		for _, n := range res.Groups {
			groupCount += n
		}
		fields := []zap.Field{
			zap.String("provider", p.Provider),
			zap.Int("messages", len(msgs)),
			zap.Int("groups", groupCount),
			zap.Int("truncated_groups", res.TruncatedGroups),
			zap.Int("media_degraded", res.MediaDegraded),
			zap.Duration("duration", res.Duration),
		}
		if traceID, ok := types.TraceID(ctx); ok {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if err != nil {
			logger.Warn("format failed", append(fields, zap.Error(err))...)
			return
		}
		logger.Debug("formatted messages", fields...)
	}()

	groups := Group(msgs)
	for _, g := range groups {
		if g.Type != GroupToolSequence {
			continue
		}
		for _, msg := range g.Messages {
			if err := msg.Validate(); err != nil {
				return err
			}
		}
	}

	var drop []bool
	if p.Tokenizer != nil && p.MaxTokens > 0 {
		var dropped int
		drop, dropped, err = dropOldest(groups, p.Tokenizer, p.MaxTokens)
		if err != nil {
			return err
		}
		if dropped > 0 {
			res.TruncatedGroups = dropped
			recorder.AddTruncatedGroups(p.Provider, dropped)
			logger.Info("dropped oldest groups to fit token budget",
				zap.Int("dropped", dropped),
				zap.Int("budget", p.MaxTokens))
		}
	}

	for i, g := range groups {
		if drop != nil && drop[i] {
			continue
		}
		res.Groups[g.Type.String()]++
		recorder.IncGroup(p.Provider, g.Type.String())
		if err := emit(ctx, st, i, g); err != nil {
			return err
		}
	}
	return nil
}
