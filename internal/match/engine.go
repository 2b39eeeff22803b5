package match

import (
	"fmt"

	"github.com/rs/zerolog"

	"reunite.city/matcher/internal/scoring"
)

// Engine is the match resolution core: candidate generation, lifecycle
// transitions and bulk review all go through one Engine value. It holds no
// mutable state of its own, so a single value serves concurrent callers;
// cross-instance safety comes from the store's atomic upsert and
// compare-and-swap.
type Engine struct {
	store  Store
	sink   EventSink
	params scoring.Params
	text   scoring.TextScorer
	visual scoring.VisualScorer
	logger zerolog.Logger
}

// Options tunes an Engine. Zero fields fall back to defaults: the built-in
// lexical and perceptual-hash scorers, default params and a log-backed sink.
type Options struct {
	Params scoring.Params
	Sink   EventSink
	Text   scoring.TextScorer
	Visual scoring.VisualScorer
}

func NewEngine(store Store, logger zerolog.Logger, opts Options) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	params := opts.Params
	if params == (scoring.Params{}) {
		params = scoring.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring params: %w", err)
	}

	sink := opts.Sink
	if sink == nil {
		sink = NewLogSink(logger)
	}

	text := opts.Text
	if text == nil {
		text = scoring.NewLexicalScorer()
	}
	visual := opts.Visual
	if visual == nil {
		visual = scoring.NewPerceptualHashScorer()
	}

	return &Engine{
		store:  store,
		sink:   sink,
		params: params,
		text:   text,
		visual: visual,
		logger: logger,
	}, nil
}

func (e *Engine) Params() scoring.Params {
	return e.params
}
