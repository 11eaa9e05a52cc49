// Package generator turns normalized activity plus preferences into standup
// report text. It prefers the configured LLM and degrades to a deterministic
// template when the LLM is absent or fails.
package generator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/standuphq/standup-engine/internal/llm"
	"github.com/standuphq/standup-engine/internal/model"
)

// Result is one generated report plus its provenance.
type Result struct {
	Content  string
	Metadata model.GenerationMetadata
}

// Pipeline generates standup content. A nil llm client is a supported
// configuration: every report then comes from the deterministic template with
// source "basic".
type Pipeline struct {
	llm         llm.Client
	model       string
	temperature float64
	unitCost    float64
	log         zerolog.Logger
	now         func() time.Time

	// rng backs the fallback's bullet selection. Generate runs once per
	// inbound request, so draws serialize through mu.
	mu  sync.Mutex
	rng *rand.Rand
}

// Option customizes a Pipeline; used by tests to pin randomness and time.
type Option func(*Pipeline)

// WithRand replaces the random source driving generic fallback bullets.
func WithRand(rng *rand.Rand) Option { return func(p *Pipeline) { p.rng = rng } }

// WithClock replaces the pipeline's clock.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New constructs a Pipeline. client may be nil when no LLM is configured.
// unitCost is the dollar cost per 1000 tokens for the configured model.
func New(client llm.Client, modelName string, temperature, unitCost float64, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:         client,
		model:       modelName,
		temperature: temperature,
		unitCost:    unitCost,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate produces report content for the activity and preferences. It never
// fails: LLM errors and empty completions degrade to the fallback template
// with source "fallback"; with no LLM configured the source is "basic".
func (p *Pipeline) Generate(ctx context.Context, activity *model.Activity, prefs model.Preferences, date model.Day, username string) Result {
	if p.llm == nil {
		return Result{
			Content: p.fallback(activity, date, username),
			Metadata: model.GenerationMetadata{
				Source:      model.SourceBasic,
				GeneratedAt: p.now().UTC(),
			},
		}
	}

	system, user := buildPrompt(activity, prefs, date)
	comp, err := p.llm.Complete(ctx, system, user, maxTokensFor(prefs.Length), p.temperature)
	if err != nil || comp == nil || comp.Text == "" {
		if err != nil {
			p.log.Warn().Err(err).Str("date", string(date)).Msg("llm generation failed; using fallback template")
		} else {
			p.log.Warn().Str("date", string(date)).Msg("llm returned empty content; using fallback template")
		}
		return Result{
			Content: p.fallback(activity, date, username),
			Metadata: model.GenerationMetadata{
				Source:      model.SourceFallback,
				GeneratedAt: p.now().UTC(),
			},
		}
	}

	return Result{
		Content: comp.Text,
		Metadata: model.GenerationMetadata{
			Source:      model.SourceLLM,
			Model:       p.model,
			TokensUsed:  comp.TokensUsed,
			Cost:        float64(comp.TokensUsed) / 1000 * p.unitCost,
			GeneratedAt: p.now().UTC(),
		},
	}
}

// fallback draws the bullet selections under the lock; math/rand.Rand is not
// safe for the concurrent Generate calls a shared Pipeline serves.
func (p *Pipeline) fallback(activity *model.Activity, date model.Day, username string) string {
	p.mu.Lock()
	pairIdx := p.rng.Intn(len(genericBullets))
	blockerIdx := p.rng.Intn(len(blockerPhrases))
	p.mu.Unlock()
	return renderFallback(activity, date, username, pairIdx, blockerIdx, p.now().UTC())
}
