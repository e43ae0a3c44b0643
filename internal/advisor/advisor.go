// Package advisor produces recommendations from a language model, prompted
// with an industry- or goal-specific template, and falls back to the rule
// engine when no model is configured.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/metrics"
	"github.com/bher20/eimpactmanager/internal/rules"
)

type constError string

func (e constError) Error() string { return string(e) }

const (
	ErrDisabled   = constError("ai recommendations are not configured")
	ErrEmptyReply = constError("model returned no content")
	ErrBadReply   = constError("model reply is not a recommendation list")
)

// Sources of a Response.
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

// Request is a rules request plus the free-form context a model can use.
type Request struct {
	rules.Request
	BusinessName        string   `json:"business_name,omitempty"`
	Challenges          []string `json:"current_challenges,omitempty"`
	PreviousInitiatives []string `json:"previous_initiatives,omitempty"`
	Budget              string   `json:"budget_range,omitempty"`
	Timeline            string   `json:"timeline,omitempty"`
}

// Recommendation is one suggested project. CO2 reduction is in tons per year.
type Recommendation struct {
	ID                    string          `json:"id"`
	Title                 string          `json:"title"`
	Description           string          `json:"description"`
	Category              string          `json:"category"`
	Difficulty            calc.Difficulty `json:"difficulty"`
	EstimatedCostSavings  float64         `json:"estimated_cost_savings"`
	EstimatedCO2Reduction float64         `json:"estimated_co2_reduction"`
	ROIMonths             int             `json:"roi_months"`
	PriorityScore         float64         `json:"priority_score"`
	ImplementationSteps   []string        `json:"implementation_steps,omitempty"`
	Reasoning             string          `json:"reasoning,omitempty"`
}

// Response is a recommendation list with its provenance.
type Response struct {
	Source                string           `json:"source"`
	Template              string           `json:"template,omitempty"`
	Model                 string           `json:"model,omitempty"`
	Recommendations       []Recommendation `json:"recommendations"`
	TotalPotentialSavings float64          `json:"total_potential_savings"`
	TotalCO2ReductionTons float64          `json:"total_co2_reduction"`
	GeneratedAt           time.Time        `json:"generated_at"`
}

// Recommender produces recommendations for a business.
type Recommender interface {
	Recommend(ctx context.Context, req Request) (Response, error)
}

// Status describes the advisor configuration.
type Status struct {
	Enabled   bool   `json:"enabled"`
	Model     string `json:"model,omitempty"`
	Templates int    `json:"templates"`
}

// Advisor asks the model when one is configured and the rule engine
// otherwise.
type Advisor struct {
	cfg     Config
	client  *Client
	prompts *Library
	engine  *rules.Engine
	now     func() time.Time
}

var _ Recommender = (*Advisor)(nil)

// New returns an advisor. engine must not be nil.
func New(cfg Config, engine *rules.Engine) (*Advisor, error) {
	lib, err := LoadLibrary()
	if err != nil {
		return nil, err
	}
	a := &Advisor{cfg: cfg, prompts: lib, engine: engine, now: time.Now}
	if cfg.Enabled() {
		a.client = NewClient(cfg)
	}
	return a, nil
}

// Status reports whether the model is configured.
func (a *Advisor) Status() Status {
	st := Status{Enabled: a.client != nil, Templates: len(a.prompts.templates)}
	if a.client != nil {
		st.Model = a.client.Model()
	}
	return st
}

// TestConnection sends a trivial prompt and returns the model's reply.
func (a *Advisor) TestConnection(ctx context.Context) (string, error) {
	if a.client == nil {
		return "", ErrDisabled
	}
	reply, err := a.client.Complete(ctx, Prompt{
		User:      "Respond with exactly: connection ok",
		MaxTokens: 10,
	}, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Recommend validates req and returns model recommendations, or rule
// recommendations when no model is configured. Model failures are returned,
// not replaced by rules.
func (a *Advisor) Recommend(ctx context.Context, req Request) (Response, error) {
	if err := req.Usage.Validate(); err != nil {
		return Response{}, err
	}
	if a.client == nil {
		res := a.fromRules(req)
		metrics.AdvisorRequestsTotal.WithLabelValues(SourceRules, "success").Inc()
		return res, nil
	}

	res, err := a.fromModel(ctx, req)
	if err != nil {
		metrics.AdvisorRequestsTotal.WithLabelValues(SourceAI, "error").Inc()
		log.Warn().Err(err).Str("template", res.Template).Msg("advisor: model request failed")
		return Response{}, err
	}
	metrics.AdvisorRequestsTotal.WithLabelValues(SourceAI, "success").Inc()
	log.Debug().
		Str("template", res.Template).
		Int("recommendations", len(res.Recommendations)).
		Msg("advisor: model recommendations")
	return res, nil
}

func (a *Advisor) fromModel(ctx context.Context, req Request) (Response, error) {
	tmpl := a.prompts.Select(req)
	res := Response{Source: SourceAI, Template: tmpl.ID, Model: a.client.Model()}
	prompt, err := tmpl.Render(req)
	if err != nil {
		return res, err
	}
	reply, err := a.client.Complete(ctx, prompt, true)
	if err != nil {
		return res, err
	}
	recs, err := ParseReply(reply)
	if err != nil {
		return res, err
	}
	res.Recommendations = recs
	res.GeneratedAt = a.now().UTC()
	totals(&res)
	return res, nil
}

func (a *Advisor) fromRules(req Request) Response {
	out := a.engine.Recommend(req.Request)
	res := Response{
		Source:          SourceRules,
		Recommendations: make([]Recommendation, 0, len(out.Recommendations)),
		GeneratedAt:     a.now().UTC(),
	}
	for _, r := range out.Recommendations {
		res.Recommendations = append(res.Recommendations, Recommendation{
			ID:                    r.ID,
			Title:                 r.Title,
			Description:           r.Description,
			Category:              r.Category,
			Difficulty:            r.Difficulty,
			EstimatedCostSavings:  r.EstimatedCostSavings,
			EstimatedCO2Reduction: r.EstimatedCO2Reduction,
			ROIMonths:             r.ROIMonths,
			PriorityScore:         r.PriorityScore,
		})
	}
	totals(&res)
	return res
}

func totals(res *Response) {
	res.TotalPotentialSavings, res.TotalCO2ReductionTons = 0, 0
	for _, r := range res.Recommendations {
		res.TotalPotentialSavings += r.EstimatedCostSavings
		res.TotalCO2ReductionTons += r.EstimatedCO2Reduction
	}
	res.TotalPotentialSavings = calc.Round(res.TotalPotentialSavings, 2)
	res.TotalCO2ReductionTons = calc.Round(res.TotalCO2ReductionTons, 2)
}

func wrapReply(err error) error {
	return fmt.Errorf("%w: %v", ErrBadReply, err)
}
