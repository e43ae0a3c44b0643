package notification

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog/log"

	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/goals"
	"github.com/bher20/eimpactmanager/internal/tracking"
)

// ImplementationCompleted emails the owner of impl that it was completed.
func (s *Service) ImplementationCompleted(ctx context.Context, impl tracking.Implementation) {
	user, err := s.storage.GetUser(ctx, impl.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user", impl.UserID).Msg("notification: owner lookup failed")
		return
	}
	s.notify(ctx, user, ImplementationCompletedMessage(impl))
}

// GoalAchieved emails the owner of g that it reached its target.
func (s *Service) GoalAchieved(ctx context.Context, g goals.Goal) {
	user, err := s.storage.GetUser(ctx, g.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user", g.UserID).Msg("notification: owner lookup failed")
		return
	}
	s.notify(ctx, user, GoalAchievedMessage(g))
}

func ImplementationCompletedMessage(impl tracking.Implementation) Message {
	title := html.EscapeString(impl.Title)
	savings := calc.FormatCurrency(impl.EstimatedAnnualSavings)
	co2 := calc.FormatNumber(impl.EstimatedCO2Reduction, 2)

	text := fmt.Sprintf("%s is complete. Estimated impact: %s saved and %s tons of CO2 avoided per year.",
		impl.Title, savings, co2)
	body := fmt.Sprintf("<h2>%s is complete</h2>"+
		"<p>Estimated annual savings: <strong>%s</strong></p>"+
		"<p>Estimated CO<sub>2</sub> reduction: <strong>%s tons/year</strong></p>",
		title, savings, co2)

	return Message{
		Subject: "Implementation completed: " + impl.Title,
		HTML:    body,
		Text:    text,
	}
}

func GoalAchievedMessage(g goals.Goal) Message {
	target := calc.FormatNumber(g.TargetValue, 2) + " " + g.Unit
	text := fmt.Sprintf("Goal achieved: %s reached its target of %s.", g.Title, target)
	body := fmt.Sprintf("<h2>Goal achieved</h2><p><strong>%s</strong> reached its target of %s.</p>",
		html.EscapeString(g.Title), html.EscapeString(target))

	return Message{
		Subject: "Goal achieved: " + g.Title,
		HTML:    body,
		Text:    text,
	}
}
