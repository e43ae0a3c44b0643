package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/rules"
	"github.com/bher20/eimpactmanager/internal/usage"
)

type estimateOutput struct {
	Region         string                     `json:"region"`
	Recommendation calc.RecommendationMetrics `json:"recommendation"`
	Solar          *calc.SolarEstimate        `json:"solar,omitempty"`
}

func newEstimateCmd(a *app) *cobra.Command {
	var (
		profile    calc.BusinessProfile
		u          calc.EnergyUsage
		project    calc.ProjectInput
		difficulty string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Evaluate one project for a business",
		Example: `  eimpactmanager estimate --location "Austin, TX" --kwh 5000 --therms 200 \
    --savings-pct 0.25 --cost 15000 --category hvac --difficulty medium --sqft 20000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := calc.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}
			project.Difficulty = d
			if err := u.Validate(); err != nil {
				return err
			}
			if project.SavingsPercent < 0 || project.SavingsPercent > 1 {
				return errors.New("--savings-pct must be a fraction between 0 and 1")
			}
			if project.ImplementationCost < 0 || profile.FacilitySqft < 0 {
				return errors.New("--cost and --sqft must not be negative")
			}

			reg, err := a.registry()
			if err != nil {
				return err
			}
			c := calc.New(reg)
			region, _ := c.Region(profile.Location)

			out := estimateOutput{
				Region:         region,
				Recommendation: c.Recommend(project, profile, u),
			}
			if profile.FacilitySqft > 0 {
				solar := c.Solar(profile.FacilitySqft, calc.DefaultRoofUsablePct, profile.Location)
				out.Solar = &solar
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&profile.Location, "location", "", "free-text location, e.g. \"Los Angeles, California\"")
	f.StringVar(&profile.Industry, "industry", "", "industry label")
	f.Float64Var(&profile.FacilitySqft, "sqft", 0, "facility floor area in square feet")
	f.Float64Var(&u.MonthlyKWh, "kwh", 0, "monthly electricity use in kWh")
	f.Float64Var(&u.MonthlyTherms, "therms", 0, "monthly gas use in therms")
	f.Float64Var(&project.SavingsPercent, "savings-pct", 0.2, "expected energy savings as a fraction")
	f.Float64Var(&project.ImplementationCost, "cost", 0, "implementation cost in dollars")
	f.StringVar(&project.Category, "category", "energy_efficiency", "project category used for incentives")
	f.StringVar(&project.Title, "title", "Proposed project", "project title")
	f.StringVar(&difficulty, "difficulty", "medium", "easy, medium or hard")
	return cmd
}

func newRecommendCmd(a *app) *cobra.Command {
	var (
		req         rules.Request
		withMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank the built-in recommendations for a business",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := req.Usage.Validate(); err != nil {
				return err
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}
			opts := []rules.Option{rules.WithLimit(a.cfg.RecommendationLimit)}
			if withMetrics {
				opts = append(opts, rules.WithMetrics())
			}
			engine := rules.NewEngine(calc.New(reg), opts...)
			return printJSON(cmd.OutOrStdout(), engine.Recommend(req))
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Profile.Industry, "industry", "", "industry label")
	f.StringVar(&req.Profile.CompanySize, "size", "", "company size, e.g. \"50-200 employees\"")
	f.StringVar(&req.Profile.Location, "location", "", "free-text location")
	f.Float64Var(&req.Usage.MonthlyKWh, "kwh", 0, "monthly electricity use in kWh")
	f.Float64Var(&req.Usage.MonthlyTherms, "therms", 0, "monthly gas use in therms")
	f.StringSliceVar(&req.Goals, "goal", nil, "sustainability goal (repeatable)")
	f.BoolVar(&withMetrics, "metrics", false, "attach the full evaluation to each recommendation")
	return cmd
}

func newImportBillCmd(*app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-bill <file>",
		Short: "Read monthly usage from a utility bill (PDF or text)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bill, err := usage.ParseFile(args[0])
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), bill)
		},
	}
}
