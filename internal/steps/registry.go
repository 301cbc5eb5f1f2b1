package steps

import (
	"context"
	"regexp"

	"github.com/cucumber/godog"
)

// Step is one catalog entry.
type Step struct {
	Pattern  string
	Examples []string
	Handler  interface{}
}

// Regexp compiles the step pattern.
func (st Step) Regexp() *regexp.Regexp { return regexp.MustCompile(st.Pattern) }

// q matches one double-quoted argument.
const q = `"([^"]*)"`

// Catalog returns every step the suite understands.
func (s *Suite) Catalog() []Step {
	var all []Step
	all = append(all, s.commonSteps()...)
	all = append(all, s.terminalSteps()...)
	all = append(all, s.preferencesSteps()...)
	all = append(all, s.geometrySteps()...)
	return all
}

// Match returns the catalog entry matching text and its arguments.
func (s *Suite) Match(text string) (Step, []string, bool) {
	for _, st := range s.Catalog() {
		if m := st.Regexp().FindStringSubmatch(text); m != nil {
			return st, m[1:], true
		}
	}
	return Step{}, nil, false
}

// InitializeTestSuite hooks BeforeAll and the final report flush into a
// godog run. A BeforeAll error means the run was configured to abort.
func (s *Suite) InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		if err := s.BeforeAll(); err != nil {
			s.logger.Error("aborting run", "error", err)
			if s.opts.Exit != nil {
				s.opts.Exit(1)
			}
		}
	})
	ctx.AfterSuite(func() {
		if err := s.Flush(); err != nil {
			s.logger.Error("could not write report", "error", err)
		}
	})
}

// InitializeScenario registers the hooks and every catalog step.
func (s *Suite) InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tags := make([]string, 0, len(sc.Tags))
		for _, t := range sc.Tags {
			tags = append(tags, t.Name)
		}
		return ctx, s.BeforeScenario(ctx, sc.Name, tags)
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		s.AfterScenario(ctx, err)
		return ctx, nil
	})

	ctx.StepContext().Before(func(ctx context.Context, _ *godog.Step) (context.Context, error) {
		s.stepStart = s.opts.Now()
		return ctx, nil
	})
	ctx.StepContext().After(func(ctx context.Context, st *godog.Step, status godog.StepResultStatus, err error) (context.Context, error) {
		if status == godog.StepSkipped || status == godog.StepUndefined {
			return ctx, nil
		}
		d := s.opts.Now().Sub(s.stepStart)
		s.metrics.ObserveStep(d, err)
		if s.rec != nil {
			s.rec.AddStep(st.Text, d, err)
		}
		return ctx, nil
	})

	for _, st := range s.Catalog() {
		ctx.Step(st.Pattern, st.Handler)
	}
}
