package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/formfill/internal/crawler/crawlertest"
)

func stepsByField(plan *Plan) map[string]PlanStep {
	out := make(map[string]PlanStep, len(plan.Steps))
	for _, s := range plan.Steps {
		if _, seen := out[s.Field]; !seen {
			out[s.Field] = s
		}
	}
	return out
}

func TestPlanFill(t *testing.T) {
	fm := discover(t, leadPage)

	plan, err := PlanFill(fm, map[string]string{"full_name": "Diya Nair", "email": "", "cv": "x"}, leadPage)
	require.NoError(t, err)
	require.Len(t, plan.Steps, len(fm.Fields))

	steps := stepsByField(plan)
	assert.Equal(t, PlanStep{Field: "full_name", Locator: `[name="full_name"]`, Value: "Diya Nair"}, steps["full_name"])
	assert.Equal(t, PlanStep{Field: "email", Locator: `[name="email"]`}, steps["email"])
	assert.Equal(t, SkipUnfillable, steps["cv"].Skip)
	assert.Equal(t, SkipUnfillable, steps["captcha_answer"].Skip)
	assert.Equal(t, SkipNoValue, steps["message"].Skip)

	assert.True(t, plan.Submit.Found())
	assert.Equal(t, "Send", plan.Submit.Text)
}

func TestPlanFillStaleSnapshot(t *testing.T) {
	fm := discover(t, leadPage)

	plan, err := PlanFill(fm, map[string]string{"full_name": "Diya Nair"}, `<html><body><p>Moved</p></body></html>`)
	require.NoError(t, err)

	steps := stepsByField(plan)
	assert.Equal(t, SkipNotFound, steps["full_name"].Skip)
	assert.Empty(t, steps["full_name"].Locator)
	assert.False(t, plan.Submit.Found())
}

func TestDryRun(t *testing.T) {
	page := crawlertest.New(leadPage)
	fm := discover(t, leadPage)

	plan, err := New(&crawlertest.Opener{Page: page}, nil).DryRun(context.Background(), fm, map[string]string{"email": "a@b.com"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, `[name="email"]`, stepsByField(plan)["email"].Locator)
	assert.Empty(t, page.EventsFor("type"))
	assert.Empty(t, page.EventsFor("click"))
	assert.True(t, page.Closed())
}

func TestDryRunNavigationFailure(t *testing.T) {
	page := crawlertest.New(leadPage)
	page.NavigateErr = errors.New("net::ERR_CONNECTION_REFUSED")

	_, err := New(&crawlertest.Opener{Page: page}, nil).DryRun(context.Background(), discover(t, leadPage), nil, Options{})
	assert.ErrorIs(t, err, ErrNavigationFailed)
	assert.True(t, page.Closed())
}
