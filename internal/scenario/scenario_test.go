package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilepro.local/hunt-gateway/internal/billing"
)

func TestBuiltinsAreValid(t *testing.T) {
	all := Builtins()
	require.Len(t, all, 3)
	ids := []string{all[0].ID, all[1].ID, all[2].ID}
	assert.Equal(t, []string{"h4", "h1", "h2"}, ids)
	for _, s := range all {
		assert.NoError(t, s.Validate(), s.ID)
	}
	assert.Len(t, all[0].AccountData, 6)
	assert.Len(t, all[1].AccountData, 4)
	assert.Equal(t, 138.0, all[2].BaselineTotal())
}

func TestBuiltinsReturnsCopies(t *testing.T) {
	first := Builtins()
	first[2].AccountData[0].MRC = billing.Amount(1)
	assert.Equal(t, billing.Amount(100), Builtins()[2].AccountData[0].MRC)
}

func TestValidateRejectsBadScenarios(t *testing.T) {
	good := Builtins()[2]
	cases := map[string]func(*Scenario){
		"title":   func(s *Scenario) { s.Title = " " },
		"phone":   func(s *Scenario) { s.PhoneNumber = "none" },
		"empty":   func(s *Scenario) { s.AccountData = nil },
		"negative": func(s *Scenario) { s.AccountData[0].EIP = -1 },
	}
	for name, mutate := range cases {
		s := good.Clone()
		mutate(&s)
		assert.ErrorIs(t, s.Validate(), ErrInvalidScenario, name)
	}
}

func TestParseReady(t *testing.T) {
	text := "Great, here it is:\n```json\n" + `{"type":"SCENARIO_READY","title":"Family Upgrade","description":"Two lines, wants a watch.","phoneNumber":"512-555-0199","accountData":[{"ratePlan":"Essentials","mrc":60,"discount":0,"features":0,"eip":20,"devicePromo":0,"autopay":"No"},{"ratePlan":"Essentials (L2)","mrc":"Included","discount":0,"features":0,"eip":0,"devicePromo":0,"autopay":"No"}],"aiInstructions":"Be skeptical."}` + "\n```"

	s, err := ParseReady(text)
	require.NoError(t, err)
	want := Scenario{
		Title:          "Family Upgrade",
		Description:    "Two lines, wants a watch.",
		PhoneNumber:    "512-555-0199",
		AIInstructions: "Be skeptical.",
		IsCustom:       true,
		AccountData: []billing.Line{
			{RatePlan: "Essentials", MRC: billing.Amount(60), EIP: 20},
			{RatePlan: "Essentials (L2)", MRC: billing.Included()},
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("scenario mismatch (-want +got):\n%s", diff)
	}
}

func TestParseReadyWithoutPayload(t *testing.T) {
	_, err := ParseReady("Tell me more about the customer's lines.")
	assert.ErrorIs(t, err, ErrNoPayload)
}

func TestParseReadyRejectsInvalidPayload(t *testing.T) {
	_, err := ParseReady(`{"type":"SCENARIO_READY","title":"No lines","description":"x","phoneNumber":"1","accountData":[]}`)
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = ParseReady(`{"type":"SCENARIO_READY", broken`)
	assert.ErrorIs(t, err, ErrNoPayload)

	_, err = ParseReady(`{"type":"SCENARIO_READY","accountData":[{"mrc":"lots"}]}`)
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

type staticSource struct {
	scenarios []Scenario
	err       error
}

func (s staticSource) ListCustomScenarios(context.Context) ([]Scenario, error) {
	return s.scenarios, s.err
}

func TestCatalogMergesCustomScenarios(t *testing.T) {
	custom := Builtins()[2]
	custom.ID = "c1"
	custom.IsCustom = true
	catalog := NewCatalog(staticSource{scenarios: []Scenario{custom}})

	all, err := catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "c1", all[3].ID)

	got, err := catalog.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.True(t, got.IsCustom)

	_, err = catalog.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogPropagatesSourceErrors(t *testing.T) {
	catalog := NewCatalog(staticSource{err: errors.New("db down")})
	_, err := catalog.List(context.Background())
	assert.Error(t, err)

	all, err := NewCatalog(nil).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
