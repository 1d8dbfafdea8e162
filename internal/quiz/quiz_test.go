package quiz

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilepro.local/hunt-gateway/internal/roster"
)

func TestSeedQuestionsAreValid(t *testing.T) {
	for _, q := range SeedQuestions() {
		assert.NoError(t, q.Validate(), q.ID)
	}
}

func TestDrawLimitsAndKeepsMembers(t *testing.T) {
	bank := make([]Question, 0, 15)
	for i := 0; i < 15; i++ {
		bank = append(bank, Question{ID: string(rune('a' + i)), Text: "x", Options: []string{"1", "2"}})
	}
	rng := rand.New(rand.NewPCG(1, 2))

	drawn := Draw(rng, bank, 0)
	require.Len(t, drawn, DefaultSize)
	seen := map[string]bool{}
	for _, q := range drawn {
		assert.False(t, seen[q.ID], "duplicate %s", q.ID)
		seen[q.ID] = true
	}

	small := Draw(nil, SeedQuestions(), 10)
	assert.Len(t, small, 3)
	assert.Equal(t, "q1", SeedQuestions()[0].ID)
}

func TestScore(t *testing.T) {
	score, total, err := Score(SeedQuestions(), []Answer{
		{QuestionID: "q1", Choice: 2},
		{QuestionID: "q2", Choice: 0},
		{QuestionID: "q3", Choice: -1},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, score)
	assert.Equal(t, 3, total)

	_, _, err = Score(SeedQuestions(), []Answer{{QuestionID: "q9"}})
	assert.ErrorIs(t, err, ErrUnknownQuestion)
}

func TestScoreRejectsRepeatedAnswers(t *testing.T) {
	bank := SeedQuestions()[:2]
	answers := make([]Answer, 10)
	for i := range answers {
		answers[i] = Answer{QuestionID: bank[0].ID, Choice: bank[0].CorrectIndex}
	}
	score, total, err := Score(bank, answers)
	require.ErrorIs(t, err, ErrDuplicateAnswer)
	assert.Zero(t, score)
	assert.Zero(t, total)

	score, total, err = Score(bank, []Answer{
		{QuestionID: bank[0].ID, Choice: bank[0].CorrectIndex},
		{QuestionID: bank[1].ID, Choice: bank[1].CorrectIndex},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, score)
	assert.Equal(t, 2, total)
}

func TestValidateRejectsBadQuestions(t *testing.T) {
	assert.Error(t, Question{Text: "", Options: []string{"a", "b"}}.Validate())
	assert.Error(t, Question{Text: "x", Options: []string{"a"}}.Validate())
	assert.Error(t, Question{Text: "x", Options: []string{"a", "b"}, CorrectIndex: 2}.Validate())
	assert.Error(t, Question{Text: "x", Options: []string{"a", " "}}.Validate())
}

func TestNewResultFallsBackToUnknown(t *testing.T) {
	dir := roster.NewDirectory(roster.SeedDistricts(), roster.SeedStores())
	at := time.UnixMilli(1700000000000)

	r := NewResult(roster.User{ID: "u1", Name: "Ana", StoreID: "s_west_1", DistrictID: "d_west"}, dir, 2, 3, at)
	assert.Equal(t, "Stephenville", r.StoreName)
	assert.Equal(t, "DFW West", r.DistrictName)
	assert.Equal(t, int64(1700000000000), r.Timestamp)
	assert.Equal(t, 67, r.Percent())

	rd := NewResult(roster.User{ID: "u_rd_1", Role: roster.RoleRD}, dir, 0, 0, at)
	assert.Equal(t, roster.UnknownName, rd.StoreName)
	assert.Equal(t, 0, rd.Percent())
}

func TestPublicHidesAnswer(t *testing.T) {
	q := SeedQuestions()[0]
	pub := q.Public()
	assert.Equal(t, q.Options, pub.Options)
	assert.Equal(t, q.ID, pub.ID)
}
