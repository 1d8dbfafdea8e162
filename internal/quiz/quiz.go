// Package quiz draws knowledge-check questions and scores submissions.
package quiz

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"mobilepro.local/hunt-gateway/internal/roster"
)

// DefaultSize is how many questions a drawn quiz holds at most.
const DefaultSize = 10

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrDuplicateAnswer = errors.New("question answered more than once")
)

type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question needs at least two options")
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("correct index %d out of range", q.CorrectIndex)
	}
	return nil
}

// PublicQuestion is a question as shown to a trainee, without its answer.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Options: append([]string(nil), q.Options...)}
}

func SeedQuestions() []Question {
	return []Question{
		{
			ID:           "q1",
			Text:         "What is the standard commission for a Go5G Plus line activation?",
			Options:      []string{"$10", "$20", "$35", "$40"},
			CorrectIndex: 2,
		},
		{
			ID:           "q2",
			Text:         "Which accessory bundle provides the highest payout multiplier?",
			Options:      []string{"Power & Case", "Protection & Power", "3+ Accessories", "Audio & Watch"},
			CorrectIndex: 2,
		},
		{
			ID:           "q3",
			Text:         "What is the maximum AutoPay discount per line on a standard plan?",
			Options:      []string{"$2", "$5", "$10", "$15"},
			CorrectIndex: 1,
		},
	}
}

// Draw shuffles bank and returns at most limit questions. A nil rng uses the
// package-level source.
func Draw(rng *rand.Rand, bank []Question, limit int) []Question {
	if limit <= 0 {
		limit = DefaultSize
	}
	drawn := append([]Question(nil), bank...)
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(drawn), func(i, j int) { drawn[i], drawn[j] = drawn[j], drawn[i] })
	if len(drawn) > limit {
		drawn = drawn[:limit]
	}
	return drawn
}

// Answer is the option a trainee picked; Choice -1 means skipped.
type Answer struct {
	QuestionID string `json:"questionId"`
	Choice     int    `json:"choice"`
}

// Score counts correct answers. Every answered question counts toward the
// total, skipped or not, and each question may be answered once.
func Score(bank []Question, answers []Answer) (int, int, error) {
	byID := make(map[string]Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}
	seen := make(map[string]struct{}, len(answers))
	score := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			return 0, 0, fmt.Errorf("%w: %s", ErrUnknownQuestion, a.QuestionID)
		}
		if _, dup := seen[a.QuestionID]; dup {
			return 0, 0, fmt.Errorf("%w: %s", ErrDuplicateAnswer, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
		if a.Choice == q.CorrectIndex {
			score++
		}
	}
	return score, len(answers), nil
}

type Result struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	StoreName    string `json:"storeName"`
	StoreID      string `json:"storeId"`
	DistrictName string `json:"districtName"`
	DistrictID   string `json:"districtId"`
	Score        int    `json:"score"`
	Total        int    `json:"total"`
	Timestamp    int64  `json:"timestamp"`
}

// NewResult stamps a score with the user's location names.
func NewResult(user roster.User, dir *roster.Directory, score, total int, at time.Time) Result {
	return Result{
		UserID:       user.ID,
		UserName:     user.Name,
		StoreName:    dir.StoreName(user.StoreID),
		StoreID:      user.StoreID,
		DistrictName: dir.DistrictName(user.DistrictID),
		DistrictID:   user.DistrictID,
		Score:        score,
		Total:        total,
		Timestamp:    at.UnixMilli(),
	}
}

func (r Result) Scope() roster.Scope {
	return roster.Scope{UserID: r.UserID, StoreID: r.StoreID, DistrictID: r.DistrictID}
}

// Percent is the score as a whole percentage, 0 for an empty quiz.
func (r Result) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return int(float64(r.Score)/float64(r.Total)*100 + 0.5)
}
