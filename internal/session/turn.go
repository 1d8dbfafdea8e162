package session

import (
	"time"

	"mobilepro.local/hunt-gateway/internal/model"
)

type Speaker string

const (
	SpeakerTrainee Speaker = "trainee"
	SpeakerAgent   Speaker = "agent"
)

// FallbackReply stands in for an agent reply that changed the grid without
// saying anything.
const FallbackReply = "I've updated the grid per your details."

// Turn is one entry of an append-only conversation log. Synthesized turns are
// written by the system on the agent's behalf.
type Turn struct {
	Speaker     Speaker   `json:"speaker"`
	Text        string    `json:"text"`
	Synthesized bool      `json:"synthesized,omitempty"`
	At          time.Time `json:"at"`
}

func history(turns []Turn) []model.Message {
	messages := make([]model.Message, 0, len(turns))
	for _, turn := range turns {
		role := model.RoleAssistant
		if turn.Speaker == SpeakerTrainee {
			role = model.RoleUser
		}
		messages = append(messages, model.Message{Role: role, Content: turn.Text})
	}
	return messages
}

func cloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
