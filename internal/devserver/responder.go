// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"fmt"
	"strings"

	"github.com/jeranaias/agrichat/internal/backend"
)

// Reply is what the server streams back for one query.
type Reply struct {
	// Thinking is sent inside <think>...</think> ahead of the answer.
	Thinking string

	// Answer is the visible text. It is what gets stored.
	Answer string

	// FailWith, when set, ends the stream with an error event after
	// FailAfter runes of the answer have been sent.
	FailWith  string
	FailAfter int

	// Literal lines are written raw (not JSON) before the answer.
	Literal []string
}

// Responder produces the reply for a query given the conversation so far.
type Responder interface {
	Respond(query string, history []backend.Message) Reply
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(query string, history []backend.Message) Reply

// Respond implements Responder.
func (f ResponderFunc) Respond(query string, history []backend.Message) Reply {
	return f(query, history)
}

// Fixed always answers with the same reply.
func Fixed(r Reply) Responder {
	return ResponderFunc(func(string, []backend.Message) Reply { return r })
}

// =============================================================================
// CANNED AGRONOMY
// =============================================================================

type topic struct {
	keywords []string
	answer   string
}

var topics = []topic{
	{
		keywords: []string{"maize", "corn"},
		answer: "Plant maize when the soil is at least **10°C** at 5 cm depth, usually right after the first reliable rains.\n\n" +
			"- Space rows 75 cm apart and plants 25 cm within the row.\n" +
			"- Apply a basal NPK at planting and top-dress with nitrogen at knee height.\n" +
			"- Keep the field weed-free for the first six weeks.",
	},
	{
		keywords: []string{"tomato"},
		answer: "Tomatoes do best in well-drained soil with a pH between **6.0 and 6.8**.\n\n" +
			"1. Stake or cage plants early to keep fruit off the ground.\n" +
			"2. Water at the base in the morning to limit blight.\n" +
			"3. Remove lower leaves once the first truss sets.",
	},
	{
		keywords: []string{"soil", "ph", "lime"},
		answer: "Take samples from 10 to 15 spots at 15 cm depth, mix them, and send about 500 g to a lab.\n\n" +
			"If the pH is below 5.5, apply agricultural lime two to three months before planting. " +
			"Sandy soils need smaller, more frequent applications than clay.",
	},
	{
		keywords: []string{"pest", "aphid", "armyworm", "insect"},
		answer: "Scout the field twice a week and check the undersides of leaves.\n\n" +
			"For fall armyworm, look for window-pane feeding and frass in the whorl. " +
			"Early infestations respond well to neem extract; use a registered insecticide only above the action threshold.",
	},
	{
		keywords: []string{"water", "irrigat", "drought"},
		answer: "Irrigate early in the morning so less water is lost to evaporation.\n\n" +
			"Drip lines put water at the root zone and use 30 to 50 percent less than furrows. " +
			"Mulching with crop residue keeps the soil moist for longer between waterings.",
	},
}

const fallbackAnswer = "I can help with planting times, soil health, pests, irrigation and crop care. " +
	"Tell me which crop you are growing and where, and I will give you specific advice."

// Agronomist answers from a small keyword table.
type Agronomist struct{}

// Respond implements Responder.
func (Agronomist) Respond(query string, history []backend.Message) Reply {
	q := strings.ToLower(query)
	for _, t := range topics {
		for _, k := range t.keywords {
			if strings.Contains(q, k) {
				return Reply{
					Thinking: fmt.Sprintf("The farmer asks about %s. Earlier messages in this chat: %d.", k, len(history)),
					Answer:   t.answer,
				}
			}
		}
	}
	return Reply{
		Thinking: "No specific crop mentioned; offer the topics I can cover.",
		Answer:   fallbackAnswer,
	}
}
