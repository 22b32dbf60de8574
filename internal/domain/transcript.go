package domain

// ChatTurn is one entry of the interview transcript.
// A task offer carries only the offered task, never user or bot text.
type ChatTurn struct {
	ID          int     `json:"id"`
	User        *string `json:"user,omitempty"`
	Bot         *string `json:"bot,omitempty"`
	Pending     bool    `json:"pending,omitempty"`
	IsTaskOffer bool    `json:"is_task_offer,omitempty"`
	Task        *Task   `json:"task,omitempty"`
}

// Transcript is an append-only list of turns addressed by stable ids.
type Transcript struct {
	turns []ChatTurn
}

// NewTranscript rebuilds a transcript from stored turns, reassigning ids.
func NewTranscript(turns []ChatTurn) *Transcript {
	t := &Transcript{turns: make([]ChatTurn, 0, len(turns))}
	for _, turn := range turns {
		turn.ID = len(t.turns)
		turn.Pending = false
		t.turns = append(t.turns, turn)
	}
	return t
}

func (t *Transcript) add(turn ChatTurn) int {
	turn.ID = len(t.turns)
	t.turns = append(t.turns, turn)
	return turn.ID
}

// AppendUser adds a user utterance. When pending is true the bot reply
// is expected later through SetBot.
func (t *Transcript) AppendUser(text string, pending bool) int {
	return t.add(ChatTurn{User: &text, Pending: pending})
}

// AppendExchange adds a completed user/bot pair.
func (t *Transcript) AppendExchange(user, bot string) int {
	return t.add(ChatTurn{User: &user, Bot: &bot})
}

// AppendBot adds a bot-only turn.
func (t *Transcript) AppendBot(text string) int {
	return t.add(ChatTurn{Bot: &text})
}

// AppendOffer adds a task-offer turn.
func (t *Transcript) AppendOffer(task Task) int {
	return t.add(ChatTurn{IsTaskOffer: true, Task: &task})
}

// SetBot replaces the bot text of the turn with the given id and clears its
// pending flag. It returns false if the id is unknown.
func (t *Transcript) SetBot(id int, text string) bool {
	if id < 0 || id >= len(t.turns) {
		return false
	}
	t.turns[id].Bot = &text
	t.turns[id].Pending = false
	return true
}

// Settle clears the pending flag of a turn whose reply was discarded.
func (t *Transcript) Settle(id int) {
	if id >= 0 && id < len(t.turns) {
		t.turns[id].Pending = false
	}
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of all turns.
func (t *Transcript) Turns() []ChatTurn {
	out := make([]ChatTurn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Head returns a copy of at most n leading turns.
func (t *Transcript) Head(n int) []ChatTurn {
	if n > len(t.turns) {
		n = len(t.turns)
	}
	out := make([]ChatTurn, n)
	copy(out, t.turns[:n])
	return out
}

// FindOffer returns the most recently offered task with the given id.
func (t *Transcript) FindOffer(taskID string) (Task, bool) {
	for i := len(t.turns) - 1; i >= 0; i-- {
		turn := t.turns[i]
		if turn.IsTaskOffer && turn.Task != nil && turn.Task.ID == taskID {
			return *turn.Task, true
		}
	}
	return Task{}, false
}
