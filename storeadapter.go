package main

import (
	"context"

	"github.com/quizbuzz/core/internal/store"
)

// sqliteAdapter wires the SQLite-backed store into the core's
// QuestionLookup, JingleLookup, and ResultWriter capabilities. The core
// interfaces are synchronous and context-free by design (they're called
// from single-threaded per-Game code paths); the adapter supplies
// context.Background() at the boundary.
type sqliteAdapter struct {
	st *store.Store
}

func newSQLiteAdapter(st *store.Store) *sqliteAdapter {
	return &sqliteAdapter{st: st}
}

func (a *sqliteAdapter) Question(gameID, questionID string) (Question, bool) {
	row, err := a.st.Question(context.Background(), gameID, questionID)
	if err != nil {
		return Question{}, false
	}
	return Question{
		ID:            row.ID,
		GameID:        row.GameID,
		Text:          row.Text,
		Type:          row.Type,
		Category:      row.Category,
		Points:        row.Points,
		Answers:       row.Answers,
		CorrectAnswer: row.CorrectAnswer,
	}, true
}

func (a *sqliteAdapter) Jingle(jingleID string) (JingleRecord, bool) {
	row, err := a.st.Jingle(context.Background(), jingleID)
	if err != nil {
		return JingleRecord{}, false
	}
	return JingleRecord{ID: row.ID, Name: row.Name, Format: row.Format, RelPath: row.RelPath}, true
}

func (a *sqliteAdapter) WriteResult(r AnswerResult) error {
	return a.st.WriteResult(context.Background(), store.ResultRow{
		GameID:       r.GameID,
		QuestionID:   r.QuestionID,
		BuzzerID:     r.BuzzerID,
		Answer:       r.Answer,
		IsCorrect:    r.IsCorrect,
		Points:       r.Points,
		ResponseTime: r.ResponseTime,
	})
}
