package main

import "sort"

// buzzOutcome is the immediate (non-winning) result of recordBuzz.
type buzzOutcome struct {
	Ignored      bool
	Reason       string
	IsPending    bool
	ResponseTime int64
}

// recordBuzz registers one buzzer's buzz timestamp against the active
// question and arms the evaluation timer on the first buzz of the window.
func (g *Game) recordBuzz(questionID, buzzerID string, ts timestamps) buzzOutcome {
	g.mu.Lock()

	if g.state.QuestionID != questionID {
		g.mu.Unlock()
		return buzzOutcome{Ignored: true, Reason: "no active question"}
	}
	if g.state.ExcludedPlayers[buzzerID] {
		g.mu.Unlock()
		return buzzOutcome{Ignored: true, Reason: "excluded"}
	}
	for _, b := range g.state.PendingBuzzes {
		if b.BuzzerID == buzzerID && !b.Processed {
			g.mu.Unlock()
			return buzzOutcome{Ignored: true, Reason: "already buzzed"}
		}
	}
	if g.state.BuzzerLocked {
		g.mu.Unlock()
		return buzzOutcome{Ignored: true, Reason: "buzzers locked"}
	}

	responseTime := ts.Synced - g.state.QuestionStartTime.UnixMilli()
	if ts.Synced == 0 {
		responseTime = g.clock.Now().UnixMilli() - g.state.QuestionStartTime.UnixMilli()
	}
	if responseTime < 0 {
		responseTime = 0
	}

	g.state.PendingBuzzes = append(g.state.PendingBuzzes, pendingBuzz{
		BuzzerID:     buzzerID,
		ResponseTime: responseTime,
		Timestamps:   ts,
		ReceivedAt:   g.clock.Now(),
	})

	armed := g.state.EvaluationTimerArmed
	epoch := g.state.epoch
	if !armed {
		g.state.EvaluationTimerArmed = true
		g.state.evaluationTimer = g.scheduler.AfterFunc(g.cfg.buzzWindow, func() {
			g.evaluateBuzzes(questionID, epoch)
		})
	}
	g.touch()
	g.mu.Unlock()

	return buzzOutcome{IsPending: true, ResponseTime: responseTime}
}

// evaluateBuzzes is fired by the evaluation timer once the buzz window
// closes. Guarded by the question epoch so a stale timer from a superseded
// question is a no-op even if it fires after the question has advanced.
func (g *Game) evaluateBuzzes(questionID string, epoch uint64) {
	g.mu.Lock()

	if g.state.epoch != epoch || g.state.QuestionID != questionID {
		g.mu.Unlock()
		return
	}
	if g.state.BuzzerLocked {
		g.mu.Unlock()
		return
	}

	pending := make([]*pendingBuzz, 0, len(g.state.PendingBuzzes))
	for i := range g.state.PendingBuzzes {
		b := &g.state.PendingBuzzes[i]
		if b.Processed || g.state.ExcludedPlayers[b.BuzzerID] {
			continue
		}
		pending = append(pending, b)
	}
	if len(pending) == 0 {
		g.state.EvaluationTimerArmed = false
		g.mu.Unlock()
		return
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].ResponseTime < pending[j].ResponseTime
	})
	winner := pending[0]
	for _, b := range pending {
		b.Processed = true
	}
	g.state.CurrentWinner = winner.BuzzerID
	g.state.BuzzerLocked = true
	g.state.EvaluationTimerArmed = false

	winnerID := winner.BuzzerID
	responseTime := winner.ResponseTime
	player := g.getOrCreatePlayer(winnerID)
	playerName := player.Name
	gameID := g.ID
	g.mu.Unlock()

	g.notifier.ToAllBuzzers(typeBuzzerLocked, buzzerLockedPayload{
		GameID:     gameID,
		QuestionID: questionID,
		WinnerID:   winnerID,
	})
	g.notifier.ToConsole(typeBuzzWinner, buzzWinnerPayload{
		BuzzerID:     winnerID,
		PlayerName:   playerName,
		QuestionID:   questionID,
		GameID:       gameID,
		ResponseTime: responseTime,
	})
}

// validateBuzz records the console's correct/incorrect ruling on the
// current winner. isCorrect=true persists, updates stats, and emits
// ANSWER_RESULT / BUZZ_VALIDATED / BUZZER_UNLOCKED. isCorrect=false
// persists and updates stats only; excludePlayer, called right after by
// the router, owns the BUZZER_EXCLUDED / BUZZER_UNLOCKED notifications for
// that path.
func (g *Game) validateBuzz(questionID string, isCorrect bool) {
	g.mu.Lock()
	if g.state.QuestionID != questionID || g.state.CurrentWinner == "" {
		g.mu.Unlock()
		return
	}
	winnerID := g.state.CurrentWinner

	var winnerBuzz *pendingBuzz
	for i := range g.state.PendingBuzzes {
		if g.state.PendingBuzzes[i].BuzzerID == winnerID {
			winnerBuzz = &g.state.PendingBuzzes[i]
			break
		}
	}
	if winnerBuzz == nil {
		g.mu.Unlock()
		return
	}

	points := 0
	if isCorrect {
		q, found := g.questions.Question(g.ID, questionID)
		points = 10
		if found && q.Points > 0 {
			points = q.Points
		}
	}
	responseTime := winnerBuzz.ResponseTime

	player := g.getOrCreatePlayer(winnerID)
	player.TotalAnswers++
	if isCorrect {
		player.CorrectAnswers++
		player.Score += points
	}
	player.TotalResponseTime += responseTime
	if player.FastestResponseTime == 0 || responseTime < player.FastestResponseTime {
		player.FastestResponseTime = responseTime
	}
	if responseTime > player.SlowestResponseTime {
		player.SlowestResponseTime = responseTime
	}
	g.touch()
	gameID := g.ID
	g.mu.Unlock()

	if err := g.results.WriteResult(AnswerResult{
		GameID:       gameID,
		QuestionID:   questionID,
		BuzzerID:     winnerID,
		IsCorrect:    isCorrect,
		Points:       points,
		ResponseTime: responseTime,
	}); err != nil {
		logf(g.cfg, "ARBITER: result persistence failed for %s/%s: %v", gameID, questionID, err)
	}

	if !isCorrect {
		return
	}

	g.notifier.ToBuzzer(winnerID, typeAnswerResult, answerResultPayload{
		QuestionID:   questionID,
		IsCorrect:    true,
		Points:       points,
		ResponseTime: responseTime,
	})
	g.notifier.ToConsole(typeBuzzValidated, buzzValidatedPayload{
		BuzzerID:     winnerID,
		IsCorrect:    true,
		Points:       points,
		ResponseTime: responseTime,
	})
	g.notifier.ToAllBuzzers(typeBuzzerUnlocked, buzzerUnlockedPayload{
		GameID:     gameID,
		QuestionID: questionID,
	})
}

// excludePlayer reopens buzzing after the console declares the current
// winner wrong, excluding that buzzer from the remainder of this question.
func (g *Game) excludePlayer(questionID, buzzerID string) {
	g.mu.Lock()
	if g.state.QuestionID != questionID {
		g.mu.Unlock()
		return
	}
	g.state.ExcludedPlayers[buzzerID] = true
	g.state.BuzzerLocked = false
	g.state.CurrentWinner = ""

	excludedSnapshot := make(map[string]bool, len(g.state.ExcludedPlayers))
	for id, v := range g.state.ExcludedPlayers {
		excludedSnapshot[id] = v
	}
	gameID := g.ID
	g.touch()
	g.mu.Unlock()

	g.notifier.ToBuzzer(buzzerID, typeBuzzerExcluded, buzzerUnlockedPayload{
		GameID:     gameID,
		QuestionID: questionID,
		Reason:     "excluded",
	})

	excludedPlayers := make([]string, 0, len(excludedSnapshot))
	for id := range excludedSnapshot {
		excludedPlayers = append(excludedPlayers, id)
	}
	remainingPlayers := make([]string, 0)
	for _, id := range g.notifier.AllBuzzerIDs() {
		if excludedSnapshot[id] {
			continue
		}
		remainingPlayers = append(remainingPlayers, id)
		g.notifier.ToBuzzer(id, typeBuzzerUnlocked, buzzerUnlockedPayload{
			GameID:     gameID,
			QuestionID: questionID,
		})
	}

	g.notifier.ToConsole(typeBuzzReopened, buzzReopenedPayload{
		ExcludedPlayers:  excludedPlayers,
		RemainingPlayers: remainingPlayers,
	})
}
