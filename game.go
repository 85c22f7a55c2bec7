package main

import (
	"sync"
	"time"
)

type gameStatus string

const (
	gameCreated gameStatus = "created"
	gameStarted gameStatus = "started"
	gamePaused  gameStatus = "paused"
	gameEnded   gameStatus = "ended"
)

// GameSettings are per-game defaults.
type GameSettings struct {
	MCQDuration             time.Duration
	BuzzerDuration          time.Duration
	ShowCorrectAnswer       bool
	ShowIntermediateRanking bool
}

// Player is a buzzer's cumulative standing within one Game.
// Identity persists across reconnects of the same buzzerID.
type Player struct {
	BuzzerID            string
	Name                string
	Score               int
	CorrectAnswers      int
	TotalAnswers        int
	TotalResponseTime   int64
	FastestResponseTime int64
	SlowestResponseTime int64
}

type answerEntry struct {
	Answer       string
	IsCorrect    bool
	Points       int
	ResponseTime int64
}

type pendingBuzz struct {
	BuzzerID     string
	ResponseTime int64
	Timestamps   timestamps
	ReceivedAt   time.Time
	Processed    bool
}

// QuestionRuntimeState is reset on every question dispatch.
type QuestionRuntimeState struct {
	QuestionID           string
	QuestionStartTime    time.Time
	Answers              map[string]answerEntry
	ExcludedPlayers      map[string]bool
	PendingBuzzes        []pendingBuzz
	BuzzerLocked         bool
	CurrentWinner        string
	EvaluationTimerArmed bool
	evaluationTimer      Timer
	epoch                uint64
}

func freshQuestionState(questionID string, start time.Time, epoch uint64) QuestionRuntimeState {
	return QuestionRuntimeState{
		QuestionID:      questionID,
		QuestionStartTime: start,
		Answers:         make(map[string]answerEntry),
		ExcludedPlayers: make(map[string]bool),
		epoch:           epoch,
	}
}

// Game is the in-memory per-session state owned by the engine.
type Game struct {
	mu sync.Mutex

	ID                   string
	Name                 string
	Status               gameStatus
	Settings             GameSettings
	Questions            []string
	CurrentQuestionIndex int

	players map[string]*Player
	state   QuestionRuntimeState

	activeJingleStreams map[string]bool

	notifier  Notifier
	questions QuestionLookup
	results   ResultWriter
	clock     Clock
	scheduler Scheduler
	cfg       *Config

	lastActive time.Time
}

func newGame(id string, cfg *Config, notifier Notifier, questions QuestionLookup, results ResultWriter, clock Clock, scheduler Scheduler) *Game {
	return &Game{
		ID:                   id,
		Status:               gameCreated,
		CurrentQuestionIndex: -1,
		players:              make(map[string]*Player),
		state:                freshQuestionState("", time.Time{}, 0),
		activeJingleStreams:  make(map[string]bool),
		notifier:             notifier,
		questions:            questions,
		results:              results,
		clock:                clock,
		scheduler:            scheduler,
		cfg:                  cfg,
		lastActive:           clock.Now(),
	}
}

func (g *Game) touch() {
	g.lastActive = g.clock.Now()
}

func (g *Game) getOrCreatePlayer(buzzerID string) *Player {
	p, ok := g.players[buzzerID]
	if !ok {
		p = &Player{BuzzerID: buzzerID, Name: buzzerID}
		g.players[buzzerID] = p
	}
	return p
}

// start sets the game's name and status to started, whatever its prior
// status, and broadcasts GAME_STARTED to every buzzer. totalQuestions is
// only relayed in the broadcast; it is not stored on the Game.
func (g *Game) start(name string, totalQuestions int) {
	g.mu.Lock()
	g.Name = name
	g.Status = gameStarted
	g.touch()
	g.mu.Unlock()

	g.notifier.ToAllBuzzers(typeGameStarted, gameStartedPayload{
		GameID:         g.ID,
		Name:           name,
		TotalQuestions: totalQuestions,
	})
}

// dispatchQuestion advances the game to a new question, resetting buzz and
// answer state and broadcasting QUESTION_START to all buzzers.
func (g *Game) dispatchQuestion(questionID string) {
	q, found := g.questions.Question(g.ID, questionID)
	if !found {
		g.notifier.ToConsole(typeError, errorPayload{Message: "question not found: " + questionID})
		return
	}

	g.mu.Lock()
	if g.state.evaluationTimer != nil {
		g.state.evaluationTimer.Stop()
	}
	start := g.clock.Now()
	g.state = freshQuestionState(questionID, start, g.state.epoch+1)
	g.mu.Unlock()

	points := q.Points
	if points <= 0 {
		points = 10
	}

	payload := questionStartPayload{
		GameID:    g.ID,
		ID:        q.ID,
		Text:      q.Text,
		Type:      q.Type,
		Category:  q.Category,
		Points:    points,
		StartTime: nowMillis(g.clock),
	}
	if q.Type == "MCQ" {
		payload.Answers = q.Answers
		payload.CorrectAnswer = q.CorrectAnswer
	}

	g.notifier.ToAllBuzzers(typeQuestionStart, payload)

	sentTo := len(g.notifier.AllBuzzerIDs())
	g.notifier.ToConsole(typeQuestionSent, questionSentPayload{
		QuestionID: questionID,
		SentTo:     sentTo,
		Timestamp:  nowMillis(g.clock),
	})
}

// answerOutcome is the result of recordAnswer.
type answerOutcome struct {
	Duplicate    bool
	Found        bool
	IsCorrect    bool
	Points       int
	ResponseTime int64
}

func clampResponseTime(rt int64) int64 {
	if rt < 0 {
		return 0
	}
	if rt > 120000 {
		return 120000
	}
	return rt
}

// recordAnswer scores an MCQ answer from a buzzer, rejecting a second
// answer from the same buzzer on the same question.
func (g *Game) recordAnswer(questionID, buzzerID, answer string, ts timestamps) answerOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.QuestionID != questionID {
		return answerOutcome{Found: false}
	}

	if _, exists := g.state.Answers[buzzerID]; exists {
		return answerOutcome{Duplicate: true}
	}

	q, found := g.questions.Question(g.ID, questionID)
	if !found {
		return answerOutcome{Found: false}
	}

	var isCorrect bool
	if q.Type == "MCQ" {
		isCorrect = answer == q.CorrectAnswer
	} else {
		// BUZZER-typed question posted via the answer path: the first
		// answer recorded for the question is treated as correct.
		isCorrect = len(g.state.Answers) == 0
	}

	responseTime := ts.Synced - g.state.QuestionStartTime.UnixMilli()
	if ts.Synced == 0 {
		responseTime = g.clock.Now().UnixMilli() - g.state.QuestionStartTime.UnixMilli()
	}
	responseTime = clampResponseTime(responseTime)

	points := 0
	if isCorrect {
		points = q.Points
		if points <= 0 {
			points = 10
		}
	}

	g.state.Answers[buzzerID] = answerEntry{
		Answer:       answer,
		IsCorrect:    isCorrect,
		Points:       points,
		ResponseTime: responseTime,
	}

	if err := g.results.WriteResult(AnswerResult{
		GameID:       g.ID,
		QuestionID:   questionID,
		BuzzerID:     buzzerID,
		Answer:       answer,
		IsCorrect:    isCorrect,
		Points:       points,
		ResponseTime: responseTime,
	}); err != nil {
		logf(g.cfg, "GAME: result persistence failed for %s/%s: %v", g.ID, questionID, err)
	}

	player := g.getOrCreatePlayer(buzzerID)
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

	return answerOutcome{Found: true, IsCorrect: isCorrect, Points: points, ResponseTime: responseTime}
}

// renamePlayer updates a player's display name in response to PLAYER_RENAME.
func (g *Game) renamePlayer(buzzerID, newName string) bool {
	g.mu.Lock()
	p, ok := g.players[buzzerID]
	if ok {
		p.Name = newName
	}
	g.touch()
	g.mu.Unlock()
	return ok
}

// idleSince reports how long this Game has gone untouched, for reaping.
func (g *Game) idleSince(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return now.Sub(g.lastActive)
}

// GameManager owns all in-memory Games, keyed by gameID, with idle reaping.
type GameManager struct {
	mu    sync.Mutex
	games map[string]*Game

	cfg       *Config
	notifier  Notifier
	questions QuestionLookup
	results   ResultWriter
	clock     Clock
	scheduler Scheduler
}

func newGameManager(cfg *Config, notifier Notifier, questions QuestionLookup, results ResultWriter, clock Clock, scheduler Scheduler) *GameManager {
	gm := &GameManager{
		games:     make(map[string]*Game),
		cfg:       cfg,
		notifier:  notifier,
		questions: questions,
		results:   results,
		clock:     clock,
		scheduler: scheduler,
	}
	if cfg.sessionIdle > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getOrCreate(gameID string) *Game {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if g, ok := gm.games[gameID]; ok {
		return g
	}
	g := newGame(gameID, gm.cfg, gm.notifier, gm.questions, gm.results, gm.clock, gm.scheduler)
	gm.games[gameID] = g
	return g
}

func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.cfg.sessionIdle / 2)
	defer ticker.Stop()
	for range ticker.C {
		gm.mu.Lock()
		for id, g := range gm.games {
			if g.idleSince(gm.clock.Now()) > gm.cfg.sessionIdle {
				delete(gm.games, id)
			}
		}
		gm.mu.Unlock()
	}
}
