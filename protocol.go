package main

import "encoding/json"

// Message type strings, console <-> server and buzzer <-> server.
const (
	typeAngularConnect     = "ANGULAR_CONNECT"
	typeConnected          = "CONNECTED"
	typeBuzzerListUpdate   = "BUZZER_LIST_UPDATE"
	typeBuzzerConnected    = "BUZZER_CONNECTED"
	typeBuzzerDisconnected = "BUZZER_DISCONNECTED"
	typeRequestBuzzerList  = "REQUEST_BUZZER_LIST"
	typePlayerRename       = "PLAYER_RENAME"
	typeQuestionSend       = "QUESTION_SEND"
	typeQuestionSent       = "QUESTION_SENT"
	typeQuestionStart      = "QUESTION_START"
	typeGameStart          = "GAME_START"
	typeGameStarted        = "GAME_STARTED"
	typeBuzzerDisconnect   = "BUZZER_DISCONNECT"
	typeBuzzCorrect        = "BUZZ_CORRECT"
	typeBuzzReopen         = "BUZZ_REOPEN"
	typeBuzzWinner         = "BUZZ_WINNER"
	typeBuzzValidated      = "BUZZ_VALIDATED"
	typeBuzzReopened       = "BUZZ_REOPENED"
	typeJinglePlay         = "JINGLE_PLAY"
	typeJingleStarted      = "JINGLE_STARTED"
	typeJingleCompleted    = "JINGLE_COMPLETED"
	typeJingleError        = "JINGLE_ERROR"
	typeAnswerReceived     = "ANSWER_RECEIVED"
	typeBuzzerStatusUpdate = "BUZZER_STATUS_UPDATE"
	typeError              = "ERROR"

	typeBuzzerRegister     = "BUZZER_REGISTER"
	typeConnectionAck      = "CONNECTION_ACK"
	typeConnectionRejected = "CONNECTION_REJECTED"
	typePlayerNameUpdate   = "PLAYER_NAME_UPDATE"
	typeAnswerMCQ          = "ANSWER_MCQ"
	typeAnswerBuzzer       = "ANSWER_BUZZER"
	typeAnswerResult       = "ANSWER_RESULT"
	typeBuzzIgnored        = "BUZZ_IGNORED"
	typeBuzzerLocked       = "BUZZER_LOCKED"
	typeBuzzerUnlocked     = "BUZZER_UNLOCKED"
	typeBuzzerExcluded     = "BUZZER_EXCLUDED"
	typeTimeSyncReq        = "TIME_SYNC_REQ"
	typeTimeSyncRes        = "TIME_SYNC_RES"
	typePing               = "PING"
	typePong               = "PONG"
	typeStatusUpdate       = "STATUS_UPDATE"
	typeJingleStart        = "JINGLE_START"
	typeJingleEnd          = "JINGLE_END"

	senderServer  = "SERVER"
	senderAngular = "ANGULAR"
	senderBuzzer  = "BUZZER"
)

// Close codes.
const (
	closeIdentificationTimeout = 4001
	closeDuplicateBuzzer       = 4002
	closeAdminDisconnect       = 4003
)

// envelope is the text-frame wrapper for every JSON message.
type envelope struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Sender    string          `json:"sender"`
	Payload   json.RawMessage `json:"payload"`
}

// timestamps carries the three time values a buzzer-originated message may
// attach: its own clock, the synced (offset-corrected) clock, and the
// round-trip latency it used to compute that offset.
type timestamps struct {
	Local             int64 `json:"local,omitempty"`
	Synced            int64 `json:"synced,omitempty"`
	CalibratedLatency int64 `json:"calibratedLatency,omitempty"`
}

// --- console -> server payloads ---

type connectPayload struct{}

type buzzerRegisterPayload struct {
	BuzzerID   string `json:"buzzerID"`
	MacAddress string `json:"macAddress"`
}

type playerRenamePayload struct {
	BuzzerID string `json:"buzzerID"`
	NewName  string `json:"newName"`
}

type questionSendPayload struct {
	GameID     string `json:"gameId"`
	QuestionID string `json:"questionId"`
}

type gameStartPayload struct {
	GameID         string `json:"gameId"`
	Name           string `json:"name"`
	TotalQuestions int    `json:"totalQuestions"`
}

type buzzerDisconnectPayload struct {
	BuzzerID string `json:"buzzerID"`
}

type buzzDecisionPayload struct {
	GameID     string `json:"gameId"`
	QuestionID string `json:"questionId"`
	BuzzerID   string `json:"buzzerID"`
}

type jinglePlayPayload struct {
	BuzzerID string `json:"buzzerID"`
	JingleID string `json:"jingleId"`
}

// --- buzzer -> server payloads ---

type answerMCQPayload struct {
	GameID     string     `json:"gameId"`
	QuestionID string     `json:"questionId"`
	Answer     string     `json:"answer"`
	Timestamps timestamps `json:"timestamps"`
}

type answerBuzzerPayload struct {
	GameID     string     `json:"gameId"`
	QuestionID string     `json:"questionId"`
	Timestamps timestamps `json:"timestamps"`
}

type statusUpdatePayload struct {
	Battery  int `json:"battery"`
	WifiRSSI int `json:"wifiRSSI"`
	FreeHeap int `json:"freeHeap"`
}

type timeSyncReqPayload struct {
	T1 int64 `json:"T1"`
}

type timeSyncResPayload struct {
	T1 int64 `json:"T1"`
	T2 int64 `json:"T2"`
	T3 int64 `json:"T3"`
}

type pingPayload struct {
	TSend int64 `json:"T_send"`
}

type pongPayload struct {
	TSend    int64 `json:"T_send"`
	TReceive int64 `json:"T_receive"`
}

// --- server -> * payloads ---

type buzzerSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ConnectedAt int64  `json:"connectedAt"`
	Battery     int    `json:"battery"`
	WifiRSSI    int    `json:"wifiRSSI"`
	Latency     int64  `json:"latency"`
	Connected   bool   `json:"connected"`
}

type connectedPayload struct {
	SessionID  string         `json:"sessionID"`
	ServerTime int64          `json:"serverTime"`
	Config     connectedCfg   `json:"config"`
}

type connectedCfg struct {
	MaxBuzzers int    `json:"maxBuzzers"`
	Version    string `json:"version"`
}

type buzzerListUpdatePayload struct {
	Buzzers []buzzerSummary `json:"buzzers"`
	Total   int             `json:"total"`
}

type buzzerConnEventPayload struct {
	Buzzer       buzzerSummary `json:"buzzer"`
	TotalBuzzers int           `json:"totalBuzzers"`
}

type questionSentPayload struct {
	QuestionID string `json:"questionId"`
	SentTo     int    `json:"sentTo"`
	Timestamp  int64  `json:"timestamp"`
}

type questionStartPayload struct {
	GameID        string   `json:"gameId"`
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Category      string   `json:"category"`
	Points        int      `json:"points"`
	StartTime     int64    `json:"startTime"`
	Answers       []string `json:"answers,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
}

type gameStartedPayload struct {
	GameID         string `json:"gameId"`
	Name           string `json:"name"`
	TotalQuestions int    `json:"totalQuestions"`
}

type buzzWinnerPayload struct {
	BuzzerID     string `json:"buzzerID"`
	PlayerName   string `json:"playerName"`
	QuestionID   string `json:"questionId"`
	GameID       string `json:"gameId"`
	ResponseTime int64  `json:"responseTime"`
}

type buzzValidatedPayload struct {
	BuzzerID     string `json:"buzzerID"`
	IsCorrect    bool   `json:"isCorrect"`
	Points       int    `json:"points"`
	ResponseTime int64  `json:"responseTime"`
}

type buzzReopenedPayload struct {
	ExcludedPlayers  []string `json:"excludedPlayers"`
	RemainingPlayers []string `json:"remainingPlayers"`
}

type buzzIgnoredPayload struct {
	Reason string `json:"reason"`
}

type buzzerLockedPayload struct {
	GameID     string `json:"gameId"`
	QuestionID string `json:"questionId"`
	WinnerID   string `json:"winnerID"`
}

type buzzerUnlockedPayload struct {
	GameID     string `json:"gameId"`
	QuestionID string `json:"questionId"`
	Reason     string `json:"reason,omitempty"`
}

type answerResultPayload struct {
	QuestionID   string `json:"questionId"`
	IsCorrect    bool   `json:"isCorrect"`
	Points       int    `json:"points"`
	ResponseTime int64  `json:"responseTime"`
}

type answerReceivedPayload struct {
	BuzzerID     string     `json:"buzzerID"`
	QuestionID   string     `json:"questionId"`
	Answer       string     `json:"answer"`
	IsCorrect    bool       `json:"isCorrect"`
	Points       int        `json:"points"`
	ResponseTime int64      `json:"responseTime"`
	Timestamps   timestamps `json:"timestamps"`
}

type buzzerStatusUpdatePayload struct {
	BuzzerID string `json:"buzzerID"`
	Battery  int    `json:"battery"`
	WifiRSSI int    `json:"wifiRSSI"`
	FreeHeap int    `json:"freeHeap"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type connectionAckPayload struct {
	BuzzerID     string `json:"buzzerID"`
	PlayerNumber int    `json:"playerNumber"`
}

type connectionRejectedPayload struct {
	Reason string `json:"reason"`
}

type playerNameUpdatePayload struct {
	Name string `json:"name"`
}

type jingleEventPayload struct {
	BuzzerID string `json:"buzzerID"`
	JingleID string `json:"jingleId"`
	Error    string `json:"error,omitempty"`
}

type jingleStartPayload struct {
	JingleID string `json:"jingleId"`
	Name     string `json:"name"`
	Format   string `json:"format"`
	FileSize int64  `json:"fileSize"`
}

type jingleEndPayload struct {
	JingleID    string `json:"jingleId"`
	TotalChunks int    `json:"totalChunks"`
	FileSize    int64  `json:"fileSize"`
}
