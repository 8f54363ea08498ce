package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"
	// RpcSeatTicket issues a reconnect ticket for the caller's seat in a running match.
	RpcSeatTicket = "seat_ticket"

	// MatchNameBigTwo is the authoritative match handler name registered with Nakama.
	MatchNameBigTwo = "bigtwo_match"

	// GameLabel is the "game" value of every match label this module creates.
	GameLabel = "bigtwo"

	labelPhaseLobby   = "lobby"
	labelPhasePlaying = "playing"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpReady     int64 = 1
	OpPlayCards int64 = 2
	OpPassTurn  int64 = 3

	// Server -> Client events
	OpSeatsUpdated int64 = 101
	OpRoundStarted int64 = 102
	OpHandDealt    int64 = 103 // send privately
	OpCardsPlayed  int64 = 104
	OpTurnPassed   int64 = 105
	OpRoundEnded   int64 = 106
	OpRoundAborted int64 = 107
	OpGameError    int64 = 108
)

// Game error codes sent with OpGameError.
const (
	ErrCodeRejected  = 400
	ErrCodeMalformed = 422
)

// Runtime env keys (Nakama runtime.env) read in MatchInit.
const (
	envConfigPath     = "bigtwo_config_path"
	envTicketSecret   = "bigtwo_ticket_secret"
	envTurnSeconds    = "bigtwo_turn_duration_sec"
	envGraceSeconds   = "bigtwo_reconnect_grace_sec"
	envScoreUnit      = "bigtwo_score_unit"
	envTicketTTL      = "bigtwo_ticket_ttl_sec"
	metadataTicketKey = "ticket"
)

// gRPC status codes used with runtime.NewError.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)
