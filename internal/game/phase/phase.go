package phase

// GamePhase represents the broad state of a match.
type GamePhase string

const (
	GameInLobby GamePhase = "IN_LOBBY"
	GameInGame  GamePhase = "IN_GAME"
	GamePaused  GamePhase = "PAUSED"
	GameEnded   GamePhase = "GAME_ENDED"
)

// TurnPhase represents the step of the turn cycle currently in progress.
type TurnPhase string

const (
	TurnChangeTurn          TurnPhase = "CHANGE_TURN"
	TurnBeginTurn           TurnPhase = "BEGIN_TURN"
	TurnWaitingForMove      TurnPhase = "WAITING_FOR_MOVE"
	TurnProcessingEvents    TurnPhase = "PROCESSING_EVENTS"
	TurnProcessingEvent     TurnPhase = "PROCESSING_EVENT"
	TurnProcessingMove      TurnPhase = "PROCESSING_MOVE"
	TurnChoosingDestination TurnPhase = "PLAYER_CHOOSING_DESTINATION"
	TurnEndTurn             TurnPhase = "END_TURN"
)

// GamePhases returns every game phase in declaration order.
func GamePhases() []GamePhase {
	return []GamePhase{GameInLobby, GameInGame, GamePaused, GameEnded}
}

// TurnPhases returns every turn phase in declaration order.
func TurnPhases() []TurnPhase {
	return []TurnPhase{
		TurnChangeTurn,
		TurnBeginTurn,
		TurnWaitingForMove,
		TurnProcessingEvents,
		TurnProcessingEvent,
		TurnProcessingMove,
		TurnChoosingDestination,
		TurnEndTurn,
	}
}
