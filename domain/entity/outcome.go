package entity

// Action is what a module run decided to do against QRadar
type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionQuery  Action = "query"
)

// CheckModeReturnData stands in for the API response when check mode skipped
// a mutating call
var CheckModeReturnData = map[string]string{"EMPTY": "IN CHECK MODE, NO TRANSACTION TOOK PLACE"}

// LogSourceOutcome is the result of reconciling one log source
type LogSourceOutcome struct {
	Action  Action
	Changed bool
	Message string
	// ReturnData is the raw API response of the mutating call, or
	// CheckModeReturnData. Nil when nothing was sent.
	ReturnData interface{}
}

// OffenseOutcome is the result of an offense lookup
type OffenseOutcome struct {
	Action   Action
	Message  string
	Offenses []Offense
}
