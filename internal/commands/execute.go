package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Goal   func(GoalArgs) (Result, error)
	Task   func(TaskArgs) (Result, error)
	Ask    func(AskArgs) (Result, error)
	Switch func(SwitchArgs) (Result, error)
	Accept func(AcceptArgs) (Result, error)
	Okay   func() (Result, error)
	Show   func(ShowArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeGoal:
		if handlers.Goal == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Goal(*cmd.Goal)
	case TypeTask:
		if handlers.Task == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Task(*cmd.Task)
	case TypeAsk:
		if handlers.Ask == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Ask(*cmd.Ask)
	case TypeSwitch:
		if handlers.Switch == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Switch(*cmd.Switch)
	case TypeAccept:
		if handlers.Accept == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Accept(*cmd.Accept)
	case TypeOkay:
		if handlers.Okay == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Okay()
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Show(*cmd.Show)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
