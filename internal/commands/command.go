package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeGoal   Type = "goal"
	TypeTask   Type = "task"
	TypeAsk    Type = "ask"
	TypeSwitch Type = "switch"
	TypeAccept Type = "accept"
	TypeOkay   Type = "okay"
	TypeShow   Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// GoalArgs come from "/goal <title> | <description>".
type GoalArgs struct {
	Title       string
	Description string
}

type TaskArgs struct {
	Text string
}

type AskArgs struct {
	Text string
}

// SwitchArgs names a chat context: "master", a 1-based goal number or a
// goal title prefix.
type SwitchArgs struct {
	Target string
}

// AcceptArgs selects every pending suggestion or the 0-based Index.
type AcceptArgs struct {
	All   bool
	Index int
}

type ShowArgs struct {
	Screen string
}

type Command struct {
	Type   Type
	Raw    string
	Goal   *GoalArgs
	Task   *TaskArgs
	Ask    *AskArgs
	Switch *SwitchArgs
	Accept *AcceptArgs
	Show   *ShowArgs
}

var screens = map[string]string{
	"goals":     "goals",
	"tasks":     "tasks",
	"chat":      "chat",
	"analytics": "analytics",
	"stats":     "analytics",
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	rest := strings.TrimSpace(raw[len(parts[0]):])

	switch Type(head) {
	case TypeGoal:
		return parseGoal(input, rest)
	case TypeTask:
		return parseText(input, rest, TypeTask)
	case TypeAsk:
		return parseText(input, rest, TypeAsk)
	case TypeSwitch:
		return parseSwitch(input, rest)
	case TypeAccept:
		return parseAccept(input, parts[1:])
	case TypeOkay, "ok":
		return Command{Type: TypeOkay, Raw: input}, nil
	case TypeShow:
		return parseShow(input, parts[1:])
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseGoal(raw, rest string) (Command, error) {
	title, description, _ := strings.Cut(rest, "|")
	title = strings.TrimSpace(title)
	if title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "goal requires a title"}
	}
	return Command{Type: TypeGoal, Raw: raw, Goal: &GoalArgs{Title: title, Description: strings.TrimSpace(description)}}, nil
}

func parseText(raw, rest string, typ Type) (Command, error) {
	if rest == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires text", typ)}
	}
	cmd := Command{Type: typ, Raw: raw}
	if typ == TypeTask {
		cmd.Task = &TaskArgs{Text: rest}
	} else {
		cmd.Ask = &AskArgs{Text: rest}
	}
	return cmd, nil
}

func parseSwitch(raw, rest string) (Command, error) {
	if rest == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "switch requires a goal or master"}
	}
	return Command{Type: TypeSwitch, Raw: raw, Switch: &SwitchArgs{Target: rest}}, nil
}

func parseAccept(raw string, args []string) (Command, error) {
	if len(args) == 0 || strings.EqualFold(args[0], "all") {
		return Command{Type: TypeAccept, Raw: raw, Accept: &AcceptArgs{All: true}}, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "accept takes 'all' or a suggestion number"}
	}
	return Command{Type: TypeAccept, Raw: raw, Accept: &AcceptArgs{Index: n - 1}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires a screen"}
	}
	screen, ok := screens[strings.ToLower(args[0])]
	if !ok {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown screen: %s", args[0])}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Screen: screen}}, nil
}
