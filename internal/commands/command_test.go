package commands

import (
	"errors"
	"testing"
)

func TestParseSupportedCommands(t *testing.T) {
	tests := []struct {
		name  string
		input string
		typ   Type
	}{
		{name: "goal", input: "/goal Run a marathon | train for spring", typ: TypeGoal},
		{name: "task", input: "task Buy running shoes", typ: TypeTask},
		{name: "ask", input: "/ask how do I pace long runs?", typ: TypeAsk},
		{name: "switch", input: "/switch master", typ: TypeSwitch},
		{name: "accept all", input: "/accept", typ: TypeAccept},
		{name: "accept index", input: "/accept 2", typ: TypeAccept},
		{name: "okay", input: "/okay", typ: TypeOkay},
		{name: "ok alias", input: "ok", typ: TypeOkay},
		{name: "show", input: "/show analytics", typ: TypeShow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if cmd.Type != tt.typ {
				t.Fatalf("expected %s, got %s", tt.typ, cmd.Type)
			}
		})
	}
}

func TestParseGoalSplitsDescription(t *testing.T) {
	cmd, err := Parse("/goal  Learn Go |  finish the tour ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Goal.Title != "Learn Go" || cmd.Goal.Description != "finish the tour" {
		t.Fatalf("unexpected goal args: %+v", cmd.Goal)
	}

	cmd, err = Parse("/goal Learn Go")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Goal.Description != "" {
		t.Fatalf("expected empty description, got %q", cmd.Goal.Description)
	}
}

func TestParseAcceptIndexIsZeroBased(t *testing.T) {
	cmd, err := Parse("/accept 3")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Accept.All || cmd.Accept.Index != 2 {
		t.Fatalf("unexpected accept args: %+v", cmd.Accept)
	}

	cmd, err = Parse("/accept all")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !cmd.Accept.All {
		t.Fatal("expected accept all")
	}
}

func TestParseInvalidArguments(t *testing.T) {
	inputs := []string{"/goal", "/goal | only description", "/task", "/ask", "/switch", "/accept 0", "/accept x", "/show", "/show calendar"}
	for _, input := range inputs {
		_, err := Parse(input)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("%q: expected invalid argument, got %v", input, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/snooze 10m")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "/"} {
		_, err := Parse(input)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
			t.Fatalf("%q: expected empty input error, got %v", input, err)
		}
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/task Stretch")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	called := false
	res, err := Execute(cmd, Handlers{Task: func(args TaskArgs) (Result, error) {
		called = args.Text == "Stretch"
		return Result{Message: "ok"}, nil
	}})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("show tasks")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
