package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// sessionState is the UI position restored on the next start.
type sessionState struct {
	View        string `json:"view"`
	TasksGoalID string `json:"tasks_goal_id,omitempty"`
	GoalCursor  int    `json:"goal_cursor"`
}

func (m Model) snapshotSession() sessionState {
	return sessionState{
		View:        string(m.CurrentView),
		TasksGoalID: m.Tasks.GoalID,
		GoalCursor:  m.Goals.Cursor,
	}
}

func (m *Model) persistSessionState() error {
	if strings.TrimSpace(m.stateFilePath) == "" {
		return nil
	}
	dir := filepath.Dir(m.stateFilePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	payload, err := json.MarshalIndent(m.snapshotSession(), "", "  ")
	if err != nil {
		return err
	}
	tmp := m.stateFilePath + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.stateFilePath)
}

func loadSessionState(path string) (sessionState, error) {
	var state sessionState
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return state, nil
	}
	raw, err := os.ReadFile(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return state, nil
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return sessionState{}, err
	}
	return state, nil
}
