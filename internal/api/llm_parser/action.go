package llmParser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const actionFence = "action"

var actionBlock = regexp.MustCompile("(?s)```action[ \t]*\r?\n?(.*?)```")

// ExtractAction pulls a fenced ```action block out of a chat reply. It returns the
// parsed action (nil when absent or invalid) and the reply with the block removed.
func ExtractAction(reply string) (*types.ProgramAction, string) {
	loc := actionBlock.FindStringSubmatchIndex(reply)
	if loc == nil {
		return nil, strings.TrimSpace(reply)
	}
	body := reply[loc[2]:loc[3]]
	text := strings.TrimSpace(reply[:loc[0]] + reply[loc[1]:])

	var action types.ProgramAction
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &action); err != nil {
		return nil, text
	}
	action.Type = types.ActionType(strings.ToLower(string(action.Type)))
	if err := validate.Struct(action); err != nil {
		return nil, text
	}
	return &action, text
}
