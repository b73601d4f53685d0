// Package command turns an inbound chat message into a game command.
package command

import (
	"strconv"
	"strings"
)

// Kind of parsed command.
type Kind int

const (
	Unrecognized Kind = iota
	StartGame
	MakeMove
	ShowBoard
	ShowHistory
)

func (k Kind) String() string {
	switch k {
	case StartGame:
		return "start_game"
	case MakeMove:
		return "make_move"
	case ShowBoard:
		return "show_board"
	case ShowHistory:
		return "show_history"
	default:
		return "unrecognized"
	}
}

// Command is the interpreted message. Cell is set for MakeMove only and is not range-checked here.
type Command struct {
	Kind Kind
	Cell int
}

// Keyword prefixes every game command.
const Keyword = "xo"

var startWords = map[string]struct{}{
	"start": {},
	"new":   {},
	"ابدأ":  {},
}

// Interpreter parses normalized text. The zero value is not usable; use New.
type Interpreter struct {
	botName string
}

// New returns an interpreter that treats botName as the mention to strip.
func New(botName string) *Interpreter {
	return &Interpreter{botName: strings.ToLower(strings.TrimSpace(botName))}
}

// BotName is the normalized mention token.
func (in *Interpreter) BotName() string { return in.botName }

// Normalize lowercases and trims text and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Mentions reports whether normalized text mentions the bot.
func (in *Interpreter) Mentions(text string) bool {
	return in.botName != "" && strings.Contains(Normalize(text), in.botName)
}

// ShouldHandle gates a message before interpretation: it must mention the bot or come from a
// one-to-one conversation, where the conversation id equals the sender id.
func (in *Interpreter) ShouldHandle(senderID, conversationID, text string) bool {
	if strings.TrimSpace(conversationID) == "" || conversationID == senderID {
		return true
	}
	return in.Mentions(text)
}

// Parse strips the first bot mention and interprets the remaining tokens.
func (in *Interpreter) Parse(text string) Command {
	norm := Normalize(text)
	if in.botName != "" {
		norm = Normalize(strings.Replace(norm, in.botName, "", 1))
	}
	tokens := strings.Fields(norm)
	if len(tokens) != 2 || tokens[0] != Keyword {
		return Command{Kind: Unrecognized}
	}
	arg := tokens[1]
	if _, ok := startWords[arg]; ok {
		return Command{Kind: StartGame}
	}
	switch arg {
	case "board":
		return Command{Kind: ShowBoard}
	case "history":
		return Command{Kind: ShowHistory}
	}
	if n, ok := parseCell(arg); ok {
		return Command{Kind: MakeMove, Cell: n}
	}
	return Command{Kind: Unrecognized}
}

// parseCell accepts one or two ASCII digits so out-of-range cells reach move validation.
func parseCell(s string) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
