package command

import "testing"

func TestParse(t *testing.T) {
	in := New("Bot")
	cases := []struct {
		text string
		want Command
	}{
		{"xo start", Command{Kind: StartGame}},
		{"  XO   Start ", Command{Kind: StartGame}},
		{"bot xo start", Command{Kind: StartGame}},
		{"xo start bot", Command{Kind: StartGame}},
		{"@Bot xo new", Command{Kind: Unrecognized}},
		{"bot xo ابدأ", Command{Kind: StartGame}},
		{"xo 1", Command{Kind: MakeMove, Cell: 1}},
		{"bot xo 9", Command{Kind: MakeMove, Cell: 9}},
		{"xo 0", Command{Kind: MakeMove, Cell: 0}},
		{"xo 12", Command{Kind: MakeMove, Cell: 12}},
		{"xo 123", Command{Kind: Unrecognized}},
		{"xo -1", Command{Kind: Unrecognized}},
		{"xo ٣", Command{Kind: Unrecognized}},
		{"xo board", Command{Kind: ShowBoard}},
		{"xo history", Command{Kind: ShowHistory}},
		{"xo", Command{Kind: Unrecognized}},
		{"xo 1 2", Command{Kind: Unrecognized}},
		{"hello", Command{Kind: Unrecognized}},
		{"", Command{Kind: Unrecognized}},
		{"bot", Command{Kind: Unrecognized}},
	}
	for _, tc := range cases {
		if got := in.Parse(tc.text); got != tc.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tc.text, got, tc.want)
		}
	}
}

func TestParseStripsOnlyFirstMention(t *testing.T) {
	in := New("bot")
	if got := in.Parse("bot bot xo start"); got.Kind != Unrecognized {
		t.Fatalf("expected second mention to remain and break the grammar, got %+v", got)
	}
}

func TestShouldHandle(t *testing.T) {
	in := New("bot")
	if !in.ShouldHandle("u1", "u1", "xo start") {
		t.Fatalf("one-to-one conversation must be handled")
	}
	if !in.ShouldHandle("u1", "", "xo start") {
		t.Fatalf("missing conversation id falls back to sender")
	}
	if in.ShouldHandle("u1", "group-1", "xo start") {
		t.Fatalf("group message without mention must be ignored")
	}
	if !in.ShouldHandle("u1", "group-1", "BOT xo start") {
		t.Fatalf("group message with mention must be handled")
	}
}

func TestKindString(t *testing.T) {
	if MakeMove.String() != "make_move" || Unrecognized.String() != "unrecognized" {
		t.Fatalf("unexpected kind names")
	}
}
