package engine

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func testContext() *CommandContext {
	return &CommandContext{
		GuildID:       "guild1",
		ChannelID:     "chan1",
		UserID:        "user1",
		Username:      "Alice",
		Discriminator: "0",
		Member:        &discordgo.Member{Nick: "Ally"},
		Guild:         &discordgo.Guild{Name: "Testers", MemberCount: 42},
		Channel:       &discordgo.Channel{ID: "chan1", Name: "general", Type: discordgo.ChannelTypeGuildText},
		Args:          []string{"first", "second"},
	}
}

func TestResolveUserAndServerTokens(t *testing.T) {
	cc := testContext()
	cases := []struct {
		template, want string
	}{
		{"hello {user}", "hello <@user1>"},
		{"{user.mention}", "<@user1>"},
		{"{user.id}", "user1"},
		{"{user.name} / {user.username}", "Alice / Alice"},
		{"{user.tag}", "Alice"},
		{"{user.nickname}", "Ally"},
		{"{server.name} ({server.id})", "Testers (guild1)"},
		{"{server.memberCount}", "42"},
		{"{channel.mention}", "<#chan1>"},
		{"{channel.name}", "general"},
		{"{channel.id}", "chan1"},
	}
	for _, tc := range cases {
		if got := Resolve(tc.template, cc, nil); got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.template, got, tc.want)
		}
	}
}

func TestResolveLegacyTag(t *testing.T) {
	cc := testContext()
	cc.Discriminator = "1234"
	if got := Resolve("{user.tag}", cc, nil); got != "Alice#1234" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveNicknameFallsBackToUsername(t *testing.T) {
	cc := testContext()
	cc.Member = nil
	if got := Resolve("{user.nickname}", cc, nil); got != "Alice" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveArgs(t *testing.T) {
	cc := testContext()
	if got := Resolve("{args[0]}-{args[1]}", cc, nil); got != "first-second" {
		t.Fatalf("got %q", got)
	}
	if got := Resolve("{args}", cc, nil); got != "first second" {
		t.Fatalf("got %q", got)
	}
	if got := Resolve("[{args[5]}]", cc, nil); got != "[]" {
		t.Fatalf("out-of-range arg should resolve empty, got %q", got)
	}
}

func TestResolveRandom(t *testing.T) {
	cc := testContext()
	if got := Resolve("{random:7-7}", cc, nil); got != "7" {
		t.Fatalf("degenerate range should return the bound, got %q", got)
	}
	got := Resolve("{random:1-3}", cc, nil)
	if got != "1" && got != "2" && got != "3" {
		t.Fatalf("got %q, want a value in 1..3", got)
	}
	if got := Resolve("{random:5-1}", cc, nil); got != "{random:5-1}" {
		t.Fatalf("inverted range should stay literal, got %q", got)
	}
}

func TestResolveServerVariables(t *testing.T) {
	cc := testContext()
	vars := map[string]string{"welcome": "Hi there", "points": "10"}

	if got := Resolve("{var:welcome}! You have {points}.", cc, vars); got != "Hi there! You have 10." {
		t.Fatalf("got %q", got)
	}
	if got := Resolve("{var:missing} {missing}", cc, vars); got != "{var:missing} {missing}" {
		t.Fatalf("unknown variables should stay literal, got %q", got)
	}
}

func TestResolveVariableCannotSpoofBuiltin(t *testing.T) {
	cc := testContext()
	vars := map[string]string{"args": "spoofed"}
	if got := Resolve("{args}", cc, vars); got != "first second" {
		t.Fatalf("built-in token must win over a same-named variable, got %q", got)
	}
}

func TestResolveSinglePass(t *testing.T) {
	cc := testContext()
	vars := map[string]string{"outer": "{user.id}"}
	if got := Resolve("{var:outer}", cc, vars); got != "{user.id}" {
		t.Fatalf("variable values must not be re-resolved, got %q", got)
	}

	vars = map[string]string{"outer": "{inner}", "inner": "gotcha"}
	if got := Resolve("{var:outer}", cc, vars); got != "{inner}" {
		t.Fatalf("substituted output must not be re-scanned, got %q", got)
	}
	if got := Resolve("{outer} and {inner}", cc, vars); got != "{inner} and gotcha" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveArgumentsStayLiteral(t *testing.T) {
	cc := testContext()
	cc.Args = []string{"{date}", "{var:welcome}"}
	vars := map[string]string{"welcome": "hi"}

	if got := Resolve("{args}", cc, vars); got != "{date} {var:welcome}" {
		t.Fatalf("invoker-supplied tokens must not be interpreted, got %q", got)
	}
	if got := Resolve("{args[0]}", cc, vars); got != "{date}" {
		t.Fatalf("got %q", got)
	}
	if got := Resolve("{args[1]}", cc, vars); got != "{var:welcome}" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveChannelTokensOutsideTextChannel(t *testing.T) {
	cc := testContext()
	cc.Channel = &discordgo.Channel{ID: "v1", Type: discordgo.ChannelTypeGuildVoice}
	for _, template := range []string{"{channel}", "{channel.name}", "{channel.id}"} {
		if got := Resolve(template, cc, nil); got != template {
			t.Errorf("Resolve(%q) = %q, want the literal token", template, got)
		}
	}
}

func TestResolveDateTokens(t *testing.T) {
	cc := testContext()
	got := Resolve("{date}", cc, nil)
	if strings.Contains(got, "{") {
		t.Fatalf("date token not resolved: %q", got)
	}
	if parts := strings.Split(got, "/"); len(parts) != 3 {
		t.Fatalf("unexpected date shape %q", got)
	}
}
