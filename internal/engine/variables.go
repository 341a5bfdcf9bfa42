package engine

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// substitution pairs a token pattern with its resolver. Resolvers report
// ok=false to leave the matched text untouched.
type substitution struct {
	pattern *regexp.Regexp
	resolve func(cc *CommandContext, vars map[string]string, match []string) (string, bool)
}

// pipeline is the fixed, ordered token set. Built-in tokens take priority
// over server-defined variables so a variable cannot spoof a built-in name.
var pipeline = []substitution{
	{regexp.MustCompile(`\{user\.mention\}|\{user\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return "<@" + cc.UserID + ">", true
	}},
	{regexp.MustCompile(`\{user\.id\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return cc.UserID, true
	}},
	{regexp.MustCompile(`\{user\.name\}|\{user\.username\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return cc.Username, true
	}},
	{regexp.MustCompile(`\{user\.tag\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if cc.Discriminator == "" || cc.Discriminator == "0" {
			return cc.Username, true
		}
		return cc.Username + "#" + cc.Discriminator, true
	}},
	{regexp.MustCompile(`\{user\.avatar\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if cc.User == nil {
			return "", true
		}
		return cc.User.AvatarURL(""), true
	}},
	{regexp.MustCompile(`\{user\.nickname\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if cc.Member != nil && cc.Member.Nick != "" {
			return cc.Member.Nick, true
		}
		return cc.Username, true
	}},
	{regexp.MustCompile(`\{server\.name\}|\{server\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if cc.Guild == nil {
			return "", true
		}
		return cc.Guild.Name, true
	}},
	{regexp.MustCompile(`\{server\.id\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return cc.GuildID, true
	}},
	{regexp.MustCompile(`\{server\.memberCount\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if cc.Guild == nil {
			return "0", true
		}
		return strconv.Itoa(cc.Guild.MemberCount), true
	}},
	{regexp.MustCompile(`\{server\.icon\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if cc.Guild == nil || cc.Guild.Icon == "" {
			return "", true
		}
		return cc.Guild.IconURL(""), true
	}},
	{regexp.MustCompile(`\{channel\.mention\}|\{channel\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if !isTextChannel(cc.Channel) {
			return "", false
		}
		return "<#" + cc.ChannelID + ">", true
	}},
	{regexp.MustCompile(`\{channel\.name\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if !isTextChannel(cc.Channel) {
			return "", false
		}
		return cc.Channel.Name, true
	}},
	{regexp.MustCompile(`\{channel\.id\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		if !isTextChannel(cc.Channel) {
			return "", false
		}
		return cc.ChannelID, true
	}},
	{regexp.MustCompile(`\{args\[(\d+)\]\}`), func(cc *CommandContext, _ map[string]string, match []string) (string, bool) {
		index, err := strconv.Atoi(match[1])
		if err != nil || index < 0 || index >= len(cc.Args) {
			return "", true
		}
		return cc.Args[index], true
	}},
	{regexp.MustCompile(`\{args\}`), func(cc *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return strings.Join(cc.Args, " "), true
	}},
	{regexp.MustCompile(`\{date\}`), func(_ *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return time.Now().Format("01/02/2006"), true
	}},
	{regexp.MustCompile(`\{time\}`), func(_ *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return time.Now().Format("3:04:05 PM"), true
	}},
	{regexp.MustCompile(`\{datetime\}`), func(_ *CommandContext, _ map[string]string, _ []string) (string, bool) {
		return time.Now().Format("01/02/2006 3:04:05 PM"), true
	}},
	{regexp.MustCompile(`\{random:(-?\d+)-(-?\d+)\}`), func(_ *CommandContext, _ map[string]string, match []string) (string, bool) {
		low, err1 := strconv.Atoi(match[1])
		high, err2 := strconv.Atoi(match[2])
		if err1 != nil || err2 != nil || high < low {
			return "", false
		}
		return strconv.Itoa(low + rand.Intn(high-low+1)), true
	}},
	{regexp.MustCompile(`\{var:([A-Za-z0-9_-]+)\}`), func(_ *CommandContext, vars map[string]string, match []string) (string, bool) {
		value, ok := vars[match[1]]
		return value, ok
	}},
	{regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`), func(_ *CommandContext, vars map[string]string, match []string) (string, bool) {
		value, ok := vars[match[1]]
		return value, ok
	}},
}

// Resolve substitutes tokens in a single positional pass over the original
// template. Substituted output is never re-scanned, so a variable value or
// an invoker-supplied argument containing token-shaped text stays literal.
// Unmatched server-variable names stay as literal text too.
func Resolve(template string, cc *CommandContext, vars map[string]string) string {
	var out strings.Builder
	i := 0
	for i < len(template) {
		next := strings.IndexByte(template[i:], '{')
		if next < 0 {
			out.WriteString(template[i:])
			break
		}
		out.WriteString(template[i : i+next])
		i += next

		token, replacement, matched := resolveAt(template[i:], cc, vars)
		if !matched {
			out.WriteByte('{')
			i++
			continue
		}
		out.WriteString(replacement)
		i += len(token)
	}
	return out.String()
}

// resolveAt tries each pipeline pattern anchored at the start of s. The
// first pattern that matches claims the token, whether or not its resolver
// produces a value, so later patterns never see a higher-priority token.
func resolveAt(s string, cc *CommandContext, vars map[string]string) (token, replacement string, matched bool) {
	for _, sub := range pipeline {
		loc := sub.pattern.FindStringSubmatchIndex(s)
		if loc == nil || loc[0] != 0 {
			continue
		}
		match := make([]string, 0, len(loc)/2)
		for j := 0; j < len(loc); j += 2 {
			if loc[j] < 0 {
				match = append(match, "")
				continue
			}
			match = append(match, s[loc[j]:loc[j+1]])
		}
		token = match[0]
		value, ok := sub.resolve(cc, vars, match)
		if !ok {
			return token, token, true
		}
		return token, value, true
	}
	return "", "", false
}

// ResolveVariables resolves a template against the guild's cached
// variables.
func (e *Engine) ResolveVariables(template string, cc *CommandContext) string {
	return Resolve(template, cc, e.Variables(cc.GuildID))
}

func isTextChannel(channel *discordgo.Channel) bool {
	return channel != nil && channel.Type == discordgo.ChannelTypeGuildText
}
