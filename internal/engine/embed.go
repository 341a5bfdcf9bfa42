package engine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"herald-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
)

type embedSpec struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Color       json.RawMessage `json:"color"`
	URL         string          `json:"url"`
	Thumbnail   string          `json:"thumbnail"`
	Image       string          `json:"image"`
	Author      *embedAuthor    `json:"author"`
	Footer      *embedFooter    `json:"footer"`
	Timestamp   bool            `json:"timestamp"`
	Fields      []embedField    `json:"fields"`
}

type embedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
	URL     string `json:"url"`
}

type embedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// BuildEmbed converts a command's embed JSON into a rich-message payload,
// passing every text-bearing field through the variable resolver. Malformed
// JSON yields an error-indicator embed instead of an error.
func (e *Engine) BuildEmbed(embedJSON string, cc *CommandContext) *discordgo.MessageEmbed {
	return buildEmbed(embedJSON, cc, e.Variables(cc.GuildID), e.opts.ErrorColor)
}

func buildEmbed(embedJSON string, cc *CommandContext, vars map[string]string, errorColor int) *discordgo.MessageEmbed {
	var spec embedSpec
	if err := json.Unmarshal([]byte(embedJSON), &spec); err != nil {
		return &discordgo.MessageEmbed{
			Color:       errorColor,
			Description: "This command's embed is misconfigured.",
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       Resolve(spec.Title, cc, vars),
		Description: Resolve(spec.Description, cc, vars),
		Color:       parseColor(spec.Color),
	}
	if utils.ValidURL(spec.URL) {
		embed.URL = spec.URL
	}
	if thumb := Resolve(spec.Thumbnail, cc, vars); utils.ValidURL(thumb) {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumb}
	}
	if image := Resolve(spec.Image, cc, vars); utils.ValidURL(image) {
		embed.Image = &discordgo.MessageEmbedImage{URL: image}
	}
	if spec.Author != nil {
		author := &discordgo.MessageEmbedAuthor{Name: Resolve(spec.Author.Name, cc, vars)}
		if utils.ValidURL(spec.Author.IconURL) {
			author.IconURL = spec.Author.IconURL
		}
		if utils.ValidURL(spec.Author.URL) {
			author.URL = spec.Author.URL
		}
		embed.Author = author
	}
	if spec.Footer != nil {
		footer := &discordgo.MessageEmbedFooter{Text: Resolve(spec.Footer.Text, cc, vars)}
		if utils.ValidURL(spec.Footer.IconURL) {
			footer.IconURL = spec.Footer.IconURL
		}
		embed.Footer = footer
	}
	if spec.Timestamp {
		embed.Timestamp = time.Now().Format(time.RFC3339)
	}
	for _, field := range spec.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   Resolve(field.Name, cc, vars),
			Value:  Resolve(field.Value, cc, vars),
			Inline: field.Inline,
		})
	}
	return embed
}

// parseColor accepts a numeric color or a hex string ("#5865F2", "0x5865F2"
// or bare hex). Anything unparseable comes back as zero.
func parseColor(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var number int
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0
	}
	text = strings.TrimPrefix(strings.TrimPrefix(text, "#"), "0x")
	value, err := strconv.ParseInt(text, 16, 32)
	if err != nil {
		return 0
	}
	return int(value)
}
