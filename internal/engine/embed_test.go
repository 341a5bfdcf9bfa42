package engine

import (
	"encoding/json"
	"testing"
)

func TestBuildEmbedResolvesFields(t *testing.T) {
	cc := testContext()
	vars := map[string]string{"motd": "stay hydrated"}
	raw := `{
		"title": "Welcome {user.name}",
		"description": "{var:motd}",
		"color": "#5865F2",
		"fields": [
			{"name": "Server", "value": "{server.name}", "inline": true}
		]
	}`

	embed := buildEmbed(raw, cc, vars, 0xED4245)
	if embed.Title != "Welcome Alice" {
		t.Fatalf("title = %q", embed.Title)
	}
	if embed.Description != "stay hydrated" {
		t.Fatalf("description = %q", embed.Description)
	}
	if embed.Color != 0x5865F2 {
		t.Fatalf("color = %#x", embed.Color)
	}
	if len(embed.Fields) != 1 || embed.Fields[0].Value != "Testers" || !embed.Fields[0].Inline {
		t.Fatalf("fields = %+v", embed.Fields)
	}
}

func TestBuildEmbedMalformedJSON(t *testing.T) {
	cc := testContext()
	embed := buildEmbed(`{"title": `, cc, nil, 0xED4245)
	if embed.Color != 0xED4245 {
		t.Fatalf("color = %#x", embed.Color)
	}
	if embed.Description != "This command's embed is misconfigured." {
		t.Fatalf("description = %q", embed.Description)
	}
}

func TestBuildEmbedDropsInvalidURLs(t *testing.T) {
	cc := testContext()
	raw := `{
		"url": "javascript:alert(1)",
		"thumbnail": "not a url",
		"image": "https://example.com/banner.png",
		"author": {"name": "Herald", "icon_url": "ftp://example.com/x.png"},
		"footer": {"text": "bye", "icon_url": "https://example.com/icon.png"}
	}`

	embed := buildEmbed(raw, cc, nil, 0)
	if embed.URL != "" {
		t.Fatalf("url should be dropped, got %q", embed.URL)
	}
	if embed.Thumbnail != nil {
		t.Fatalf("thumbnail should be dropped, got %+v", embed.Thumbnail)
	}
	if embed.Image == nil || embed.Image.URL != "https://example.com/banner.png" {
		t.Fatalf("image = %+v", embed.Image)
	}
	if embed.Author == nil || embed.Author.IconURL != "" {
		t.Fatalf("author = %+v", embed.Author)
	}
	if embed.Footer == nil || embed.Footer.IconURL != "https://example.com/icon.png" {
		t.Fatalf("footer = %+v", embed.Footer)
	}
}

func TestBuildEmbedTimestamp(t *testing.T) {
	cc := testContext()
	embed := buildEmbed(`{"timestamp": true}`, cc, nil, 0)
	if embed.Timestamp == "" {
		t.Fatal("expected a timestamp")
	}
	embed = buildEmbed(`{"timestamp": false}`, cc, nil, 0)
	if embed.Timestamp != "" {
		t.Fatalf("unexpected timestamp %q", embed.Timestamp)
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{`5793266`, 5793266},
		{`"#5865F2"`, 0x5865F2},
		{`"0x2ECC71"`, 0x2ECC71},
		{`"ED4245"`, 0xED4245},
		{`"chartreuse"`, 0},
		{`null`, 0},
	}
	for _, tc := range cases {
		if got := parseColor(json.RawMessage(tc.raw)); got != tc.want {
			t.Errorf("parseColor(%s) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}
