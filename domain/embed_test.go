package domain

import "testing"

func TestNormalizeEmbedsAbsorbsConsecutiveImages(t *testing.T) {
	embeds := []Embed{
		{URL: "https://twitter.com/a/status/1", Title: "A tweet", Description: "hello"},
		{URL: "https://twitter.com/a/status/1", Image: &EmbedMedia{URL: "img1"}},
		{URL: "https://twitter.com/a/status/1", Image: &EmbedMedia{URL: "img2"}},
	}
	got := NormalizeEmbeds(embeds)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Image == nil || got[0].Image.URL != "img1" {
		t.Errorf("expected first image absorbed, got %+v", got[0].Image)
	}
}

func TestNormalizeEmbedsIdempotent(t *testing.T) {
	embeds := []Embed{
		{URL: "https://x.com/a/status/1", Title: "t"},
		{URL: "https://x.com/a/status/1", Image: &EmbedMedia{URL: "img1"}},
		{URL: "https://example.com/other", Title: "unrelated"},
	}
	once := NormalizeEmbeds(embeds)
	twice := NormalizeEmbeds(once)
	if len(once) != len(twice) {
		t.Fatalf("not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].URL != twice[i].URL {
			t.Errorf("element %d differs after second pass", i)
		}
	}
}

func TestNormalizeEmbedsLeavesUnrelatedHostsAlone(t *testing.T) {
	embeds := []Embed{
		{URL: "https://example.com/a", Title: "A"},
		{URL: "https://example.com/a", Image: &EmbedMedia{URL: "img"}},
	}
	got := NormalizeEmbeds(embeds)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (non-listed host should not coalesce)", len(got))
	}
}
