package exportctx

import (
	"testing"
	"time"

	"github.com/archiveworks/chatexport/domain"
)

func TestResolveLocaleFallsBackToEnglishOnEmptyOrInvalid(t *testing.T) {
	for _, raw := range []string{"", "not-a-tag-!!"} {
		l := ResolveLocale(raw)
		base, _ := l.tag.Base()
		if base.String() != "en" {
			t.Fatalf("ResolveLocale(%q) base = %q, want en", raw, base.String())
		}
	}
}

func TestResolveLocaleParsesValidTag(t *testing.T) {
	l := ResolveLocale("de-DE")
	base, _ := l.tag.Base()
	if base.String() != "de" {
		t.Fatalf("base = %q, want de", base.String())
	}
}

func TestFormatTimestampRelativeCode(t *testing.T) {
	l := ResolveLocale("en")
	past := time.Now().Add(-2 * time.Hour)
	got := l.FormatTimestamp(past, 'R')
	if got != "2 hours ago" {
		t.Fatalf("FormatTimestamp(R) = %q, want %q", got, "2 hours ago")
	}
}

func TestFormatTimestampShortDateVariesByLocale(t *testing.T) {
	ref := time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC).Local()
	en := ResolveLocale("en-US").FormatTimestamp(ref, 'd')
	de := ResolveLocale("de-DE").FormatTimestamp(ref, 'd')
	if en == de {
		t.Fatalf("expected locale to change short date layout, both got %q", en)
	}
}

func TestFormatTimestampUTCNormalizationOverridesLocalZone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	ref := time.Date(2024, time.March, 5, 1, 0, 0, 0, loc) // 2024-03-04 16:00 UTC
	l := ResolveLocale("en").withUTC(true)
	got := l.FormatTimestamp(ref, 'd')
	want := "Mar 4, 2024"
	if got != want {
		t.Fatalf("FormatTimestamp with UTC normalization = %q, want %q", got, want)
	}
}

func TestContextUTCNormalizeOptionFlowsToFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	ref := time.Date(2024, time.March, 5, 1, 0, 0, 0, loc)
	c := New(Options{Locale: "en", UTCNormalize: true})
	got := c.FormatTimestamp(ref, 'd')
	if got != "Mar 4, 2024" {
		t.Fatalf("Context.FormatTimestamp with UTCNormalize = %q, want %q", got, "Mar 4, 2024")
	}
}

func TestContextUserColorPicksHighestPositionNonNilColor(t *testing.T) {
	c := New(Options{GuildID: domain.Id(1)})
	red := domain.NormalizeColor(0xFF0000)

	c.roleByID[domain.Id(10)] = domain.Role{ID: domain.Id(10), Position: 1, Color: nil}
	c.roleByID[domain.Id(20)] = domain.Role{ID: domain.Id(20), Position: 5, Color: red}
	c.roleByID[domain.Id(30)] = domain.Role{ID: domain.Id(30), Position: 3, Color: domain.NormalizeColor(0x00FF00)}

	c.memberByID[domain.Id(99)] = &domain.Member{
		User:    domain.User{ID: domain.Id(99)},
		RoleIDs: []domain.Id{domain.Id(10), domain.Id(20), domain.Id(30)},
	}

	got := c.UserColor(domain.Id(99))
	if got == nil || *got != *red {
		t.Fatalf("UserColor = %v, want role 20's colour (highest position)", got)
	}
}

func TestContextUserRolesOrderedByPositionDescending(t *testing.T) {
	c := New(Options{GuildID: domain.Id(1)})
	c.roleByID[domain.Id(10)] = domain.Role{ID: domain.Id(10), Position: 1}
	c.roleByID[domain.Id(20)] = domain.Role{ID: domain.Id(20), Position: 5}
	c.memberByID[domain.Id(99)] = &domain.Member{
		User:    domain.User{ID: domain.Id(99)},
		RoleIDs: []domain.Id{domain.Id(10), domain.Id(20)},
	}

	roles := c.UserRoles(domain.Id(99))
	if len(roles) != 2 || roles[0].ID != domain.Id(20) || roles[1].ID != domain.Id(10) {
		t.Fatalf("UserRoles = %+v, want [20, 10]", roles)
	}
}

func TestResolveAssetURLReturnsOriginalWhenDownloadDisabled(t *testing.T) {
	c := New(Options{ShouldDownloadAssets: false})
	got := c.ResolveAssetURL(nil, "https://example.com/a.png")
	if got != "https://example.com/a.png" {
		t.Fatalf("ResolveAssetURL = %q, want unchanged url", got)
	}
}
