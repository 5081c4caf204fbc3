package domain

import "fmt"

// User is an account on the upstream service, independent of any guild.
type User struct {
	ID             Id
	Name           string
	DisplayName    string
	Bot            bool
	Discriminator  *int // nil under the unified-username scheme; raw 0 normalises to nil
	AvatarURLRaw   string
}

// AvatarURL returns the user's avatar, falling back to a default avatar
// derived from the legacy discriminator (mod 5) or, for unified-username
// accounts, from id>>22 (mod 6).
func (u User) AvatarURL() string {
	if u.AvatarURLRaw != "" {
		return u.AvatarURLRaw
	}
	var index int
	if u.Discriminator != nil {
		index = *u.Discriminator % 5
	} else {
		index = int((uint64(u.ID) >> 22) % 6)
	}
	return fmt.Sprintf("https://cdn.discordapp.com/embed/avatars/%d.png", index)
}

// FullName renders "Name#Discriminator" for legacy accounts, else just Name.
func (u User) FullName() string {
	if u.Discriminator != nil {
		return fmt.Sprintf("%s#%04d", u.Name, *u.Discriminator)
	}
	return u.Name
}

// NormalizeDiscriminator implements the "0 -> nil" rule: raw discriminator 0
// means the account is on the unified-username scheme and carries no
// discriminator. No heuristic beyond this simple rule is applied (see
// spec open question).
func NormalizeDiscriminator(raw int) *int {
	if raw == 0 {
		return nil
	}
	v := raw
	return &v
}
