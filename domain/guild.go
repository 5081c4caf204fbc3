package domain

// Guild is the top-level container for channels, members and roles.
// A sentinel Guild with ID 0 represents the direct-message context.
type Guild struct {
	ID      Id
	Name    string
	IconURL string
}

// DirectMessageGuild is the sentinel guild used when exporting a DM or
// group-DM channel, which has no real guild.
var DirectMessageGuild = Guild{ID: 0, Name: "Direct Messages"}

// IsDirectMessages reports whether g is the DM sentinel guild.
func (g Guild) IsDirectMessages() bool { return g.ID == 0 }
