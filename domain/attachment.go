package domain

import (
	"strings"
)

// Attachment is a file uploaded alongside a message.
type Attachment struct {
	ID       Id
	URL      string
	FileName string
	Size     int
	Width    *int
	Height   *int
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tiff": true, ".svg": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".mkv": true, ".avi": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true, ".m4a": true,
}

func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}

// IsImage reports whether the attachment's file extension is a known image type.
func (a Attachment) IsImage() bool { return imageExtensions[extensionOf(a.FileName)] }

// IsVideo reports whether the attachment's file extension is a known video type.
func (a Attachment) IsVideo() bool { return videoExtensions[extensionOf(a.FileName)] }

// IsAudio reports whether the attachment's file extension is a known audio type.
func (a Attachment) IsAudio() bool { return audioExtensions[extensionOf(a.FileName)] }

// IsSpoiler reports whether the file name carries the SPOILER_ marker prefix.
func (a Attachment) IsSpoiler() bool { return strings.HasPrefix(a.FileName, "SPOILER_") }
