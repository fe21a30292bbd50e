package domain

import (
	"sort"
	"strings"
)

// DefaultAudioFormat is assumed when a client supplies no format hint.
// Browser MediaRecorder captures default to webm.
const DefaultAudioFormat = "webm"

// audioMIMETypes maps accepted container extensions to their MIME types.
var audioMIMETypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
}

// SupportedAudioFormat reports whether ext names an accepted audio container.
func SupportedAudioFormat(ext string) bool {
	_, ok := audioMIMETypes[strings.ToLower(ext)]
	return ok
}

// AudioMIMEType returns the MIME type for ext, falling back to the default
// format's type when the extension is unknown.
func AudioMIMEType(ext string) string {
	if mime, ok := audioMIMETypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return audioMIMETypes[DefaultAudioFormat]
}

// AudioFormatFromFilename extracts the lowercased extension from an uploaded
// filename. A name without an extension yields the default format.
func AudioFormatFromFilename(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return DefaultAudioFormat
	}
	return strings.ToLower(name[idx+1:])
}

// SupportedAudioFormats returns the accepted extensions, sorted for stable
// error messages.
func SupportedAudioFormats() []string {
	exts := make([]string, 0, len(audioMIMETypes))
	for ext := range audioMIMETypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
