package transcode

import (
	"fmt"

	"vidqueue/internal/language"
	"vidqueue/internal/media/ffprobe"
	"vidqueue/internal/queue"
)

// Kind identifies a track variant.
type Kind int

const (
	KindVideo Kind = iota
	KindAudio
	KindText
	KindMenu
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindText:
		return "text"
	case KindMenu:
		return "menu"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StepSpec is one step to submit: a display label and the work it performs.
type StepSpec struct {
	Label   string
	Payload queue.Payload
}

// Track contributes the steps that produce one intermediate file. Process
// registers that file with the plan so the mux step picks it up.
type Track interface {
	Kind() Kind
	Process(plan *Plan) []StepSpec
}

// VideoTrack encodes the primary video stream.
type VideoTrack struct {
	Stream ffprobe.Stream
}

// AudioTrack extracts and re-encodes one audio stream. Number is 1-based
// among the source's audio streams.
type AudioTrack struct {
	Stream ffprobe.Stream
	Number int
}

// TextTrack extracts one subtitle stream unchanged.
type TextTrack struct {
	Stream ffprobe.Stream
	Number int
}

// MenuTrack exports the source chapters as an ffmetadata file.
type MenuTrack struct {
	Chapters []ffprobe.Chapter
}

func (VideoTrack) Kind() Kind { return KindVideo }
func (AudioTrack) Kind() Kind { return KindAudio }
func (TextTrack) Kind() Kind  { return KindText }
func (MenuTrack) Kind() Kind  { return KindMenu }

// trackTitle keeps the source title, falling back to the language name so
// players show something better than the bare code.
func trackTitle(stream ffprobe.Stream) string {
	if title := stream.Title(); title != "" {
		return title
	}
	return language.DisplayName(stream.Language())
}
