// Package language normalizes stream language tags for Matroska output.
//
// Sources tag streams with ISO 639-1 codes, ISO 639-2 terminology codes, or
// plain words. Matroska headers carry ISO 639-2 bibliographic codes ("fre",
// "ger"), so everything is mapped to that form before it reaches the muxer.
package language
