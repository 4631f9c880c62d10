package language

import "strings"

// Undetermined is the ISO 639-2 code for streams without a usable tag.
const Undetermined = "und"

type entry struct {
	code2   string // ISO 639-1
	bib     string // ISO 639-2/B, written to Matroska
	term    string // ISO 639-2/T when it differs from bib
	display string
	words   []string
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "castilian"}},
	{"fr", "fre", "fra", "French", []string{"french"}},
	{"de", "ger", "deu", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "chi", "zho", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "dut", "nld", "Dutch", []string{"dutch", "flemish"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
	{"cs", "cze", "ces", "Czech", []string{"czech"}},
	{"el", "gre", "ell", "Greek", []string{"greek"}},
	{"tr", "tur", "", "Turkish", []string{"turkish"}},
	{"hu", "hun", "", "Hungarian", []string{"hungarian"}},
}

var index map[string]*entry

func init() {
	index = make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		index[e.code2] = e
		index[e.bib] = e
		if e.term != "" {
			index[e.term] = e
		}
		for _, w := range e.words {
			index[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	// BCP 47 tags such as "en-US" resolve by their primary subtag.
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return index[code]
}

// Matroska converts a language code or word to the ISO 639-2/B code stored
// in Matroska track headers. Unknown three-letter codes pass through; all
// other unrecognized input becomes "und".
func Matroska(code string) string {
	if e := lookup(code); e != nil {
		return e.bib
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) == 3 && isLetters(code) {
		return code
	}
	return Undetermined
}

// DisplayName returns a human-readable name for code, the uppercased code
// when it is not recognized, or "" for undetermined input.
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, Undetermined) {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(code)
}

// FromTags reads the language from stream tags and normalizes it. Keys vary
// by muxer, so the common spellings are checked in order.
func FromTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		value, ok := tags[key]
		if !ok {
			continue
		}
		value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
		if value != "" {
			return Matroska(value)
		}
	}
	return Undetermined
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
