package logic

import (
	"regexp"
	"strings"
)

// statusTemplates are the presence phrases Teams writes to its log. Each
// captures a status token or a short phrase such as "Be right back";
// surrounding metadata is ignored.
var statusTemplates = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bavailability:\s*([a-z]+)`),
	regexp.MustCompile(`(?i)\bstatus changed to\s+([a-z]+(?: [a-z]+)*)`),
	regexp.MustCompile(`(?i)StatusIndicatorStateService:\s*Added\s+([a-z]+)`),
	regexp.MustCompile(`(?i)Setting the taskbar overlay icon\s*-\s*([a-z ]+)`),
}

var (
	callStart = regexp.MustCompile(`(?i)WebViewWindowWin:.*tags=Call.*Window previously was visible = false`)
	callEnd   = regexp.MustCompile(`(?i)BluetoothRadioManager: Device watcher is Started`)
)

// tokens maps a normalized status token to the state it represents.
// Keys are lowercase with spaces and punctuation removed.
var tokens = map[string]StatusState{
	"available":         {StatusAvailable, ActivityNone},
	"busy":              {StatusBusy, ActivityNone},
	"donotdisturb":      {StatusDoNotDisturb, ActivityNone},
	"dnd":               {StatusDoNotDisturb, ActivityNone},
	"focusing":          {StatusDoNotDisturb, ActivityNone},
	"berightback":       {StatusBeRightBack, ActivityNone},
	"away":              {StatusAway, ActivityNone},
	"offline":           {StatusOffline, ActivityNone},
	"appearoffline":     {StatusOffline, ActivityNone},
	"onthephone":        {StatusBusy, ActivityInACall},
	"inacall":           {StatusBusy, ActivityInACall},
	"inaconferencecall": {StatusBusy, ActivityInACall},
	"inameeting":        {StatusBusy, ActivityInAMeeting},
	"presenting":        {StatusDoNotDisturb, ActivityPresenting},
}

// ParseLine extracts a presence update from one raw log line.
// It returns false for lines that carry no recognized presence information,
// which is the common case.
func ParseLine(line string) (Update, bool) {
	for _, re := range statusTemplates {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		st, ok := lookupPhrase(m[1])
		if !ok {
			// A known template with an unknown token: Teams added a state we
			// do not understand. Treat as inert rather than guess.
			return Update{}, false
		}
		return Update{Status: st.Status, Activity: st.Activity}, true
	}

	if callStart.MatchString(line) {
		return Update{Activity: ActivityInACall}, true
	}
	if callEnd.MatchString(line) {
		return Update{Activity: ActivityNone}, true
	}
	return Update{}, false
}

// ParseStatus normalizes a status token such as "OnThePhone" or
// "be right back" into a state.
func ParseStatus(token string) (StatusState, bool) {
	return lookupToken(token)
}

func lookupToken(token string) (StatusState, bool) {
	st, ok := tokens[normalizeToken(token)]
	return st, ok
}

// lookupPhrase tries the longest leading run of words first, so trailing
// prose after a known phrase ("Away since 10:00") does not hide it.
func lookupPhrase(phrase string) (StatusState, bool) {
	words := strings.Fields(phrase)
	for n := len(words); n > 0; n-- {
		if st, ok := lookupToken(strings.Join(words[:n], " ")); ok {
			return st, true
		}
	}
	return StatusState{}, false
}

func normalizeToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
