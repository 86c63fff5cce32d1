package logic

import "testing"

func TestParseLineRecognizedTemplates(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Update
	}{
		{
			name: "new teams availability",
			line: "2024-02-07T10:15:01.123+01:00 0x00004a2c <INFO> native_modules::UserDataCrossCloudModule: BroadcastGlobalState: New state: availability: Busy, unread notification count: 3",
			want: Update{Status: StatusBusy, Activity: ActivityNone},
		},
		{
			name: "availability on the phone",
			line: "... availability: OnThePhone, unread notification count: 0",
			want: Update{Status: StatusBusy, Activity: ActivityInACall},
		},
		{
			name: "availability lower case",
			line: "availability: available, unread notification count: 0",
			want: Update{Status: StatusAvailable, Activity: ActivityNone},
		},
		{
			name: "status changed to",
			line: "[12:00:01] pid=4411 presence status changed to Busy",
			want: Update{Status: StatusBusy, Activity: ActivityNone},
		},
		{
			name: "status changed to upper case",
			line: "STATUS CHANGED TO AWAY",
			want: Update{Status: StatusAway, Activity: ActivityNone},
		},
		{
			name: "status changed to multi word",
			line: "x status changed to Be Right Back",
			want: Update{Status: StatusBeRightBack, Activity: ActivityNone},
		},
		{
			name: "status changed to do not disturb",
			line: "[09:12:44] status changed to Do Not Disturb",
			want: Update{Status: StatusDoNotDisturb, Activity: ActivityNone},
		},
		{
			name: "status changed to with trailing words",
			line: "status changed to Away since 10:00",
			want: Update{Status: StatusAway, Activity: ActivityNone},
		},
		{
			name: "classic status indicator",
			line: "Tue Feb 06 2024 09:01:02 GMT+0100 <5312> -- info -- StatusIndicatorStateService: Added InAMeeting (current state: Available -> InAMeeting)",
			want: Update{Status: StatusBusy, Activity: ActivityInAMeeting},
		},
		{
			name: "classic taskbar overlay multi word",
			line: "Tue Feb 06 2024 09:01:02 GMT+0100 <5312> -- info -- Setting the taskbar overlay icon - Be right back",
			want: Update{Status: StatusBeRightBack, Activity: ActivityNone},
		},
		{
			name: "presenting",
			line: "availability: Presenting, unread notification count: 1",
			want: Update{Status: StatusDoNotDisturb, Activity: ActivityPresenting},
		},
		{
			name: "do not disturb",
			line: "availability: DoNotDisturb, unread notification count: 1",
			want: Update{Status: StatusDoNotDisturb, Activity: ActivityNone},
		},
		{
			name: "appear offline",
			line: "Setting the taskbar overlay icon - Appear offline",
			want: Update{Status: StatusOffline, Activity: ActivityNone},
		},
		{
			name: "call start marker",
			line: "2024-02-07T10:00:00 WebViewWindowWin: show window tags=Call,Meeting Window previously was visible = false",
			want: Update{Activity: ActivityInACall},
		},
		{
			name: "call end marker",
			line: "2024-02-07T10:30:00 BluetoothRadioManager: Device watcher is Started.",
			want: Update{Activity: ActivityNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			if !ok {
				t.Fatalf("ParseLine(%q) = no match, want %+v", tt.line, tt.want)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseLineUnrecognized(t *testing.T) {
	lines := []string{
		"",
		"2024-02-07T10:15:01 <INFO> something unrelated happened",
		"availability: Sparkling, unread notification count: 0",
		"Setting the taskbar overlay icon - No Network",
		"WebViewWindowWin: tags=Chat Window previously was visible = false",
		"availability:",
		"status changed to",
		"\xff\xfe availability \xc3",
	}
	for _, line := range lines {
		if got, ok := ParseLine(line); ok {
			t.Errorf("ParseLine(%q) = %+v, want no match", line, got)
		}
	}
}

func TestParseLineInvalidUTF8AroundMatch(t *testing.T) {
	got, ok := ParseLine("\xff\xfe garbage availability: Away, unread notification count: 0")
	if !ok {
		t.Fatal("expected match despite invalid bytes in prefix")
	}
	if got.Status != StatusAway {
		t.Errorf("status: got %s, want Away", got.Status)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		token string
		want  StatusState
		ok    bool
	}{
		{"Available", StatusState{StatusAvailable, ActivityNone}, true},
		{"be right back", StatusState{StatusBeRightBack, ActivityNone}, true},
		{"In-A-Call", StatusState{StatusBusy, ActivityInACall}, true},
		{"", StatusState{}, false},
		{"Unknown", StatusState{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseStatus(tt.token)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseStatus(%q) = %+v, %v; want %+v, %v", tt.token, got, ok, tt.want, tt.ok)
		}
	}
}
