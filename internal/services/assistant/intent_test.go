package assistant

import "testing"

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		in   string
		want Intent
	}{
		{"I'm hungry, what's the traffic like", IntentTraffic},
		{"hello, where can I park?", IntentParking},
		{"find me an empty room", IntentClassroom},
		{"CLASSROOM please", IntentClassroom},
		{"is the classroom near the lift free", IntentClassroom},
		{"which elevator is quickest", IntentElevator},
		{"lift me up", IntentElevator},
		{"let's go", IntentTraffic},
		{"how long to get home", IntentTraffic},
		{"is the car park full", IntentParking},
		{"plan my course", IntentCoursePlan},
		{"where can I study", IntentLibrary},
		{"what should I eat", IntentFood},
		{"thanks!", IntentThanks},
		{"hi there", IntentGreeting},
		{"good morning", IntentGreeting},
		// whole-word keywords must not match inside other words
		{"google maps", IntentUnmatched},
		{"that's great", IntentUnmatched},
		{"this is a high shelf", IntentUnmatched},
		{"uplifting music", IntentUnmatched},
		{"", IntentUnmatched},
		{"   ", IntentUnmatched},
	}
	for _, tc := range cases {
		if got := Classify(DefaultRules, tc.in); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestClassifyCustomRules(t *testing.T) {
	rules := []Rule{{IntentFood, Keywords([]string{"pizza"}, nil)}}
	if got := Classify(rules, "Pizza time"); got != IntentFood {
		t.Fatalf("got %s", got)
	}
	if got := Classify(rules, "traffic"); got != IntentUnmatched {
		t.Fatalf("got %s", got)
	}
}

func TestModeOf(t *testing.T) {
	cases := map[string]mode{
		"recommend a lot":       modeBest,
		"best place to eat":     modeBest,
		"which stall to avoid":  modeWorst,
		"worst traffic":         modeWorst,
		"how is parking today?": modeSummary,
	}
	for in, want := range cases {
		if got := modeOf(in); got != want {
			t.Errorf("modeOf(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFloorOf(t *testing.T) {
	if got := floorOf("from floor 4 to c1001"); got != 4 {
		t.Fatalf("floorOf = %d", got)
	}
	if got := floorOf("to c1001"); got != 1 {
		t.Fatalf("default floor = %d", got)
	}
}
