package content

import "testing"

func TestTopicsPerGrade(t *testing.T) {
	for grade := 1; grade <= 3; grade++ {
		topics := Topics(grade)
		if len(topics) != 3 {
			t.Errorf("grade %d: expected 3 topics, got %v", grade, topics)
		}
		for _, topic := range topics {
			if !KnownTopic(grade, topic) {
				t.Errorf("grade %d: catalog topic %q not recognized", grade, topic)
			}
		}
	}

	if Topics(4) != nil {
		t.Error("unknown grade must have no catalog")
	}
}

func TestKnownTopic_WrongGrade(t *testing.T) {
	if KnownTopic(1, "이차방정식") {
		t.Error("이차방정식 is a grade 2 topic")
	}
	if !KnownTopic(2, "이차방정식") {
		t.Error("이차방정식 should be valid for grade 2")
	}
}

func TestKnownRegion(t *testing.T) {
	for _, region := range Regions {
		if !KnownRegion(region) {
			t.Errorf("region %q not recognized", region)
		}
	}
	if KnownRegion("moon") {
		t.Error("unknown region accepted")
	}
}
