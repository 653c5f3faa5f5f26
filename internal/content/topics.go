package content

// gradeTopics is the middle-school curriculum catalog slots draw from.
var gradeTopics = map[int][]string{
	1: {"일차방정식", "연립방정식", "부등식"},
	2: {"이차방정식", "이차함수", "확률"},
	3: {"삼각비", "원의성질", "통계"},
}

// Regions are the audience regions a slot can target.
var Regions = []string{"asia", "europe", "americas"}

// Topics returns the topic catalog for a grade (1..3).
func Topics(grade int) []string {
	topics, ok := gradeTopics[grade]
	if !ok {
		return nil
	}
	return append([]string{}, topics...)
}

// KnownTopic reports whether a topic belongs to the grade's catalog.
func KnownTopic(grade int, topic string) bool {
	for _, t := range gradeTopics[grade] {
		if t == topic {
			return true
		}
	}
	return false
}

// KnownRegion reports whether a region is a supported audience region.
func KnownRegion(region string) bool {
	for _, r := range Regions {
		if r == region {
			return true
		}
	}
	return false
}
