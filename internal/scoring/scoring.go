// Package scoring turns raw skill scores into weighted question scores,
// level averages, and the cumulative exam report.
package scoring

// Skill names scored by the evaluator.
const (
	SkillPronunciation = "pronunciation"
	SkillFluency       = "fluency"
	SkillGrammar       = "grammar"
	SkillVocabulary    = "vocabulary"
)

// Skills lists every scored skill in report order.
var Skills = []string{SkillPronunciation, SkillFluency, SkillGrammar, SkillVocabulary}

// Profile weights skills for one question kind. Weights need not sum to 1;
// they are normalized where an average is taken.
type Profile map[string]float64

// The two profiles the exam uses: scripted repetition scores pronunciation
// only; open speech mixes all four skills, fluency-heavy.
var (
	ProfilePronOnly = Profile{
		SkillPronunciation: 1.0,
		SkillFluency:       0.0,
		SkillGrammar:       0.0,
		SkillVocabulary:    0.0,
	}
	ProfileUnscriptedMixed = Profile{
		SkillPronunciation: 0.25,
		SkillFluency:       0.55,
		SkillGrammar:       0.1,
		SkillVocabulary:    0.1,
	}
)

// ProfileFor maps a question type name to its scoring profile.
func ProfileFor(questionType string) Profile {
	switch questionType {
	case "repeat_sentence", "minimal_pair":
		return ProfilePronOnly
	default:
		return ProfileUnscriptedMixed
	}
}

// QuestionScore is one evaluated response.
type QuestionScore struct {
	QuestionID string
	// Weighted holds per-skill scores already multiplied by the profile
	// weight (a question is worth 100 points distributed by weight).
	Weighted map[string]float64
	// Overall is the profile-weighted 0-100 score for the question.
	Overall float64
}

// Apply weights raw 0-100 skill scores by the profile and computes the
// overall. Skills scored zero carry no weight in the overall, so a broken
// evaluator dimension cannot drag a response to the floor.
func (p Profile) Apply(questionID string, raw map[string]float64) QuestionScore {
	weighted := make(map[string]float64, len(Skills))
	var sum, weightTotal float64
	for _, skill := range Skills {
		w := p[skill]
		v := raw[skill]
		weighted[skill] = v * w
		if v > 0 && w > 0 {
			sum += v * w
			weightTotal += w
		}
	}
	overall := 0.0
	if weightTotal > 0 {
		overall = sum / weightTotal
	}
	return QuestionScore{QuestionID: questionID, Weighted: weighted, Overall: overall}
}

// LevelAverage is the mean overall score of a level's questions.
func LevelAverage(scores []QuestionScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Overall
	}
	return sum / float64(len(scores))
}
