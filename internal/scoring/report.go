package scoring

// GateThreshold is the level average required to unlock the next level.
const GateThreshold = 75.0

// CertificateThreshold is the share of total exam points required for a
// certificate-eligible result.
const CertificateThreshold = 50.0

// SkillPoints accumulates earned and possible points for one skill.
type SkillPoints struct {
	Earned   float64
	Possible float64
}

// Percentage returns earned over possible as 0-100, zero when nothing was
// possible.
func (p SkillPoints) Percentage() float64 {
	if p.Possible <= 0 {
		return 0
	}
	return p.Earned / p.Possible * 100
}

// LevelResult summarizes one completed level.
type LevelResult struct {
	Level     string
	Questions []QuestionScore
	Average   float64
	Passed    bool
}

// PlannedQuestion declares one question the full exam would ask, used to
// size the total-possible denominator.
type PlannedQuestion struct {
	QuestionType string
	Count        int
}

// Report is the cumulative exam outcome: points earned measured against
// the entire planned exam, not just the levels reached, so stopping at B1
// reads as a partial result rather than a perfect one.
type Report struct {
	OverallScore          float64
	PointsEarned          float64
	PointsPossible        float64
	SkillBreakdown        map[string]SkillPoints
	QuestionsAttempted    int
	TotalQuestionsPlanned int
	CompletionPercentage  float64
	HighestLevelAttempted string
	LevelsAttempted       []string
	Levels                []LevelResult
	CertificateEligible   bool
}

// BuildReport aggregates completed levels against the full exam plan.
func BuildReport(levels []LevelResult, plan []PlannedQuestion) Report {
	breakdown := make(map[string]SkillPoints, len(Skills))

	// Total possible: each planned question is worth 100 points spread by
	// its profile weights.
	var totalPlanned int
	for _, pq := range plan {
		profile := ProfileFor(pq.QuestionType)
		totalPlanned += pq.Count
		for _, skill := range Skills {
			sp := breakdown[skill]
			sp.Possible += float64(pq.Count) * 100 * profile[skill]
			breakdown[skill] = sp
		}
	}

	var attempted int
	var attemptedLevels []string
	highest := ""
	for _, lr := range levels {
		attempted += len(lr.Questions)
		attemptedLevels = append(attemptedLevels, lr.Level)
		highest = lr.Level
		for _, qs := range lr.Questions {
			for _, skill := range Skills {
				sp := breakdown[skill]
				sp.Earned += qs.Weighted[skill]
				breakdown[skill] = sp
			}
		}
	}

	var earned, possible float64
	for _, skill := range Skills {
		earned += breakdown[skill].Earned
		possible += breakdown[skill].Possible
	}

	overall := 0.0
	if possible > 0 {
		overall = earned / possible * 100
	}
	completion := 0.0
	if totalPlanned > 0 {
		completion = float64(attempted) / float64(totalPlanned) * 100
	}

	return Report{
		OverallScore:          overall,
		PointsEarned:          earned,
		PointsPossible:        possible,
		SkillBreakdown:        breakdown,
		QuestionsAttempted:    attempted,
		TotalQuestionsPlanned: totalPlanned,
		CompletionPercentage:  completion,
		HighestLevelAttempted: highest,
		LevelsAttempted:       attemptedLevels,
		Levels:                levels,
		CertificateEligible:   overall >= CertificateThreshold,
	}
}
