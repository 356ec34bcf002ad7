package leagues

// PointDelta is what one match contributes to one team's row.
type PointDelta struct {
	Perspective
	Base    int
	Bonus   int
	Bonuses []Condition
}

func (d PointDelta) Total() int {
	return d.Base + d.Bonus
}

// Evaluate looks up the base points for the perspective's outcome and adds
// every configured bonus whose condition the match satisfied. A missing rule
// is a configuration fault and is never defaulted to zero.
func Evaluate(config PointSystemConfig, p Perspective) (PointDelta, error) {
	base, ok := config.pointsFor(p.Outcome)
	if !ok {
		return PointDelta{}, &MissingPointRuleError{Outcome: p.Outcome}
	}

	delta := PointDelta{Perspective: p, Base: base}
	for _, bonus := range config.BonusPoints {
		if !hasCondition(p.Conditions, bonus.Condition) {
			continue
		}
		delta.Bonus += bonus.Points
		delta.Bonuses = append(delta.Bonuses, bonus.Condition)
	}
	return delta, nil
}

// EvaluateMatch evaluates both perspectives of a classified match.
func EvaluateMatch(config PointSystemConfig, c Classification) (home, away PointDelta, err error) {
	home, err = Evaluate(config, c.Home)
	if err != nil {
		return PointDelta{}, PointDelta{}, err
	}
	away, err = Evaluate(config, c.Away)
	if err != nil {
		return PointDelta{}, PointDelta{}, err
	}
	return home, away, nil
}

func hasCondition(conditions []Condition, target Condition) bool {
	for _, condition := range conditions {
		if condition == target {
			return true
		}
	}
	return false
}
