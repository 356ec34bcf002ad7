package leagues

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks faults in a league's point system or tiebreaker
	// chain. They abort a computation and are never auto-corrected.
	ErrConfiguration = errors.New("standings configuration error")
	// ErrUnclassifiable marks a match result the classifier cannot map to an
	// outcome. Such matches are excluded and reported as warnings.
	ErrUnclassifiable = errors.New("unclassifiable match result")
	// ErrUnresolvedTie marks teams left level after the whole tiebreaker chain.
	ErrUnresolvedTie = errors.New("unresolved tie")
)

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%v: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// MissingPointRuleError reports an outcome the classifier produced for which
// the point system has no rule.
type MissingPointRuleError struct {
	Outcome Outcome
}

func (e *MissingPointRuleError) Error() string {
	return fmt.Sprintf("%v: no point rule for outcome %s", ErrConfiguration, e.Outcome)
}

func (e *MissingPointRuleError) Is(target error) bool {
	return target == ErrConfiguration
}

type UnclassifiableResultError struct {
	MatchID string
	Reason  string
}

func (e *UnclassifiableResultError) Error() string {
	return fmt.Sprintf("match %s: %s", e.MatchID, e.Reason)
}

func (e *UnclassifiableResultError) Is(target error) bool {
	return target == ErrUnclassifiable
}

type UnresolvedTieError struct {
	Rank    int
	TeamIDs []string
}

func (e *UnresolvedTieError) Error() string {
	return fmt.Sprintf("%d teams share rank %d after all tiebreakers: %s",
		len(e.TeamIDs), e.Rank, strings.Join(e.TeamIDs, ", "))
}

func (e *UnresolvedTieError) Is(target error) bool {
	return target == ErrUnresolvedTie
}

func unclassifiable(matchID, format string, args ...any) error {
	return &UnclassifiableResultError{MatchID: matchID, Reason: fmt.Sprintf(format, args...)}
}

func configError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
