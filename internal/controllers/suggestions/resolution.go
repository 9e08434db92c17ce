package suggestionController

import (
	. "votuna/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision is the terminal state a fully voted suggestion moves to.
type Decision struct {
	Status SuggestionStatus
	Reason ResolutionReason
}

var hundred = decimal.NewFromInt(100)

// Evaluate decides a suggestion from the current voters, their reactions and
// the playlist settings. It reports false while any voter has not reacted or
// when there are no voters at all. Reactions from users outside voterIDs are
// ignored.
func Evaluate(
	voterIDs []uuid.UUID,
	reactions map[uuid.UUID]ReactionValue,
	settings PlaylistSettings,
) (Decision, bool) {
	if len(voterIDs) == 0 {
		return Decision{}, false
	}

	up, down := 0, 0
	for _, voterID := range voterIDs {
		switch reactions[voterID] {
		case ReactionUp:
			up++
		case ReactionDown:
			down++
		default:
			return Decision{}, false
		}
	}

	if up == down {
		if settings.TieBreakMode == TieBreakReject {
			return Decision{Status: SuggestionRejected, Reason: ReasonTieReject}, true
		}
		return Decision{Status: SuggestionAccepted, Reason: ReasonTieAdd}, true
	}

	if UpvotePercent(up, len(voterIDs)).GreaterThanOrEqual(decimal.NewFromInt(int64(settings.RequiredVotePercent))) {
		return Decision{Status: SuggestionAccepted, Reason: ReasonThresholdMet}, true
	}
	return Decision{Status: SuggestionRejected, Reason: ReasonThresholdNotMet}, true
}

// UpvotePercent is 100 * up / voters, exact to sixteen decimal places.
func UpvotePercent(up, voters int) decimal.Decimal {
	if voters == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(up)).Mul(hundred).Div(decimal.NewFromInt(int64(voters)))
}
