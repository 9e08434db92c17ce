package suggestionController

import (
	. "votuna/internal/models"

	"github.com/google/uuid"
)

// SuggestionView is a suggestion plus the vote state as seen by one viewer.
// Counts and names only consider current members.
type SuggestionView struct {
	Suggestion
	SuggestedByName   *string        `json:"suggestedByName,omitempty"`
	UpvoteCount       int            `json:"upvoteCount"`
	DownvoteCount     int            `json:"downvoteCount"`
	MyReaction        *ReactionValue `json:"myReaction"`
	UpvoterNames      []string       `json:"upvoterNames"`
	DownvoterNames    []string       `json:"downvoterNames"`
	AwaitingVoteNames []string       `json:"awaitingVoteNames"`
	AwaitingVoteCount int            `json:"awaitingVoteCount"`
	CanCancel         bool           `json:"canCancel"`
	CanForceAdd       bool           `json:"canForceAdd"`
}

func memberName(member *PlaylistMember) string {
	if member.User != nil {
		return member.User.Name()
	}
	user := User{BaseUUIDModel: BaseUUIDModel{ID: member.UserID}}
	return user.Name()
}

func reactionsByUser(reactions []*Reaction) map[uuid.UUID]ReactionValue {
	result := make(map[uuid.UUID]ReactionValue, len(reactions))
	for _, reaction := range reactions {
		result[reaction.UserID] = reaction.Value
	}
	return result
}

func voterIDs(members []*PlaylistMember) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.UserID)
	}
	return ids
}

// buildView is a pure projection; members must be in display order.
func buildView(
	playlist *Playlist,
	suggestion *Suggestion,
	members []*PlaylistMember,
	reactions []*Reaction,
	viewerID uuid.UUID,
) *SuggestionView {
	byUser := reactionsByUser(reactions)

	view := &SuggestionView{
		Suggestion:        *suggestion,
		UpvoterNames:      []string{},
		DownvoterNames:    []string{},
		AwaitingVoteNames: []string{},
	}

	for _, member := range members {
		name := memberName(member)

		if suggestion.WasSuggestedBy(member.UserID) {
			suggestedBy := name
			view.SuggestedByName = &suggestedBy
		}

		switch byUser[member.UserID] {
		case ReactionUp:
			view.UpvoterNames = append(view.UpvoterNames, name)
		case ReactionDown:
			view.DownvoterNames = append(view.DownvoterNames, name)
		default:
			view.AwaitingVoteNames = append(view.AwaitingVoteNames, name)
		}
	}

	view.UpvoteCount = len(view.UpvoterNames)
	view.DownvoteCount = len(view.DownvoterNames)
	view.AwaitingVoteCount = len(view.AwaitingVoteNames)

	if value, ok := byUser[viewerID]; ok {
		view.MyReaction = &value
	}

	isOwner := playlist.IsOwner(viewerID)
	view.CanCancel = suggestion.IsPending() && (isOwner || suggestion.WasSuggestedBy(viewerID))
	view.CanForceAdd = suggestion.IsPending() && isOwner

	return view
}
