package playlistController

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"votuna/internal/controllers/access"
	. "votuna/internal/models"
	"votuna/internal/services"
	"votuna/internal/types"
	"votuna/internal/utils"

	"github.com/google/uuid"
)

type SelectionMode string

const (
	SelectAll    SelectionMode = "all"
	SelectSongs  SelectionMode = "songs"
	SelectArtist SelectionMode = "artist"
	SelectGenre  SelectionMode = "genre"
)

type TransferDirection string

const (
	ImportToCurrent   TransferDirection = "import_to_current"
	ExportFromCurrent TransferDirection = "export_from_current"
)

const (
	MaxTracksPerImport = 500
	importChunkSize    = 100
	previewSampleSize  = 10
	sourceTracksLimit  = 50
)

// ImportRequest copies tracks between this playlist and another provider
// playlist the owner can read. An empty Direction imports into this playlist.
// SelectionValues are track ids, artist names or genres depending on the mode.
type ImportRequest struct {
	Direction              TransferDirection
	CounterpartyPlaylistID string
	SelectionMode          SelectionMode
	SelectionValues        []string
}

type ImportFailure struct {
	ProviderTrackID string `json:"providerTrackId"`
	Error           string `json:"error"`
}

type TransferPlaylist struct {
	Provider           string `json:"provider"`
	ProviderPlaylistID string `json:"providerPlaylistId"`
	Title              string `json:"title"`
}

type ImportResult struct {
	Source                TransferPlaylist `json:"source"`
	Destination           TransferPlaylist `json:"destination"`
	MatchedCount          int              `json:"matchedCount"`
	AddedCount            int              `json:"addedCount"`
	SkippedDuplicateCount int              `json:"skippedDuplicateCount"`
	FailedCount           int              `json:"failedCount"`
	FailedItems           []ImportFailure  `json:"failedItems"`
}

// ImportPreview is what ImportTracks would do, computed without writing to the provider.
type ImportPreview struct {
	Source             TransferPlaylist      `json:"source"`
	Destination        TransferPlaylist      `json:"destination"`
	SelectionMode      SelectionMode         `json:"selectionMode"`
	SelectionValues    []string              `json:"selectionValues"`
	MatchedCount       int                   `json:"matchedCount"`
	ToAddCount         int                   `json:"toAddCount"`
	DuplicateCount     int                   `json:"duplicateCount"`
	MaxTracksPerAction int                   `json:"maxTracksPerAction"`
	MatchedSample      []types.ProviderTrack `json:"matchedSample"`
	DuplicateSample    []types.ProviderTrack `json:"duplicateSample"`
}

type SourceTracksQuery struct {
	SourcePlaylistID string
	Search           string
	Limit            int
	Offset           int
}

type SourceTracksPage struct {
	Tracks     []types.ProviderTrack `json:"tracks"`
	TotalCount int                   `json:"totalCount"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

type transferPlan struct {
	playlist    *Playlist
	gateway     services.ProviderGateway
	direction   TransferDirection
	source      TransferPlaylist
	destination TransferPlaylist
	values      []string
	matched     []types.ProviderTrack
	duplicates  []types.ProviderTrack
	toAdd       []types.ProviderTrack
}

// planTransfer resolves both ends of a transfer and splits the selected source
// tracks into duplicates and tracks to add. It only reads from the provider.
func (c *PlaylistController) planTransfer(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	request ImportRequest,
) (*transferPlan, error) {
	direction := request.Direction
	if direction == "" {
		direction = ImportToCurrent
	}
	if direction != ImportToCurrent && direction != ExportFromCurrent {
		return nil, types.NewValidation("direction must be one of import_to_current, export_from_current")
	}

	values := cleanSelection(request.SelectionValues)
	if err := validateSelection(request.SelectionMode, values); err != nil {
		return nil, err
	}

	counterparty := strings.TrimSpace(request.CounterpartyPlaylistID)
	if counterparty == "" {
		return nil, types.NewValidation("counterparty playlist is required")
	}

	playlistAccess, err := c.access.ForOwner(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}
	playlist := playlistAccess.Playlist

	if counterparty == playlist.ProviderPlaylistID {
		return nil, types.NewValidation("Source and destination cannot be the same playlist")
	}

	gateway, err := c.access.Gateway(ctx, playlist, true)
	if err != nil {
		return nil, err
	}

	other, err := gateway.GetPlaylist(ctx, counterparty)
	if err != nil {
		return nil, access.ProviderError(err, true)
	}

	plan := &transferPlan{
		playlist:  playlist,
		gateway:   gateway,
		direction: direction,
		values:    values,
	}
	current := TransferPlaylist{
		Provider:           playlist.Provider,
		ProviderPlaylistID: playlist.ProviderPlaylistID,
		Title:              playlist.Title,
	}
	remote := TransferPlaylist{
		Provider:           playlist.Provider,
		ProviderPlaylistID: counterparty,
		Title:              other.Title,
	}
	if direction == ImportToCurrent {
		plan.source, plan.destination = remote, current
	} else {
		plan.source, plan.destination = current, remote
	}

	sourceTracks, err := gateway.ListTracks(ctx, plan.source.ProviderPlaylistID)
	if err != nil {
		return nil, access.ProviderError(err, true)
	}
	plan.matched = dedupeTracks(filterSelection(sourceTracks, request.SelectionMode, values))

	destinationTracks, err := gateway.ListTracks(ctx, plan.destination.ProviderPlaylistID)
	if err != nil {
		return nil, access.ProviderError(err, true)
	}
	present := make(map[string]bool, len(destinationTracks))
	for _, track := range destinationTracks {
		present[track.ProviderTrackID] = true
	}

	plan.duplicates = []types.ProviderTrack{}
	plan.toAdd = make([]types.ProviderTrack, 0, len(plan.matched))
	for _, track := range plan.matched {
		if present[track.ProviderTrackID] {
			plan.duplicates = append(plan.duplicates, track)
			continue
		}
		plan.toAdd = append(plan.toAdd, track)
	}

	if len(plan.toAdd) > MaxTracksPerImport {
		return nil, types.NewValidation(
			fmt.Sprintf("Import exceeds max tracks per action (%d)", MaxTracksPerImport),
		)
	}

	return plan, nil
}

func (c *PlaylistController) PreviewImport(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	request ImportRequest,
) (*ImportPreview, error) {
	plan, err := c.planTransfer(ctx, user, playlistID, request)
	if err != nil {
		return nil, err
	}

	return &ImportPreview{
		Source:             plan.source,
		Destination:        plan.destination,
		SelectionMode:      request.SelectionMode,
		SelectionValues:    plan.values,
		MatchedCount:       len(plan.matched),
		ToAddCount:         len(plan.toAdd),
		DuplicateCount:     len(plan.duplicates),
		MaxTracksPerAction: MaxTracksPerImport,
		MatchedSample:      plan.matched[:min(len(plan.matched), previewSampleSize)],
		DuplicateSample:    plan.duplicates[:min(len(plan.duplicates), previewSampleSize)],
	}, nil
}

func (c *PlaylistController) ImportTracks(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	request ImportRequest,
) (*ImportResult, error) {
	log := c.log.TraceFromContext(ctx).Function("ImportTracks")

	plan, err := c.planTransfer(ctx, user, playlistID, request)
	if err != nil {
		return nil, err
	}
	playlist := plan.playlist

	toAdd := make([]string, 0, len(plan.toAdd))
	for _, track := range plan.toAdd {
		toAdd = append(toAdd, track.ProviderTrackID)
	}

	result := &ImportResult{
		Source:                plan.source,
		Destination:           plan.destination,
		MatchedCount:          len(plan.matched),
		SkippedDuplicateCount: len(plan.duplicates),
		FailedItems:           []ImportFailure{},
	}

	added, failures, addErr := addInChunks(ctx, plan.gateway, plan.destination.ProviderPlaylistID, toAdd)
	result.AddedCount = len(added)
	result.FailedItems = append(result.FailedItems, failures...)
	result.FailedCount = len(result.FailedItems)

	// Only this playlist keeps a ledger. Tracks that made it in are recorded
	// even when an auth failure stopped the run.
	if plan.direction == ImportToCurrent && len(added) > 0 {
		now := c.now()
		additions := make([]*TrackAddition, 0, len(added))
		for _, trackID := range added {
			additions = append(
				additions,
				NewTrackAddition(playlist.ID, trackID, PlaylistUtilsProvenance{AddedBy: &user.ID}, now),
			)
		}
		if err := c.trackAdditionRepo.AppendBatch(ctx, c.db, additions); err != nil {
			return nil, log.Err("failed to record imported tracks", err, "playlistID", playlist.ID)
		}
	}

	if addErr != nil {
		return nil, access.ProviderError(addErr, true)
	}

	log.Info(
		"tracks transferred",
		"playlistID", playlist.ID,
		"direction", plan.direction,
		"source", plan.source.ProviderPlaylistID,
		"destination", plan.destination.ProviderPlaylistID,
		"matched", result.MatchedCount,
		"added", result.AddedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

// ListSourceTracks pages through another provider playlist so the owner can
// pick songs for a transfer. Search matches title, artist or genre.
func (c *PlaylistController) ListSourceTracks(
	ctx context.Context,
	user *User,
	playlistID uuid.UUID,
	query SourceTracksQuery,
) (*SourceTracksPage, error) {
	source := strings.TrimSpace(query.SourcePlaylistID)
	if source == "" {
		return nil, types.NewValidation("source playlist is required")
	}
	if query.Limit <= 0 {
		query.Limit = sourceTracksLimit
	}
	query.Offset = max(query.Offset, 0)

	playlistAccess, err := c.access.ForOwner(ctx, playlistID, user)
	if err != nil {
		return nil, err
	}
	gateway, err := c.access.Gateway(ctx, playlistAccess.Playlist, true)
	if err != nil {
		return nil, err
	}

	tracks, err := gateway.ListTracks(ctx, source)
	if err != nil {
		return nil, access.ProviderError(err, true)
	}

	needle := utils.Normalize(query.Search)
	filtered := make([]types.ProviderTrack, 0, len(tracks))
	for _, track := range tracks {
		if matchesSearch(track, needle) {
			filtered = append(filtered, track)
		}
	}

	start := min(query.Offset, len(filtered))
	end := min(start+query.Limit, len(filtered))
	return &SourceTracksPage{
		Tracks:     filtered[start:end],
		TotalCount: len(filtered),
		Limit:      query.Limit,
		Offset:     query.Offset,
	}, nil
}

func matchesSearch(track types.ProviderTrack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(utils.Normalize(track.Title), needle) ||
		strings.Contains(utils.NormalizePtr(track.Artist), needle) ||
		strings.Contains(utils.NormalizePtr(track.Genre), needle)
}

// addInChunks adds ids in batches and retries a failed batch one track at a
// time. An auth failure stops the run since every later call would fail too.
func addInChunks(
	ctx context.Context,
	gateway services.ProviderGateway,
	playlistID string,
	trackIDs []string,
) ([]string, []ImportFailure, error) {
	added := []string{}
	failures := []ImportFailure{}

	for chunk := range slices.Chunk(trackIDs, importChunkSize) {
		err := gateway.AddTracks(ctx, playlistID, chunk)
		if err == nil {
			added = append(added, chunk...)
			continue
		}
		if isAuthError(err) {
			return added, failures, err
		}

		for _, trackID := range chunk {
			err := gateway.AddTracks(ctx, playlistID, []string{trackID})
			if err == nil {
				added = append(added, trackID)
				continue
			}
			if isAuthError(err) {
				return added, failures, err
			}
			failures = append(failures, ImportFailure{ProviderTrackID: trackID, Error: err.Error()})
		}
	}

	return added, failures, nil
}

func isAuthError(err error) bool {
	var authErr *services.ProviderAuthError
	return errors.As(err, &authErr)
}

func cleanSelection(values []string) []string {
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		normalized = append(normalized, utils.Normalize(value))
	}
	return utils.Dedupe(normalized)
}

func validateSelection(mode SelectionMode, values []string) error {
	switch mode {
	case SelectAll:
		if len(values) > 0 {
			return types.NewValidation("selection_values must be empty when selection_mode is 'all'")
		}
	case SelectSongs, SelectArtist, SelectGenre:
		if len(values) == 0 {
			return types.NewValidation("selection_values is required for selection_mode genre, artist, or songs")
		}
	default:
		return types.NewValidation("selection_mode must be one of all, songs, artist, genre")
	}
	return nil
}

func filterSelection(tracks []types.ProviderTrack, mode SelectionMode, values []string) []types.ProviderTrack {
	if mode == SelectAll {
		return tracks
	}

	selected := make(map[string]bool, len(values))
	for _, value := range values {
		selected[value] = true
	}

	var filtered []types.ProviderTrack
	for _, track := range tracks {
		var key string
		switch mode {
		case SelectSongs:
			key = utils.Normalize(track.ProviderTrackID)
		case SelectArtist:
			key = utils.NormalizePtr(track.Artist)
		case SelectGenre:
			key = utils.NormalizePtr(track.Genre)
		}
		if key != "" && selected[key] {
			filtered = append(filtered, track)
		}
	}
	return filtered
}

func dedupeTracks(tracks []types.ProviderTrack) []types.ProviderTrack {
	seen := make(map[string]bool, len(tracks))
	deduped := make([]types.ProviderTrack, 0, len(tracks))
	for _, track := range tracks {
		if track.ProviderTrackID == "" || seen[track.ProviderTrackID] {
			continue
		}
		seen[track.ProviderTrackID] = true
		deduped = append(deduped, track)
	}
	return deduped
}
