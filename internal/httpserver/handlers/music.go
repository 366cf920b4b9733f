package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/pelican/internal/domain"
	"github.com/MrSnakeDoc/pelican/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pelican/internal/library"
	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/playlist"
)

// musicResponse describes the selection after a call. Selection is null when
// the playlist is empty.
type musicResponse struct {
	Selection *playlist.Selection `json:"selection"`
	Shuffled  bool                `json:"shuffled"`
	Count     int                 `json:"count"`
}

func musicState(d deps.Deps, sel playlist.Selection) musicResponse {
	state := d.Playlist.Snapshot()
	resp := musicResponse{Shuffled: state.Shuffled, Count: len(state.Tracks)}
	if sel.OK {
		resp.Selection = &sel
	}
	return resp
}

// CurrentTrack returns the selected track.
func CurrentTrack(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, musicState(d, d.Playlist.Current()))
	}
}

type playlistRequest struct {
	Tracks []domain.Track `json:"tracks"`
}

// SetPlaylist replaces the playlist with the tracks in the body.
func SetPlaylist(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playlistRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		n := d.Playlist.SetPlaylist(req.Tracks)
		d.Logger.Info("playlist replaced", logger.Int("tracks", n))
		writeJSON(w, http.StatusOK, musicState(d, d.Playlist.Current()))
	}
}

// ScanLibrary rebuilds the playlist from the music directory.
func ScanLibrary(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Library == nil {
			writeError(w, http.StatusServiceUnavailable, library.ErrNoRoot.Error())
			return
		}

		tracks, err := d.Library.Scan()
		if err != nil {
			if errors.Is(err, library.ErrNoRoot) {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			d.Logger.Error("music scan failed", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "music scan failed")
			return
		}

		n := d.Playlist.SetPlaylist(tracks)
		d.Logger.Info("music library loaded",
			logger.String("root", d.Library.Root()),
			logger.Int("tracks", n))
		writeJSON(w, http.StatusOK, musicState(d, d.Playlist.Current()))
	}
}

// NextTrack advances the selection.
func NextTrack(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, musicState(d, d.Playlist.Next()))
	}
}

// PrevTrack moves the selection back.
func PrevTrack(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, musicState(d, d.Playlist.Prev()))
	}
}

type selectRequest struct {
	Index *int `json:"index"`
}

// SelectTrack jumps to the track at the given index.
func SelectTrack(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if err := decodeJSON(w, r, &req); err != nil || req.Index == nil {
			writeError(w, http.StatusBadRequest, "body must be {\"index\": <int>}")
			return
		}

		sel := d.Playlist.Select(*req.Index)
		if !sel.OK {
			writeError(w, http.StatusUnprocessableEntity, "index out of range")
			return
		}
		writeJSON(w, http.StatusOK, musicState(d, sel))
	}
}

// ToggleShuffle flips shuffle mode; the selected track does not change.
func ToggleShuffle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shuffled := d.Playlist.ToggleShuffle()
		d.Logger.Debug("shuffle toggled via endpoint", logger.Bool("shuffled", shuffled))
		writeJSON(w, http.StatusOK, musicState(d, d.Playlist.Current()))
	}
}
