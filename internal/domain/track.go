package domain

// Track is one playable audio source.
type Track struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`     // opaque handle handed to the audio player
	Duration float64 `json:"duration"` // seconds, 0 when unknown
}
