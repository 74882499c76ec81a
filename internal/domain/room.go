// Package domain contains the room session record and its mutation rules.
package domain

import (
	"errors"
	"regexp"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	RoomIDLength   = 6
	RoomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultRoomTTL bounds how long an abandoned room survives in the
	// store. Every write refreshes it.
	DefaultRoomTTL = 24 * time.Hour

	DefaultMood     = "neutral"
	DefaultLanguage = "english"
)

var (
	ErrInvalidRoomID    = errors.New("invalid room id")
	ErrRoomNotFound     = errors.New("room not found")
	ErrNotLeader        = errors.New("not the room leader")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var roomIDPattern = regexp.MustCompile(`^[a-z0-9]{6}$`)

type RoomID string

// ParseRoomID validates the fixed 6-char lowercase-alphanumeric format.
// It must be called before any store lookup.
func ParseRoomID(s string) (RoomID, error) {
	if !roomIDPattern.MatchString(s) {
		return "", ErrInvalidRoomID
	}
	return RoomID(s), nil
}

// NewRoomID generates a fresh room id. Collisions are statistically
// negligible at this scale and are not retried.
func NewRoomID() (RoomID, error) {
	id, err := gonanoid.Generate(RoomIDAlphabet, RoomIDLength)
	if err != nil {
		return "", err
	}
	return RoomID(id), nil
}

// RoomState is the shared playback record of one room. Field names are the
// wire contract; clients receive the record as-is in updateState broadcasts.
type RoomState struct {
	CurrentSong   string   `json:"currentSong"`
	CurrentSongID string   `json:"currentSongId"`
	CurrentTime   float64  `json:"currentTime"`
	IsPlaying     bool     `json:"isPlaying"`
	Users         []string `json:"users"`
	LeaderID      string   `json:"leaderId"`
	Mood          string   `json:"mood,omitempty"`
	Language      string   `json:"language,omitempty"`
	Title         string   `json:"title,omitempty"`
	Artist        string   `json:"artist,omitempty"`
	Image         string   `json:"image,omitempty"`
}

// NewRoomState builds the record for a freshly created room. The creator is
// the only member and the initial leader.
func NewRoomState(creator string, moodMode bool) *RoomState {
	s := &RoomState{
		Users:    []string{creator},
		LeaderID: creator,
	}
	if moodMode {
		s.Mood = DefaultMood
		s.Language = DefaultLanguage
	}
	return s
}

// AddMember appends in join order. A re-joining connection is appended
// again; removal strips all occurrences, so duplicates stay harmless.
func (s *RoomState) AddMember(id string) {
	s.Users = append(s.Users, id)
}

// RemoveMember strips every occurrence of id. If the leader left and
// members remain, leadership passes to the first remaining member.
func (s *RoomState) RemoveMember(id string) bool {
	kept := s.Users[:0]
	removed := false
	for _, u := range s.Users {
		if u == id {
			removed = true
			continue
		}
		kept = append(kept, u)
	}
	s.Users = kept
	if removed && s.LeaderID == id && len(s.Users) > 0 {
		s.LeaderID = s.Users[0]
	}
	return removed
}

func (s *RoomState) Empty() bool { return len(s.Users) == 0 }

// IsLeader gates every playback-affecting mutation.
func (s *RoomState) IsLeader(id string) bool { return s.LeaderID == id }

// SetSong switches the track and restarts playback from the beginning.
func (s *RoomState) SetSong(url, songID, title, artist, image string) {
	s.CurrentSong = url
	s.CurrentSongID = songID
	s.CurrentTime = 0
	s.IsPlaying = true
	s.Title = title
	s.Artist = artist
	s.Image = image
}

// SetMoodSong is SetSong for mood-mode rooms: mood and language travel with
// the track and the image slot is not part of that flow.
func (s *RoomState) SetMoodSong(url, songID, mood, language, title, artist string) {
	s.SetSong(url, songID, title, artist, "")
	s.Mood = mood
	s.Language = language
}

// SetPlayback applies a play/pause toggle together with the leader's cursor.
func (s *RoomState) SetPlayback(playing bool, at float64) {
	s.IsPlaying = playing
	s.SeekTo(at)
}

// SeekTo moves the cursor. The cursor only ever moves by explicit command,
// never by a local clock.
func (s *RoomState) SeekTo(at float64) {
	if at < 0 {
		at = 0
	}
	s.CurrentTime = at
}

// Clone returns an independent copy, so stored and broadcast records never
// share the Users slice.
func (s *RoomState) Clone() *RoomState {
	c := *s
	c.Users = append([]string(nil), s.Users...)
	return &c
}
