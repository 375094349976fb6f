package model

import "time"

// Playlist is an ordered, user-owned collection of posts.
type Playlist struct {
	ID          uint64    // playlists.id
	OwnerID     uint64    // playlists.owner_id
	Name        string    // playlists.name
	Description string    // playlists.description
	CreatedAt   time.Time // playlists.created_at
	UpdatedAt   time.Time // playlists.updated_at
}

// PlaylistItem is one entry of the playlist_posts join table.
type PlaylistItem struct {
	PlaylistID uint64 // playlist_posts.playlist_id
	PostID     uint64 // playlist_posts.post_id
	Position   int    // playlist_posts.position
}
