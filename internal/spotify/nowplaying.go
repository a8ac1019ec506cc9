package spotify

import (
	"context"
	"fmt"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"
)

const nothingPlaying = "nothing playing"

// NowPlaying formats the current track as "Artist, Artist - Title".
func NowPlaying(ctx context.Context, client *spotifyapi.Client) (string, error) {
	cp, err := client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return "", fmt.Errorf("currently playing: %w", err)
	}
	if cp == nil || cp.Item == nil || !cp.Playing {
		return nothingPlaying, nil
	}

	names := make([]string, 0, len(cp.Item.Artists))
	for _, artist := range cp.Item.Artists {
		names = append(names, artist.Name)
	}
	if len(names) == 0 {
		return cp.Item.Name, nil
	}
	return fmt.Sprintf("%s - %s", strings.Join(names, ", "), cp.Item.Name), nil
}
