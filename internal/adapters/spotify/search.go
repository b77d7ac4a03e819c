package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ewilliams-labs/vocalis/internal/core/ports"
)

const searchLimit = 10

// spotifyPlaylist is the subset of a simplified playlist object we read.
type spotifyPlaylist struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	Owner struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
}

// searchPlaylistsResponse mirrors GET /search?type=playlist. Items may be
// null in real responses.
type searchPlaylistsResponse struct {
	Playlists struct {
		Items []*spotifyPlaylist `json:"items"`
	} `json:"playlists"`
}

// FindPlaylist searches playlists for a genre label and returns the link of
// the best-scoring one.
func (c *Client) FindPlaylist(ctx context.Context, genre string) (string, error) {
	if strings.TrimSpace(genre) == "" {
		return "", fmt.Errorf("spotify adapter: empty genre")
	}
	items, err := c.searchPlaylists(ctx, genre)
	if err != nil {
		return "", err
	}

	var best *spotifyPlaylist
	bestScore := 0.0
	for _, pl := range items {
		if pl == nil {
			continue
		}
		score, ok := playlistMatchScore(genre, pl.Name)
		if score > bestScore {
			bestScore = score
			if ok {
				best = pl
			}
		}
	}
	if best == nil {
		closest := ""
		for _, pl := range items {
			if pl == nil {
				continue
			}
			if score, _ := playlistMatchScore(genre, pl.Name); score == bestScore {
				closest = pl.Name
				break
			}
		}
		return "", ports.NoConfidentMatchError{Genre: genre, Best: closest, Score: bestScore}
	}

	c.logger.Debug("spotify adapter: playlist matched", "genre", genre, "playlist", best.Name, "score", bestScore)
	if best.ExternalURLs.Spotify != "" {
		return best.ExternalURLs.Spotify, nil
	}
	return "https://open.spotify.com/playlist/" + best.ID, nil
}

func (c *Client) searchPlaylists(ctx context.Context, genre string) ([]*spotifyPlaylist, error) {
	searchURL, err := url.Parse(fmt.Sprintf("%s/search", c.baseURL))
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: invalid search url: %w", err)
	}

	query := searchURL.Query()
	query.Set("q", fallbackIfEmpty(normalizeSearchInput(genre), genre))
	query.Set("type", "playlist")
	query.Set("limit", fmt.Sprint(searchLimit))
	if c.market != "" {
		query.Set("market", c.market)
	}
	searchURL.RawQuery = query.Encode()

	c.logger.Debug("spotify adapter: search request", "url", searchURL.String())

	var body searchPlaylistsResponse
	if err := c.getJSON(ctx, searchURL.String(), &body); err != nil {
		return nil, fmt.Errorf("spotify adapter: search %q: %w", genre, err)
	}
	return body.Playlists.Items, nil
}
