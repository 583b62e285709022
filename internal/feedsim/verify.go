package feedsim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
)

const unknownName = "Unknown"

// Expected ranks t in mode the way the board reads feed: the table is
// encoded as CSV and decoded with the board's own parser.
func Expected(t Table, feed source.Feed, mode types.Mode, scorer scoring.Scorer) ([]Entry, error) {
	body, err := encodeCSV(t)
	if err != nil {
		return nil, err
	}
	rows, _, err := source.Decode(feed, source.FormatCSV, body)
	if err != nil {
		return nil, err
	}
	ranked := ranking.Rank(rows, mode, scorer)
	out := make([]Entry, len(ranked))
	for i, r := range ranked {
		name := feed.Schema.Name(r)
		if name == "" {
			name = unknownName
		}
		out[i] = Entry{Rank: r.Rank, Name: name, Score: scoring.Display(r.Score)}
	}
	return out, nil
}

// Compare checks board against expected position by position.
func Compare(expected, board []Entry) error {
	if len(board) == 0 && len(expected) > 0 {
		return fmt.Errorf("empty leaderboard")
	}
	if len(board) > len(expected) {
		return fmt.Errorf("leaderboard has %d entries, expected at most %d", len(board), len(expected))
	}
	for i, got := range board {
		want := expected[i]
		if got.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d", i, got.Rank)
		}
		if got.Score != want.Score {
			return fmt.Errorf("rank %d score %d does not match expected %d", got.Rank, got.Score, want.Score)
		}
		if got.Name != want.Name {
			return fmt.Errorf("rank %d is %q, expected %q", got.Rank, got.Name, want.Name)
		}
		if i > 0 && got.Score > board[i-1].Score {
			return fmt.Errorf("leaderboard not properly sorted: entry %d has higher score than entry %d", i, i-1)
		}
	}
	return nil
}

// FetchLeaderboard reads /leaderboard of a running board for one view.
func FetchLeaderboard(ctx context.Context, client *http.Client, baseURL string, dataset types.DatasetID, mode types.Mode, limit int) ([]Entry, error) {
	q := url.Values{}
	q.Set("dataset", string(dataset))
	q.Set("mode", string(mode))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/leaderboard?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard returned status %d: %s", resp.StatusCode, body)
	}

	var b render.Board
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	out := make([]Entry, len(b.Records))
	for i, r := range b.Records {
		out[i] = Entry{Rank: r.Rank, Name: r.Name, Score: r.Score}
	}
	return out, nil
}

// TriggerRefresh asks a running board to refetch now.
func TriggerRefresh(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/refresh", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to refresh board: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh returned status %d", resp.StatusCode)
	}
	return nil
}

// logTopPerformers logs the leading entries and, when verbose, the score
// distribution.
func logTopPerformers(ctx context.Context, log logger.Logger, board types.Board, entries []Entry, verbose bool) {
	topN := min(len(entries), 5)
	for _, e := range entries[:topN] {
		log.Info(ctx, "top performer",
			logger.String("board", board.String()),
			logger.Int("rank", e.Rank),
			logger.String("name", e.Name),
			logger.Int("score", e.Score))
	}
	if !verbose || len(entries) == 0 {
		return
	}
	scores := make([]float64, len(entries))
	for i, e := range entries {
		scores[i] = float64(e.Score)
	}
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	log.Info(ctx, "score statistics",
		logger.String("board", board.String()),
		logger.Float64("mean", mean),
		logger.Float64("median", median),
		logger.Float64("max", scores[0]),
		logger.Float64("min", scores[len(scores)-1]))
}
