package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	contractx "github.com/avelar/tunedesk/agent/contract"
)

const maxContextTracks = 25

// TrackRow is one catalog match handed to the model as grounding context.
type TrackRow struct {
	TrackName  string `bun:"track_name" json:"track_name"`
	ArtistName string `bun:"artist_name" json:"artist_name"`
	AlbumName  string `bun:"album_name" json:"album_name"`
}

// Service answers general media questions: it pulls candidate tracks from
// the catalog and asks the completion service for an answer grounded on
// those rows only.
type Service struct {
	db          *bun.DB
	completions contractx.CompletionService
	instruction string
}

func NewService(db *bun.DB, completions contractx.CompletionService, instruction string) (*Service, error) {
	if db == nil {
		return nil, errors.New("catalog db is required")
	}
	if completions == nil {
		return nil, errors.New("completion service is required")
	}
	return &Service{
		db:          db,
		completions: completions,
		instruction: instruction,
	}, nil
}

// Answer resolves a free-text media query to a free-text reply.
func (s *Service) Answer(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	tracks, err := s.lookupTracks(ctx, query)
	if err != nil {
		return "", err
	}

	context_, err := json.Marshal(tracks)
	if err != nil {
		return "", fmt.Errorf("marshal track context: %w", err)
	}

	comp, err := s.completions.Complete(ctx, contractx.CompletionRequest{
		System: s.instruction,
		Messages: []contractx.Message{
			{
				Role:    contractx.RoleUser,
				Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", context_, query),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(comp.Content), nil
}

// lookupTracks matches the query against track, album, and artist names
// with substring filters, distinct and capped.
func (s *Service) lookupTracks(ctx context.Context, query string) ([]TrackRow, error) {
	pattern := "%" + query + "%"

	rows := make([]TrackRow, 0)
	err := s.db.NewSelect().
		Distinct().
		TableExpr(`"Track" AS t`).
		ColumnExpr(`t."Name" AS track_name`).
		ColumnExpr(`ar."Name" AS artist_name`).
		ColumnExpr(`al."Title" AS album_name`).
		Join(`JOIN "Album" AS al ON t."AlbumId" = al."AlbumId"`).
		Join(`JOIN "Artist" AS ar ON al."ArtistId" = ar."ArtistId"`).
		Where(`t."Name" LIKE ? OR al."Title" LIKE ? OR ar."Name" LIKE ?`, pattern, pattern, pattern).
		Limit(maxContextTracks).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("lookup tracks: %w", err)
	}
	return rows, nil
}
