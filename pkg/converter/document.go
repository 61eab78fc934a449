package converter

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/james-see/chartwright/pkg/score"
)

// DocumentVersion is the current version of the native score document
const DocumentVersion = 1

// Document is the native on-disk representation of a score
type Document struct {
	Version int          `json:"version"`
	Score   *score.Score `json:"score"`
}

// EncodeScore serializes sc as an indented score document
func EncodeScore(sc *score.Score) ([]byte, error) {
	data, err := json.MarshalIndent(Document{Version: DocumentVersion, Score: sc}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode score: %w", err)
	}
	return data, nil
}

// DecodeScore parses a score document and checks its integrity
func DecodeScore(data []byte) (*score.Score, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse score document: %w", err)
	}
	if doc.Version < 1 || doc.Version > DocumentVersion {
		return nil, fmt.Errorf("unsupported score document version %d", doc.Version)
	}
	if doc.Score == nil {
		return nil, fmt.Errorf("score document has no score")
	}

	sc := doc.Score
	if sc.Notes == nil {
		sc.Notes = make(map[int]score.Note)
	}
	if sc.HoldNotes == nil {
		sc.HoldNotes = make(map[int]score.HoldNote)
	}
	if sc.TimeSignatures == nil {
		sc.TimeSignatures = make(map[int]score.TimeSignature)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid score document: %w", err)
	}
	return sc, nil
}
