package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Chunks is a split document ready to be written to the vector store.
type Chunks struct {
	DocID     string
	Documents []string
	IDs       []string
}

type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewChunker(cfg ChunkerConfig) Chunker {
	return Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.Size),
			textsplitter.WithChunkOverlap(cfg.Overlap),
		),
	}
}

// Chunk splits content and derives a stable id for every chunk from the
// app, the source and the chunk text. Repeated chunks are kept once.
func (c Chunker) Chunk(appID, source, content string) (Chunks, error) {
	parts, err := c.splitter.SplitText(content)
	if err != nil {
		return Chunks{}, fmt.Errorf("failed to split text: %w", err)
	}

	out := Chunks{DocID: hash(appID, source, content)}
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id := hash(appID, source, part)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.Documents = append(out.Documents, part)
		out.IDs = append(out.IDs, id)
	}
	return out, nil
}

func hash(appID, source, text string) string {
	h := sha256.New()
	h.Write([]byte(appID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}
