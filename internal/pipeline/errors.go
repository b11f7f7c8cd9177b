package pipeline

import (
	"context"
	"errors"

	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/dgallion1/docsift/internal/textnorm"
)

// ErrBudgetExceeded marks work abandoned because a document or the whole
// batch ran past its time allowance.
var ErrBudgetExceeded = errors.New("time budget exceeded")

// Error kinds reported in output metadata.
const (
	KindParse     = "parse_error"
	KindEmbedding = "embedding_unavailable"
	KindBudget    = "budget_exceeded"
	KindMalformed = "malformed_encoding"
	KindInternal  = "internal"
)

// ErrorKind maps err onto the reported error taxonomy.
func ErrorKind(err error) string {
	var pe *parser.ParseError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return KindParse
	case errors.Is(err, ErrBudgetExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindBudget
	case errors.Is(err, embed.ErrEmbeddingUnavailable):
		return KindEmbedding
	case errors.Is(err, textnorm.ErrMalformedEncoding):
		return KindMalformed
	default:
		return KindInternal
	}
}
