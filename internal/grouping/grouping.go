// Package grouping buckets log lines into template groups by the sequence
// of token types they produce, then tracks, per group, which token
// positions stay constant across every line assigned to it and which ones
// vary. A position that turns out to vary becomes a column: one term id
// per document, in arrival order.
package grouping

import (
	"github.com/cespare/xxhash/v2"

	"moshiki/internal/config"
	"moshiki/internal/termmap"
	"moshiki/internal/tokenizer"
)

// TokenKind distinguishes the three shapes a template position can take.
type TokenKind uint8

const (
	TokConstant TokenKind = iota
	TokVariable
	TokWhitespace
)

// TemplateToken is one position in a DocGroup's template. TokenIndex is the
// index into the original tokenizer.Token slice that produced it, kept so a
// later document's tokens can be compared positionally against it.
type TemplateToken struct {
	Kind       TokenKind
	TokenIndex uint32

	// Constant fields.
	ConstType   tokenizer.TokenType
	ConstTermID uint32
	ConstText   string

	// Variable fields.
	ColumnIndex int
	IsIDLike    bool

	// Whitespace fields.
	WSLen uint32
}

// Template is the ordered sequence of positions shared by every document in
// a DocGroup. TemplateID is left at zero until an assignment pass gives the
// group a contiguous id.
type Template struct {
	Tokens     []TemplateToken
	TemplateID uint32
}

// DocGroup holds every document whose token-type sequence hashes to the
// same fingerprint, plus the columns accumulated for positions that turned
// out to vary.
type DocGroup struct {
	Template Template
	Columns  [][]uint32
	NumDocs  int
}

// DocGroups is the full preliminary index built from a stream of lines: a
// term map shared across every group, and one DocGroup per fingerprint.
type DocGroups struct {
	Terms  *termmap.TermMap
	Groups map[uint64]*DocGroup
	Order  []uint64
	cfg    config.Config
}

// New returns an empty DocGroups driven by cfg's thresholds.
func New(cfg config.Config) *DocGroups {
	return &DocGroups{
		Terms:  termmap.New(),
		Groups: make(map[uint64]*DocGroup),
		cfg:    cfg,
	}
}

// Fingerprint hashes the sequence of token types, ignoring token contents,
// so two lines with the same shape land in the same bucket regardless of
// their literal values.
func Fingerprint(tokens []tokenizer.Token) uint64 {
	h := xxhash.New()
	buf := make([]byte, len(tokens))
	for i, t := range tokens {
		buf[i] = byte(t.Type)
	}
	h.Write(buf)
	return h.Sum64()
}

// Ingest tokenizes line, finds or creates the DocGroup for its fingerprint,
// and folds it into that group's template and columns.
func (dg *DocGroups) Ingest(line string) {
	tokens := tokenizer.Tokenize(line, dg.cfg.MaxTokens)
	if len(tokens) == 0 {
		return
	}

	fp := Fingerprint(tokens)
	group, ok := dg.Groups[fp]
	if !ok {
		group = newDocGroup(tokens, line, dg.Terms)
		dg.Groups[fp] = group
		dg.Order = append(dg.Order, fp)
	}
	group.push(tokens, line, dg.Terms, dg.cfg)
}

// newDocGroup builds an all-constant template from the first document
// assigned to a fingerprint bucket.
func newDocGroup(tokens []tokenizer.Token, line string, terms *termmap.TermMap) *DocGroup {
	templateTokens := make([]TemplateToken, len(tokens))
	for i, tok := range tokens {
		if tok.Type == tokenizer.Whitespace {
			templateTokens[i] = TemplateToken{Kind: TokWhitespace, TokenIndex: uint32(i), WSLen: tok.Len()}
			continue
		}
		text := tok.Str(line)
		termID := terms.Intern([]byte(text), false)
		templateTokens[i] = TemplateToken{
			Kind:        TokConstant,
			TokenIndex:  uint32(i),
			ConstType:   tok.Type,
			ConstTermID: termID,
			ConstText:   text,
		}
	}
	return &DocGroup{Template: Template{Tokens: templateTokens}}
}

// push folds one more document's tokens into g, promoting any Constant
// position whose text no longer matches into a Variable column.
func (g *DocGroup) push(tokens []tokenizer.Token, line string, terms *termmap.TermMap, cfg config.Config) {
	for i := range g.Template.Tokens {
		tt := &g.Template.Tokens[i]

		switch tt.Kind {
		case TokConstant:
			tok := tokens[tt.TokenIndex]
			text := tok.Str(line)
			if text == tt.ConstText {
				continue
			}

			columnIndex := len(g.Columns)
			newColumn := make([]uint32, g.NumDocs, g.NumDocs+1)
			for i := range newColumn {
				newColumn[i] = tt.ConstTermID
			}
			termID := termForToken(tok, line, terms, false)
			newColumn = append(newColumn, termID)
			g.Columns = append(g.Columns, newColumn)

			*tt = TemplateToken{Kind: TokVariable, TokenIndex: tt.TokenIndex, ColumnIndex: columnIndex}

		case TokVariable:
			tok := tokens[tt.TokenIndex]
			termID := termForToken(tok, line, terms, tt.IsIDLike)
			g.Columns[tt.ColumnIndex] = append(g.Columns[tt.ColumnIndex], termID)

			if g.NumDocs+1 == cfg.IDLikeTriggerDocs && !tt.IsIDLike {
				tt.IsIDLike = isIDLikeColumn(g.Columns[tt.ColumnIndex], g.NumDocs+1, cfg.IDLikeUniqueRatio)
			}

		case TokWhitespace:
			// Whitespace length is not reconciled across documents in the
			// same group; divergent runs are simply absorbed.
		}
	}
	g.NumDocs++
}

func termForToken(tok tokenizer.Token, line string, terms *termmap.TermMap, isIDLike bool) uint32 {
	if tok.Type == tokenizer.Whitespace {
		return tok.Len()
	}
	return terms.Intern([]byte(tok.Str(line)), isIDLike)
}

// isIDLikeColumn reports whether column's unique-value ratio meets or
// exceeds ratio. Called once a column reaches its trigger document count;
// the result then governs how future values in that column get interned.
func isIDLikeColumn(column []uint32, numDocs int, ratio float64) bool {
	if len(column) != numDocs || numDocs == 0 {
		return false
	}
	seen := make(map[uint32]struct{}, numDocs)
	for _, id := range column {
		seen[id] = struct{}{}
	}
	return float64(len(seen))/float64(numDocs) >= ratio
}
