// Package merge fuses template groups that look close enough to be treated
// as one template, even though their fingerprints (based on token type
// sequence alone) differ in some detail the grouping pass wasn't able to
// ignore. Two groups merge when, position by position, each one is either
// mutually variable or carries an identical constant — a coarser
// equivalence than the fingerprint's exact type-sequence match.
package merge

import (
	"strconv"
	"strings"

	"moshiki/internal/config"
	"moshiki/internal/grouping"
)

// Templates buckets every group in dg by its merge signature and fuses each
// bucket with more than one member into a single group. It returns the
// final set of groups in arbitrary order; dg's fingerprint-keyed map is
// consumed in the process since merged groups no longer have one
// fingerprint to live under.
func Templates(dg *grouping.DocGroups, cfg config.Config) []*grouping.DocGroup {
	buckets := make(map[string][]*grouping.DocGroup)
	order := make([]string, 0, len(dg.Groups))

	for _, fp := range dg.Order {
		g, ok := dg.Groups[fp]
		if !ok {
			continue
		}
		sig := signature(g, cfg)
		if _, seen := buckets[sig]; !seen {
			order = append(order, sig)
		}
		buckets[sig] = append(buckets[sig], g)
	}

	result := make([]*grouping.DocGroup, 0, len(order))
	for _, sig := range order {
		members := buckets[sig]
		if len(members) < 2 {
			result = append(result, members[0])
			continue
		}

		sigEntries := decodeSignature(sig)
		for idx, e := range sigEntries {
			if e.kind != sigVariable {
				continue
			}
			for _, g := range members {
				convertToVariable(g, idx)
			}
		}

		target := members[0]
		for _, src := range members[1:] {
			mergeInto(target, src)
		}
		result = append(result, target)
	}

	return result
}

type sigKind byte

const (
	sigConstant   sigKind = 'C'
	sigVariable   sigKind = 'V'
	sigWhitespace sigKind = 'W'
)

type sigEntry struct {
	kind sigKind
}

// signature builds the merge-eligibility signature for g. A Constant
// position only keeps its literal text once the group has accumulated
// enough documents to trust it as genuinely constant; below that, it is
// treated as mergeable-variable so small groups fuse aggressively instead
// of staying fragmented on a handful of documents.
func signature(g *grouping.DocGroup, cfg config.Config) string {
	var sb strings.Builder
	for _, tt := range g.Template.Tokens {
		switch tt.Kind {
		case grouping.TokConstant:
			if g.NumDocs < cfg.MergeConstantMinDocs {
				sb.WriteByte(byte(sigVariable))
			} else {
				sb.WriteByte(byte(sigConstant))
				sb.WriteString(strconv.Itoa(len(tt.ConstText)))
				sb.WriteByte(':')
				sb.WriteString(tt.ConstText)
			}
		case grouping.TokVariable:
			sb.WriteByte(byte(sigVariable))
		case grouping.TokWhitespace:
			if g.NumDocs < cfg.MergeWhitespaceMinDocs {
				sb.WriteByte(byte(sigVariable))
			} else {
				sb.WriteByte(byte(sigWhitespace))
				sb.WriteString(strconv.FormatUint(uint64(tt.WSLen), 10))
			}
		}
		sb.WriteByte('|')
	}
	return sb.String()
}

func decodeSignature(sig string) []sigEntry {
	parts := strings.Split(sig, "|")
	entries := make([]sigEntry, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		switch sigKind(p[0]) {
		case sigVariable:
			entries = append(entries, sigEntry{kind: sigVariable})
		case sigConstant:
			// text is recovered from the group itself during conversion;
			// the signature only needs to mark the position's kind here.
			entries = append(entries, sigEntry{kind: sigConstant})
		case sigWhitespace:
			entries = append(entries, sigEntry{kind: sigWhitespace})
		}
	}
	return entries
}

// convertToVariable turns the Constant template position at idx into a
// Variable one backed by a fresh column filled with its former constant
// term id. A no-op if the position is already Variable or Whitespace.
func convertToVariable(g *grouping.DocGroup, idx int) {
	tt := &g.Template.Tokens[idx]
	if tt.Kind != grouping.TokConstant {
		return
	}

	col := make([]uint32, g.NumDocs)
	for i := range col {
		col[i] = tt.ConstTermID
	}
	columnIndex := len(g.Columns)
	g.Columns = append(g.Columns, col)

	*tt = grouping.TemplateToken{
		Kind:        grouping.TokVariable,
		TokenIndex:  tt.TokenIndex,
		ColumnIndex: columnIndex,
	}
}

// mergeInto appends src's documents onto target position by position. Both
// groups are assumed to share the same signature, so Variable positions
// line up one-to-one even though their ColumnIndex values may differ.
func mergeInto(target, src *grouping.DocGroup) {
	for i := range target.Template.Tokens {
		tt := &target.Template.Tokens[i]
		if tt.Kind != grouping.TokVariable {
			continue
		}
		st := src.Template.Tokens[i]
		target.Columns[tt.ColumnIndex] = append(target.Columns[tt.ColumnIndex], src.Columns[st.ColumnIndex]...)
	}
	target.NumDocs += src.NumDocs
}
