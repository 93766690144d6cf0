package rulepack

import (
	"golang.org/x/text/language"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// AnCora constituent tags with hand-written rules.
const (
	GrupNom = "GRUP.NOM"
	SN      = "SN"
)

var (
	advNPPatterns = []string{
		`AQA.*`, `AQC.*`, `GRUP\.A`, `S\.A`, `NC.*S.*`, `NP.*`, `NC.*P.*`, `GRUP\.NOM`,
	}
	moreAdjPatterns = []string{
		`AQ0.*`, `AQ[AC].*`, `AO.*`, `GRUP\.A`, `S\.A`, `RG`, `RN`, `GRUP\.NOM`,
	}
	spanishNouns = []string{SN, GrupNom}
	spanishAdjs  = []string{"$", "GRUP.A", "SA"}
)

// SpanishAdvNP picks the first adjectival or nominal child in dir.
func SpanishAdvNP(dir headrules.Direction) headrules.Rule {
	return headrules.MustOrdered(dir, advNPPatterns).Named("es-adv-np")
}

// SpanishNouns picks the first SN or GRUP.NOM child in dir.
func SpanishNouns(tab *symbol.Table, dir headrules.Direction) headrules.Rule {
	return headrules.NewSet(dir, symbol.SetFrom(tab, spanishNouns...)).Named("es-nouns")
}

// SpanishAdjs picks the first $, GRUP.A or SA child in dir.
func SpanishAdjs(tab *symbol.Table, dir headrules.Direction) headrules.Rule {
	return headrules.NewSet(dir, symbol.SetFrom(tab, spanishAdjs...)).Named("es-adjs")
}

// SpanishMoreAdjs is the wider adjective and adverb matcher. Parser output
// is inconsistent about tag case, so lower-cased patterns also match.
func SpanishMoreAdjs(dir headrules.Direction, lang language.Tag) headrules.Rule {
	return headrules.MustOrdered(dir, moreAdjPatterns, headrules.FoldCase(lang)).Named("es-more-adjs")
}

// SpanishFallback picks the last child in dir.
func SpanishFallback(dir headrules.Direction) headrules.Rule {
	return headrules.NewFallback(dir).Named("es-fallback")
}

// SpanishNominalChain is the override for GRUP.NOM and SN.
func SpanishNominalChain(tab *symbol.Table, lang language.Tag) headrules.Rule {
	dir := headrules.HeadInitial

	return headrules.MustComposite(
		SpanishAdvNP(dir),
		SpanishNouns(tab, dir),
		SpanishAdjs(tab, dir),
		SpanishMoreAdjs(dir, lang),
		SpanishFallback(dir),
	).Named("es-nominal")
}

func spanishOverrides(tab *symbol.Table, lang language.Tag) []Override {
	chain := SpanishNominalChain(tab, lang)

	return []Override{
		{Tag: GrupNom, Rule: chain},
		{Tag: SN, Rule: chain},
	}
}
