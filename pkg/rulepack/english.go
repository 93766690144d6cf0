package rulepack

import (
	"golang.org/x/text/language"

	"github.com/Sumatoshi-tech/headfinder/pkg/headrules"
	"github.com/Sumatoshi-tech/headfinder/pkg/symbol"
)

// EnglishNP is the Collins noun phrase rule. The table cannot express it
// because its second step scans in the opposite direction.
func EnglishNP(tab *symbol.Table) headrules.Rule {
	set := func(dir headrules.Direction, name string, members ...string) headrules.Rule {
		return headrules.NewSet(dir, symbol.SetFrom(tab, members...)).Named(name)
	}

	return headrules.MustComposite(
		set(headrules.HeadFinal, "en-np-nominal", "NN", "NNP", "NNPS", "NNS", "NX", "POS", "JJR"),
		set(headrules.HeadInitial, "en-np-np", "NP"),
		set(headrules.HeadFinal, "en-np-modifier", "$", "ADJP", "PRN"),
		set(headrules.HeadFinal, "en-np-cd", "CD"),
		set(headrules.HeadFinal, "en-np-adj", "JJ", "JJS", "RB", "QP"),
		headrules.NewFallback(headrules.HeadInitial).Named("en-np-last"),
	).Named("en-np")
}

func englishOverrides(tab *symbol.Table, _ language.Tag) []Override {
	return []Override{{Tag: "NP", Rule: EnglishNP(tab)}}
}
