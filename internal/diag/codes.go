package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Config loader (1000-1999)
	CfgInfo           Code = 1000
	CfgUnknownSection Code = 1001
	CfgEmptyValue     Code = 1002

	// Prototype reader (2000-2999)
	ProInfo            Code = 2000
	ProSyntax          Code = 2001
	ProNoPrototypes    Code = 2002
	ProDuplicateName   Code = 2003
	ProUnsupportedType Code = 2004

	// Type normalizer (3000-3999)
	TypInfo       Code = 3000
	TypBadShape   Code = 3001
	TypShapeTwice Code = 3002

	// Argument annotator (4000-4999)
	AnnInfo            Code = 4000
	AnnUnknownArgument Code = 4001
	AnnUnknownShape    Code = 4002

	// Variant expander (5000-5999)
	VarInfo       Code = 5000
	VarNoVariants Code = 5001

	// Driver (6000-6999)
	GenInfo          Code = 6000
	GenCacheHit      Code = 6001
	GenCacheMiss     Code = 6002
	GenCacheFail     Code = 6003
	GenNameCollision Code = 6004
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	CfgInfo:           "Configuration information",
	CfgUnknownSection: "Section is neither MODULE nor KERNEL",
	CfgEmptyValue:     "Option has an empty value",

	ProInfo:            "Prototype information",
	ProSyntax:          "Cannot parse prototype",
	ProNoPrototypes:    "Kernel defines no prototypes",
	ProDuplicateName:   "Argument name used twice in prototype",
	ProUnsupportedType: "Argument type is not supported",

	TypInfo:       "Type normalization information",
	TypBadShape:   "Cannot determine shape",
	TypShapeTwice: "Shape declared more than once",

	AnnInfo:            "Annotation information",
	AnnUnknownArgument: "Intent names an argument absent from every prototype",
	AnnUnknownShape:    "Shape names an argument absent from every prototype",

	VarInfo:       "Variant information",
	VarNoVariants: "Kernel produced no variants",

	GenInfo:          "Generator information",
	GenCacheHit:      "Module data restored from cache",
	GenCacheMiss:     "Module data not cached",
	GenCacheFail:     "Module data cache unavailable",
	GenNameCollision: "Wrapper name already in use",
}

// ID returns the stable textual identifier, e.g. "PRO2001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("PRO%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("ANN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("VAR%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("GEN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
