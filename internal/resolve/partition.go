// Package resolve answers point-in-polygon containment queries against
// boundary datasets and narrows ZCTA lookups by state-derived ZIP digit
// partitions.
package resolve

import (
	"context"

	"github.com/openfido/census-cli/internal/boundary"
)

// stateAttr is the USPS state abbreviation column of the TIGER state
// dataset.
const stateAttr = "STUSPS"

// zipDigits maps each state abbreviation to the leading digits of ZIP
// codes assigned inside it. National ZCTA data is too large to probe
// exhaustively per point; narrowing by these digits bounds the candidate
// partitions to one or two per lookup.
var zipDigits = map[string]string{
	"AK": "9", "AL": "3", "AR": "7", "AZ": "8", "CA": "9",
	"CO": "8", "CT": "0", "DC": "2", "DE": "1", "FL": "3",
	"GA": "3", "HI": "9", "IA": "56", "ID": "8", "IL": "6",
	"IN": "4", "KS": "6", "KY": "4", "LA": "7", "MA": "0",
	"MD": "2", "ME": "0", "MI": "4", "MN": "5", "MO": "6",
	"MS": "3", "MT": "5", "NC": "2", "ND": "5", "NE": "6",
	"NH": "3", "NJ": "0", "NM": "8", "NV": "8", "NY": "01",
	"OH": "4", "OK": "7", "OR": "9", "PA": "1", "PR": "0",
	"RI": "0", "SC": "2", "SD": "5", "TN": "3", "TX": "78",
	"UT": "8", "VA": "2", "VT": "0", "WA": "9", "WI": "5",
	"WV": "2", "WY": "8",
}

// ZIPDigits returns the ordered candidate partition digits for a state
// abbreviation, or a NoMatchError for unknown abbreviations.
func ZIPDigits(state string) ([]string, error) {
	digits, ok := zipDigits[state]
	if !ok {
		return nil, &boundary.NoMatchError{Kind: boundary.KindZipcode, Value: state}
	}
	keys := make([]string, 0, len(digits))
	for _, d := range digits {
		keys = append(keys, string(d))
	}
	return keys, nil
}

// State resolves the state feature enclosing a point using the cached
// state dataset.
func State(ctx context.Context, cache *boundary.Cache, pt boundary.Point) (*boundary.Feature, error) {
	states, err := cache.Get(ctx, boundary.KindState)
	if err != nil {
		return nil, err
	}
	return Find(states, pt)
}

// StateAbbr resolves the USPS abbreviation of the state enclosing a
// point.
func StateAbbr(ctx context.Context, cache *boundary.Cache, pt boundary.Point) (string, error) {
	f, err := State(ctx, cache, pt)
	if err != nil {
		return "", err
	}
	return f.Attrs[stateAttr], nil
}
