package model

// UnknownCountry is returned by BinIndex lookups that match no prefix.
const UnknownCountry = "unknown"

// BinIndex maps card-number prefixes to issuer countries using
// longest-prefix match. Built once per compile, immutable afterwards.
type BinIndex struct {
	prefixToCountry map[string]string
	maxPrefix       int
}

// NewBinIndex builds an index from a prefix to country mapping. An empty
// mapping yields an index that resolves every lookup to UnknownCountry.
func NewBinIndex(prefixToCountry map[string]string) *BinIndex {
	idx := &BinIndex{prefixToCountry: make(map[string]string, len(prefixToCountry))}
	for prefix, country := range prefixToCountry {
		idx.prefixToCountry[prefix] = country
		if len(prefix) > idx.maxPrefix {
			idx.maxPrefix = len(prefix)
		}
	}
	return idx
}

// Lookup resolves a BIN to its issuer country, or UnknownCountry when no
// registered prefix matches. The longest matching prefix wins. The input is
// used as-is; callers supply raw digit strings.
func (idx *BinIndex) Lookup(bin string) string {
	n := len(bin)
	if idx.maxPrefix < n {
		n = idx.maxPrefix
	}
	for l := n; l >= 1; l-- {
		if country, ok := idx.prefixToCountry[bin[:l]]; ok {
			return country
		}
	}
	return UnknownCountry
}

// Size returns the number of registered prefixes.
func (idx *BinIndex) Size() int {
	return len(idx.prefixToCountry)
}
