package canon

import (
    "strings"
)

// Canonicalize normalizes a Japanese free-form address and locality and
// derives a stable cache key. Full-width spaces and digits are folded to
// their ASCII forms so "札幌市中央区南３条" and "札幌市中央区南3条" key the
// same property.
func Canonicalize(address, locality string) (normAddress, normLocality, key string) {
    a := normalize(address)
    l := normalize(locality)
    return a, l, strings.ToLower(l + "|" + a)
}

func normalize(s string) string {
    s = strings.TrimSpace(s)
    var b strings.Builder
    b.Grow(len(s))
    for _, r := range s {
        switch {
        case r == '　': // full-width space
            b.WriteRune(' ')
        case r >= '０' && r <= '９':
            b.WriteRune('0' + (r - '０'))
        case r >= 'Ａ' && r <= 'Ｚ':
            b.WriteRune('A' + (r - 'Ａ'))
        case r >= 'ａ' && r <= 'ｚ':
            b.WriteRune('a' + (r - 'ａ'))
        case r == '－' || r == '−':
            b.WriteRune('-')
        default:
            b.WriteRune(r)
        }
    }
    return collapseSpaces(b.String())
}

func collapseSpaces(s string) string {
    return strings.Join(strings.Fields(s), " ")
}
