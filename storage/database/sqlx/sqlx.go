package sqlxrepos

import "strconv"

// itoa keeps query building readable when numbering positional args.
func itoa(n int) string { return strconv.Itoa(n) }
