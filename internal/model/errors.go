package model

import "github.com/rotisserie/eris"

// ErrMissingData reports data that a later step depends on but that is not
// in the cache: a district without ranking properties, or a ranking entry
// that cannot be attributed to a known district.
var ErrMissingData = eris.New("missing data")
