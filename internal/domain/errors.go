package domain

import "errors"

// ErrNoCredentials means no linked account credentials are stored. Every
// calendar and mail capability needs them, so the error aborts the whole
// request rather than becoming a single tool's failure output.
var ErrNoCredentials = errors.New("no stored google credentials")
