package page

import "errors"

var errPageOverflow = errors.New("page: encoded node exceeds page size")
