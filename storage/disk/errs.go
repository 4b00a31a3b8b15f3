package disk

import "errors"

var errOutOfRange = errors.New("disk: page id out of range")
