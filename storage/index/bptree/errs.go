package bptree

import "errors"

var errNoFrame = errors.New("bptree: buffer pool has no free or evictable frame")
var errPageStillPinned = errors.New("bptree: page still pinned after guard drop")
