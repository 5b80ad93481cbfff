/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2026 Markus Stenberg
 *
 * Created:       Tue Oct  6 15:50:00 2026 mstenber
 * Last modified: Tue Oct  6 15:52:31 2026 mstenber
 * Edit time:     2 min
 *
 */

package device

import "errors"

var (
	ErrNoSize         = errors.New("device does not exist and no size was given")
	ErrUnknownBackend = errors.New("unknown device backend")
)
