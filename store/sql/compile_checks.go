package sqlstore

import (
	"github.com/goliatone/go-order-verify/core"
)

var (
	_ core.VerificationStore = (*VerificationStore)(nil)
	_ core.VerificationStore = (*CachedVerificationStore)(nil)
)
