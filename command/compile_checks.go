package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[IngestOrderMessage]        = (*IngestOrderCommand)(nil)
	_ gocmd.Commander[UpdateStatusMessage]       = (*UpdateStatusCommand)(nil)
	_ gocmd.Commander[PruneVerificationsMessage] = (*PruneVerificationsCommand)(nil)
)
