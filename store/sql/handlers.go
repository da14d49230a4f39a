package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func verificationHandlers() repository.ModelHandlers[*verificationRecord] {
	return repository.ModelHandlers[*verificationRecord]{
		NewRecord: func() *verificationRecord {
			return &verificationRecord{}
		},
		GetID: func(record *verificationRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *verificationRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "source_order_id"
		},
		GetIdentifierValue: func(record *verificationRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.SourceOrderID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
