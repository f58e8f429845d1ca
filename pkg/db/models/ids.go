package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the row has none yet. Postgres would fill
// the column default, SQLite has no equivalent.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
