package entities

import (
	"context"

	"github.com/JonMunkholm/stateport/internal/core"
)

// userRef is the owning-user column shared by most kinds. It resolves a
// username first, then a user id.
func userRef(required bool) core.RefSpec {
	return core.RefSpec{
		Name:     "User",
		Aliases:  []string{"用户ID", "用户", "用户名", "Username", "User ID", "Owner", "所属用户"},
		Column:   "user_id",
		Target:   "users",
		Required: required,
	}
}

// createdAt is the creation timestamp column. Kinds whose natural key
// includes it mark it required.
func createdAt(required bool) core.FieldSpec {
	return core.FieldSpec{
		Name:     "Created At",
		Aliases:  []string{"创建时间", "时间", "Created", "Time"},
		Column:   "created_at",
		Type:     core.FieldTime,
		Required: required,
	}
}

// emptyString stores "" instead of NULL for the given columns so natural
// keys over NOT NULL DEFAULT '' columns compare equal on re-import.
func emptyString(cols ...string) core.PrepareFunc {
	return func(_ context.Context, row *core.Row) error {
		for _, c := range cols {
			if row.Record[c] == nil {
				row.Record[c] = ""
			}
		}
		return nil
	}
}
