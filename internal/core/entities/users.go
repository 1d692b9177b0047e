package entities

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/JonMunkholm/stateport/internal/core"
)

func init() {
	registerUsers()
}

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@\-]+$`)

func registerUsers() {
	core.Register(core.EntityDefinition{
		Kind:  "users",
		Table: "users",
		Label: "Users",
		Order: orderUsers,
		Fields: []core.FieldSpec{
			{Name: "Username", Aliases: []string{"用户名", "User Name", "Login"}, Column: "username",
				Type: core.FieldText, Required: true, Identity: true, MaxLen: 50, Pattern: usernamePattern},
			{Name: "Email", Aliases: []string{"邮箱", "电子邮件", "E-mail", "Mail"}, Column: "email",
				Type: core.FieldEmail, Required: true, Identity: true, MaxLen: 254},
			{Name: "Password Hash", Aliases: []string{"密码", "密码哈希", "Password"}, Column: "password_hash",
				Type: core.FieldText, FreeText: true},
			{Name: "Role", Aliases: []string{"角色"}, Column: "role",
				Type: core.FieldEnum, EnumValues: []string{"user", core.RoleAdmin}, Default: "user"},
			{Name: "Display Name", Aliases: []string{"昵称", "显示名称", "Nickname"}, Column: "display_name",
				Type: core.FieldText, MaxLen: 100, FreeText: true},
			{Name: "Total Points", Aliases: []string{"总积分"}, Column: "total_points",
				Type: core.FieldInt, Default: "0"},
			{Name: "Active", Aliases: []string{"是否激活", "激活", "Is Active"}, Column: "is_active",
				Type: core.FieldBool, Default: "true"},
			createdAt(false),
		},
		NaturalKey:  []string{"username", "email"},
		Unique:      [][]string{{"username"}, {"username", "email"}},
		LabelColumn: "username",
		Prepare:     prepareUser,
	})
}

// prepareUser settles existing accounts, applies the admin row policy and
// replaces missing or malformed password hashes.
func prepareUser(ctx context.Context, row *core.Row) error {
	rec := row.Record
	username, _ := rec["username"].(string)
	role, _ := rec["role"].(string)

	_, exists, err := row.Tx.FindID(ctx, row.Def, row.Def.KeyOf(rec))
	if err != nil {
		return err
	}
	if exists {
		// The stored role is kept, but a row asking to raise it is still
		// an escalation attempt.
		if role == core.RoleAdmin {
			isAdmin, err := storedAdmin(ctx, row, username)
			if err != nil {
				return err
			}
			if !isAdmin {
				row.FlagEscalation(username)
			}
		}
		row.Skip("already exists")
		return nil
	}

	if role == core.RoleAdmin {
		isAdmin, err := storedAdmin(ctx, row, username)
		if err != nil {
			return err
		}
		if isAdmin {
			row.Skip("admin account already exists")
			return nil
		}

		row.FlagEscalation(username)
		switch row.Policy {
		case core.PolicyDemote:
			rec["role"] = "user"
			row.Warn("admin role for %q demoted to user by import policy", username)
		case core.PolicyReject:
			row.Reject("Role", "admin role not permitted by import policy")
			return nil
		}
	}

	hash, _ := rec["password_hash"].(string)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		h, err := randomPasswordHash()
		if err != nil {
			return err
		}
		rec["password_hash"] = h
		row.Warn("no valid password hash for %q; the account needs a password reset", username)
	}
	return nil
}

// storedAdmin reports whether username already holds the admin role.
func storedAdmin(ctx context.Context, row *core.Row, username string) (bool, error) {
	_, found, err := row.Tx.FindID(ctx, row.Def, core.Record{"username": username, "role": core.RoleAdmin})
	return found, err
}

// randomPasswordHash hashes a random password nobody knows. MinCost keeps
// large restores fast; the password is never disclosed.
func randomPasswordHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	h, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
