package entities

import (
	"regexp"

	"github.com/JonMunkholm/stateport/internal/core"
)

func init() {
	registerNotifications()
	registerOperationLogs()
	registerConfig()
}

var configKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

func registerNotifications() {
	core.Register(core.EntityDefinition{
		Kind:  "notifications",
		Table: "notifications",
		Label: "Notifications",
		Order: orderNotifications,
		Refs:  []core.RefSpec{userRef(true)},
		Fields: []core.FieldSpec{
			{Name: "Title", Aliases: []string{"标题"}, Column: "title",
				Type: core.FieldText, Required: true, Identity: true, MaxLen: 200, FreeText: true},
			{Name: "Content", Aliases: []string{"内容", "消息内容"}, Column: "content",
				Type: core.FieldText, MaxLen: 5000, FreeText: true},
			{Name: "Read", Aliases: []string{"是否已读", "已读", "Is Read"}, Column: "is_read",
				Type: core.FieldBool, Default: "false"},
			createdAt(true),
		},
		NaturalKey: []string{"user_id", "title", "created_at"},
	})
}

// Operation logs keep their user optional: entries written by the system
// or by since-deleted accounts have none.
func registerOperationLogs() {
	core.Register(core.EntityDefinition{
		Kind:  "operation_logs",
		Table: "operation_logs",
		Label: "Operation Logs",
		Order: orderOperationLogs,
		Refs:  []core.RefSpec{userRef(false)},
		Fields: []core.FieldSpec{
			{Name: "Action", Aliases: []string{"操作", "操作类型"}, Column: "action",
				Type: core.FieldText, Required: true, Identity: true, MaxLen: 100, FreeText: true},
			{Name: "Details", Aliases: []string{"详情", "操作详情"}, Column: "details",
				Type: core.FieldText, MaxLen: 5000, FreeText: true},
			{Name: "IP Address", Aliases: []string{"IP地址", "IP"}, Column: "ip_address",
				Type: core.FieldText, MaxLen: 45, FreeText: true},
			createdAt(true),
		},
		NaturalKey: []string{"action", "created_at", "user_id"},
	})
}

func registerConfig() {
	core.Register(core.EntityDefinition{
		Kind:  "config",
		Table: "system_config",
		Label: "System Config",
		Order: orderConfig,
		Fields: []core.FieldSpec{
			{Name: "Key", Aliases: []string{"键", "配置键", "Config Key"}, Column: "key",
				Type: core.FieldText, Required: true, Identity: true, MaxLen: 100, Pattern: configKeyPattern},
			{Name: "Value", Aliases: []string{"值", "配置值"}, Column: "value",
				Type: core.FieldText, MaxLen: 5000, FreeText: true},
			{Name: "Description", Aliases: []string{"描述", "说明"}, Column: "description",
				Type: core.FieldText, MaxLen: 500, FreeText: true},
			{Name: "Updated At", Aliases: []string{"更新时间"}, Column: "updated_at",
				Type: core.FieldTime},
		},
		NaturalKey:  []string{"key"},
		LabelColumn: "key",
	})
}
