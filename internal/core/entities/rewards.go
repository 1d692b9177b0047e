package entities

import "github.com/JonMunkholm/stateport/internal/core"

func init() {
	registerAchievements()
	registerUserAchievements()
	registerPoints()
	registerExchanges()
}

func registerAchievements() {
	core.Register(core.EntityDefinition{
		Kind:  "achievements",
		Table: "achievements",
		Label: "Achievements",
		Order: orderAchievements,
		Fields: []core.FieldSpec{
			{Name: "Name", Aliases: []string{"成就名称", "名称", "Achievement Name"}, Column: "name",
				Type: core.FieldText, Required: true, Identity: true, MaxLen: 100, FreeText: true},
			{Name: "Description", Aliases: []string{"描述", "成就描述"}, Column: "description",
				Type: core.FieldText, MaxLen: 500, FreeText: true},
			{Name: "Category", Aliases: []string{"类别", "分类"}, Column: "category",
				Type: core.FieldText, MaxLen: 50, FreeText: true},
			{Name: "Points", Aliases: []string{"积分", "奖励积分", "Reward Points"}, Column: "points",
				Type: core.FieldInt, Default: "0"},
			{Name: "Icon", Aliases: []string{"图标"}, Column: "icon",
				Type: core.FieldText, MaxLen: 255, FreeText: true},
			createdAt(false),
		},
		NaturalKey:  []string{"name"},
		LabelColumn: "name",
	})
}

func registerUserAchievements() {
	core.Register(core.EntityDefinition{
		Kind:  "user_achievements",
		Table: "user_achievements",
		Label: "User Achievements",
		Order: orderUserAchievements,
		Refs: []core.RefSpec{
			userRef(true),
			{Name: "Achievement", Aliases: []string{"成就ID", "成就", "成就名称", "Achievement ID", "Achievement Name"},
				Column: "achievement_id", Target: "achievements", Required: true},
		},
		Fields: []core.FieldSpec{
			{Name: "Achieved At", Aliases: []string{"获得时间", "达成时间", "Unlocked At"}, Column: "achieved_at",
				Type: core.FieldTime},
		},
		NaturalKey: []string{"user_id", "achievement_id"},
	})
}

func registerPoints() {
	core.Register(core.EntityDefinition{
		Kind:  "points",
		Table: "point_records",
		Label: "Point Records",
		Order: orderPoints,
		Refs:  []core.RefSpec{userRef(true)},
		Fields: []core.FieldSpec{
			{Name: "Amount", Aliases: []string{"积分", "数量", "积分变动", "Points"}, Column: "amount",
				Type: core.FieldInt, Required: true},
			{Name: "Reason", Aliases: []string{"原因", "说明", "来源"}, Column: "reason",
				Type: core.FieldText, MaxLen: 255, FreeText: true},
			createdAt(true),
		},
		NaturalKey: []string{"user_id", "created_at", "amount", "reason"},
		Prepare:    emptyString("reason"),
	})
}

func registerExchanges() {
	core.Register(core.EntityDefinition{
		Kind:  "exchanges",
		Table: "exchange_records",
		Label: "Exchange Records",
		Order: orderExchanges,
		Refs:  []core.RefSpec{userRef(true)},
		Fields: []core.FieldSpec{
			{Name: "Item Name", Aliases: []string{"商品名称", "物品", "兑换物品", "Item"}, Column: "item_name",
				Type: core.FieldText, Required: true, Identity: true, MaxLen: 100, FreeText: true},
			{Name: "Points Cost", Aliases: []string{"消耗积分", "花费积分", "Cost"}, Column: "points_cost",
				Type: core.FieldInt, Required: true},
			{Name: "Status", Aliases: []string{"状态"}, Column: "status",
				Type: core.FieldText, MaxLen: 20, Default: "completed", FreeText: true},
			createdAt(true),
		},
		NaturalKey: []string{"user_id", "item_name", "created_at"},
	})
}
