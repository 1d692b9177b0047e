package entities

import "github.com/JonMunkholm/stateport/internal/core"

func init() {
	registerProjects()
	registerStudyRecords()
}

func registerProjects() {
	core.Register(core.EntityDefinition{
		Kind:  "projects",
		Table: "projects",
		Label: "Projects",
		Order: orderProjects,
		Refs:  []core.RefSpec{userRef(true)},
		Fields: []core.FieldSpec{
			{Name: "Name", Aliases: []string{"项目名称", "名称", "Project Name"}, Column: "name",
				Type: core.FieldText, Required: true, Identity: true, MaxLen: 100, FreeText: true},
			{Name: "Description", Aliases: []string{"描述", "项目描述"}, Column: "description",
				Type: core.FieldText, MaxLen: 1000, FreeText: true},
			{Name: "Status", Aliases: []string{"状态"}, Column: "status",
				Type: core.FieldText, MaxLen: 20, Default: "active", FreeText: true},
			createdAt(false),
		},
		NaturalKey:  []string{"user_id", "name"},
		LabelColumn: "name",
		ScopeColumn: "user_id",
	})
}

func registerStudyRecords() {
	core.Register(core.EntityDefinition{
		Kind:  "study_records",
		Table: "study_records",
		Label: "Study Records",
		Order: orderStudyRecords,
		Refs: []core.RefSpec{
			userRef(true),
			{Name: "Project", Aliases: []string{"项目ID", "项目", "Project Name", "Project ID"}, Column: "project_id",
				Target: "projects", ScopeColumn: "user_id"},
		},
		Fields: []core.FieldSpec{
			{Name: "Start Time", Aliases: []string{"开始时间", "Start"}, Column: "start_time",
				Type: core.FieldTime, Required: true},
			{Name: "End Time", Aliases: []string{"结束时间", "End"}, Column: "end_time",
				Type: core.FieldTime},
			{Name: "Duration Minutes", Aliases: []string{"时长", "时长(分钟)", "学习时长", "Duration"}, Column: "duration_minutes",
				Type: core.FieldInt},
			{Name: "Notes", Aliases: []string{"备注", "笔记"}, Column: "notes",
				Type: core.FieldText, MaxLen: 2000, FreeText: true},
			createdAt(false),
		},
		NaturalKey: []string{"user_id", "start_time"},
	})
}
