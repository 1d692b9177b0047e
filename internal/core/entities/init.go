// Package entities registers every importable entity definition with the
// core registry. Import it for side effects wherever the pipeline runs.
package entities

// Each file registers its kinds from init(). Order values fix the import
// dependency order: a kind only references kinds with a lower Order.
const (
	orderUsers = iota + 1
	orderProjects
	orderStudyRecords
	orderAchievements
	orderUserAchievements
	orderPoints
	orderExchanges
	orderNotifications
	orderOperationLogs
	orderConfig
)
