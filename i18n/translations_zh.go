package i18n

var chineseTranslations = map[string]string{
	// 生成器绘制的占位符
	"placeholder.unknown_element":  "[未知元素: %s]",
	"placeholder.invalid_element":  "[无效的 %s]",
	"placeholder.data_unavailable": "[%s]\n数据不可用",
	"placeholder.render_failed":    "[%s]\n渲染失败",

	// 生成报告
	"report.title":              "生成报告: %s",
	"report.subtitle":           "运行 %s, %s",
	"report.output":             "输出文件",
	"report.pages":              "页数",
	"report.rendered":           "已渲染",
	"report.placeholders":       "占位符",
	"report.failed":             "失败",
	"report.duration":           "耗时",
	"report.col_slide":          "幻灯片",
	"report.col_element":        "元素",
	"report.col_type":           "类型",
	"report.col_status":         "状态",
	"report.col_detail":         "详情",
	"report.status_rendered":    "已渲染",
	"report.status_placeholder": "占位符",
	"report.status_failed":      "失败",

	// 批量报告
	"batch.title":        "批量生成报告",
	"batch.total":        "任务总数",
	"batch.successful":   "成功",
	"batch.failed":       "失败",
	"batch.success_rate": "成功率",
	"batch.col_job":      "任务",
	"batch.col_status":   "状态",
	"batch.col_template": "模板",
	"batch.col_data":     "数据",
	"batch.col_output":   "输出 / 错误",
	"batch.degraded":     "任务 %d: %d 个占位符, %d 个失败元素",
}
