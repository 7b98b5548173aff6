package qianji

import "strings"

// Qianji's category taxonomy differs from the ledger's. The tables below map
// (一级分类, 二级分类) pairs onto ledger category names; unmapped pairs fall
// back to the Qianji parent name so no record is lost.

var expenseCategoryMap = map[string]string{
	"餐饮":  "餐饮",
	"早餐":  "餐饮",
	"午餐":  "餐饮",
	"晚餐":  "餐饮",
	"外卖":  "餐饮",
	"买菜":  "餐饮",
	"零食":  "零食饮料",
	"饮料":  "零食饮料",
	"水果":  "零食饮料",
	"交通":  "交通",
	"打车":  "交通",
	"公交":  "交通",
	"地铁":  "交通",
	"加油":  "交通",
	"停车":  "交通",
	"购物":  "购物",
	"日用品": "购物",
	"服饰":  "服饰美容",
	"美容":  "服饰美容",
	"护肤":  "服饰美容",
	"理发":  "服饰美容",
	"住房":  "住房",
	"房租":  "住房",
	"房贷":  "住房",
	"水电煤": "住房",
	"物业":  "住房",
	"通讯":  "通讯",
	"话费":  "通讯",
	"网费":  "通讯",
	"娱乐":  "娱乐",
	"电影":  "娱乐",
	"游戏":  "娱乐",
	"旅行":  "旅行",
	"酒店":  "旅行",
	"医疗":  "医疗健康",
	"药品":  "医疗健康",
	"体检":  "医疗健康",
	"教育":  "学习教育",
	"书籍":  "学习教育",
	"课程":  "学习教育",
	"人情":  "人情往来",
	"红包":  "人情往来",
	"礼物":  "人情往来",
	"宠物":  "宠物",
	"育儿":  "育儿",
}

var incomeCategoryMap = map[string]string{
	"工资":  "工资",
	"奖金":  "奖金",
	"年终奖": "奖金",
	"兼职":  "兼职",
	"外快":  "兼职",
	"理财":  "投资收益",
	"利息":  "投资收益",
	"基金":  "投资收益",
	"股票":  "投资收益",
	"红包":  "红包",
	"报销":  "报销",
}

// MapCategory translates a Qianji (parent, child) pair into a ledger category
// name. The child wins when both map; otherwise the parent; otherwise the
// parent name passes through untouched.
func MapCategory(parent, child string, income bool) string {
	table := expenseCategoryMap
	fallback := "其他支出"
	if income {
		table = incomeCategoryMap
		fallback = "其他收入"
	}
	if child != "" {
		if mapped, ok := table[child]; ok {
			return mapped
		}
	}
	if mapped, ok := table[parent]; ok {
		return mapped
	}
	if parent != "" {
		return parent
	}
	return fallback
}

var categoryIcons = map[string]string{
	"餐饮":   "🍜",
	"零食饮料": "🧋",
	"交通":   "🚇",
	"购物":   "🛒",
	"服饰美容": "👔",
	"住房":   "🏠",
	"通讯":   "📱",
	"娱乐":   "🎮",
	"旅行":   "✈️",
	"医疗健康": "💊",
	"学习教育": "📚",
	"人情往来": "🧧",
	"宠物":   "🐱",
	"育儿":   "🍼",
	"工资":   "💰",
	"奖金":   "🎁",
	"兼职":   "💼",
	"投资收益": "📈",
	"红包":   "🧧",
	"报销":   "🧾",
}

var categoryColors = map[string]string{
	"餐饮":   "#FF9800",
	"零食饮料": "#FFC107",
	"交通":   "#2196F3",
	"购物":   "#E91E63",
	"服饰美容": "#9C27B0",
	"住房":   "#795548",
	"通讯":   "#00BCD4",
	"娱乐":   "#673AB7",
	"旅行":   "#03A9F4",
	"医疗健康": "#F44336",
	"学习教育": "#3F51B5",
	"人情往来": "#FF5722",
	"工资":   "#4CAF50",
	"奖金":   "#8BC34A",
	"投资收益": "#009688",
}

func SuggestCategoryIcon(name string) string {
	if icon, ok := categoryIcons[name]; ok {
		return icon
	}
	return "📋"
}

func SuggestCategoryColor(name string) string {
	if color, ok := categoryColors[name]; ok {
		return color
	}
	return "#607D8B"
}

// DetectAccountType guesses a ledger account type from a Qianji account name.
func DetectAccountType(name string) string {
	switch {
	case strings.Contains(name, "支付宝") || strings.Contains(name, "余额宝"):
		return "ALIPAY"
	case strings.Contains(name, "微信") || strings.Contains(name, "零钱"):
		return "WECHAT"
	case strings.Contains(name, "信用卡") || strings.Contains(name, "花呗") || strings.Contains(name, "白条"):
		return "CREDIT_CARD"
	case strings.Contains(name, "银行") || strings.Contains(name, "储蓄卡") || strings.Contains(name, "借记卡"):
		return "BANK_CARD"
	case strings.Contains(name, "现金"):
		return "CASH"
	default:
		return "OTHER"
	}
}

func SuggestAccountIcon(accountType string) string {
	switch accountType {
	case "ALIPAY":
		return "🅰️"
	case "WECHAT":
		return "💬"
	case "CREDIT_CARD":
		return "💳"
	case "BANK_CARD":
		return "🏦"
	case "CASH":
		return "💵"
	default:
		return "👛"
	}
}
