package qianji

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = "\ufeffID,时间,分类,二级分类,类型,金额,币种,账户1,账户2,备注,标签\n" +
	"qj-001,2025-05-20 12:30:00,餐饮,午餐,支出,25.50,CNY,支付宝,,公司楼下,工作餐\n" +
	"qj-002,2025-05-20 18:00:00,工资,,收入,8500.00,CNY,招商银行储蓄卡,,,\n" +
	"qj-003,2025-05-21 09:00:00,转账,,转账,1000.00,CNY,支付宝,微信零钱,,\n" +
	"qj-004,2025-05-22 10:00:00,购物,,退款,39.90,CNY,支付宝,,鞋子退货,\n"

func TestIsQianjiHeader(t *testing.T) {
	assert.True(t, IsQianjiHeader("ID,时间,分类,二级分类,类型,金额,币种,账户1,账户2,备注,标签"))
	assert.True(t, IsQianjiHeader("时间,分类,类型,金额,账户1"))
	assert.False(t, IsQianjiHeader("HEADER,2.0,2025-06-01"))
	assert.False(t, IsQianjiHeader("时间,分类,类型,金额"), "missing 账户1")
}

func TestParse(t *testing.T) {
	records, errs, err := Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, records, 4)

	lunch := records[0]
	assert.Equal(t, "qj-001", lunch.QianjiID)
	assert.Equal(t, "餐饮", lunch.ParentCategory)
	assert.Equal(t, "午餐", lunch.ChildCategory)
	assert.Equal(t, "支出", lunch.Type)
	assert.True(t, lunch.Amount.Equal(decimal.RequireFromString("25.50")))
	assert.Equal(t, "支付宝", lunch.Account)
	assert.Equal(t, "公司楼下", lunch.Note)
	assert.Equal(t, "工作餐", lunch.Tags)
	assert.Equal(t, 2, lunch.Line)

	transfer := records[2]
	assert.Equal(t, "转账", transfer.Type)
	assert.Equal(t, "微信零钱", transfer.Account2)
}

func TestParseRejectsNonQianjiFile(t *testing.T) {
	_, _, err := Parse(strings.NewReader("HEADER,2.0,x\nACCOUNT,a,b,CASH,0,CNY,,\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不是钱迹导出文件")
}

func TestParseCollectsBadRows(t *testing.T) {
	in := "时间,分类,类型,金额,账户1\n" +
		"not-a-time,餐饮,支出,10.00,支付宝\n" +
		"2025-05-20 12:00:00,餐饮,支出,ten,支付宝\n" +
		"2025-05-20 12:00:00,餐饮,支出,10.00,支付宝\n"
	records, errs, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, 2, errs[0].Line)
	assert.Equal(t, 3, errs[1].Line)
	require.Len(t, records, 1)
}

func TestMapCategory(t *testing.T) {
	assert.Equal(t, "餐饮", MapCategory("餐饮", "午餐", false))
	assert.Equal(t, "零食饮料", MapCategory("餐饮", "零食", false), "child mapping wins")
	assert.Equal(t, "投资收益", MapCategory("理财", "", true))
	assert.Equal(t, "按摩", MapCategory("按摩", "", false), "unmapped parent passes through")
	assert.Equal(t, "其他支出", MapCategory("", "", false))
	assert.Equal(t, "其他收入", MapCategory("", "", true))
}

func TestDetectAccountType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"支付宝", "ALIPAY"},
		{"余额宝", "ALIPAY"},
		{"微信零钱", "WECHAT"},
		{"招行信用卡", "CREDIT_CARD"},
		{"花呗", "CREDIT_CARD"},
		{"工商银行", "BANK_CARD"},
		{"现金", "CASH"},
		{"饭卡", "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectAccountType(tt.name), tt.name)
	}
}
