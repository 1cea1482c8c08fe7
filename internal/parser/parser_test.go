package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/life2you_mini/tradestats/internal/model"
)

func fillLine(orderID string, account, symbol, side, qty, ts, price string) string {
	return fmt.Sprintf(
		"2024-02-03 09:15:00 INFO OrderDirectory::orderFilled() order: ID: %s %s %s.CME meta Filled %s meta Qty:%s meta Last Fill Time: %s meta fill price: %s",
		orderID, account, symbol, side, qty, ts, price,
	)
}

func TestParseLine(t *testing.T) {
	line := fillLine("SIM-12", "ACC123", "ESM5", "BUY", "2.00", "02/03/2024 9:15 AM", "5020.50")

	fill, ok, err := ParseLine(line, time.UTC)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "ACC123", fill.Account)
	assert.Equal(t, int64(12), fill.OrderID)
	assert.Equal(t, model.SideBuy, fill.Side)
	assert.Equal(t, "ESM5", fill.Symbol)
	assert.Equal(t, "2", fill.Quantity.String())
	assert.Equal(t, "5020.5", fill.Price.String())
	assert.Equal(t, time.Date(2024, 2, 3, 9, 15, 0, 0, time.UTC), fill.FillTime)
}

func TestParseLine_Variants(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		matched bool
		wantErr bool
	}{
		{
			name:    "无关日志行",
			line:    "2024-02-03 09:15:00 INFO something else",
			matched: false,
		},
		{
			name:    "下午时间",
			line:    fillLine("SIM-99", "ACC1", "NQM5", "SELL", "1.00", "02/03/2024 12:05 PM", "18000.25"),
			matched: true,
		},
		{
			name:    "月份越界导致时间解析失败",
			line:    fillLine("SIM-1", "ACC1", "ESM5", "BUY", "1.00", "13/45/2024 9:15 AM", "5000.00"),
			wantErr: true,
		},
		{
			name:    "小时越界导致时间解析失败",
			line:    fillLine("SIM-1", "ACC1", "ESM5", "BUY", "1.00", "02/03/2024 13:15 PM", "5000.00"),
			wantErr: true,
		},
		{
			name:    "订单号不含数字",
			line:    fillLine("SIM-", "ACC1", "ESM5", "BUY", "1.00", "02/03/2024 9:15 AM", "5000.00"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := ParseLine(tt.line, time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.matched, ok)
		})
	}
}

func TestParser_Parse_Dedup(t *testing.T) {
	p := NewParser(zaptest.NewLogger(t)).WithLocation(time.UTC)

	fileA := strings.Join([]string{
		"noise",
		fillLine("SIM-1", "ACC1", "ESM5", "BUY", "1.00", "02/03/2024 9:15 AM", "100.00"),
		fillLine("SIM-2", "ACC1", "ESM5", "SELL", "1.00", "02/03/2024 9:20 AM", "105.00"),
	}, "\n")
	fileB := strings.Join([]string{
		fillLine("SIM-2", "ACC1", "ESM5", "SELL", "1.00", "02/03/2024 9:20 AM", "105.00"),
		fillLine("SIM-2", "ACC2", "ESM5", "BUY", "1.00", "02/03/2024 9:21 AM", "104.00"),
	}, "\n")

	once, err := p.Parse(Source{Name: "a", Reader: strings.NewReader(fileA)})
	require.NoError(t, err)
	assert.Len(t, once, 2)

	both, err := p.Parse(
		Source{Name: "a", Reader: strings.NewReader(fileA)},
		Source{Name: "b", Reader: strings.NewReader(fileB)},
	)
	require.NoError(t, err)
	// ACC1/2 出现两次只保留一条，ACC2/2 是不同账户
	assert.Len(t, both, 3)

	twice, err := p.Parse(
		Source{Name: "a", Reader: strings.NewReader(fileA)},
		Source{Name: "a-copy", Reader: strings.NewReader(fileA)},
	)
	require.NoError(t, err)
	assert.ElementsMatch(t, once, twice)
}

func TestParser_Parse_FailFast(t *testing.T) {
	p := NewParser(zaptest.NewLogger(t))

	input := strings.Join([]string{
		fillLine("SIM-1", "ACC1", "ESM5", "BUY", "1.00", "02/03/2024 9:15 AM", "100.00"),
		fillLine("SIM-2", "ACC1", "ESM5", "SELL", "1.00", "00/03/2024 9:20 AM", "105.00"),
	}, "\n")

	fills, err := p.Parse(Source{Name: "bad.txt", Reader: strings.NewReader(input)})
	require.Error(t, err)
	assert.Nil(t, fills)
	assert.Contains(t, err.Error(), "bad.txt:2")
}

func TestParser_ParseFiles(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")

	content := fillLine("SIM-7", "ACC1", "ESM5", "BUY", "1.00", "02/03/2024 9:15 AM", "100.00")
	require.NoError(t, os.WriteFile(pathA, []byte(content), 0644))
	require.NoError(t, os.WriteFile(pathB, []byte(content), 0644))

	p := NewParser(zaptest.NewLogger(t))
	fills, err := p.ParseFiles(pathA, pathB)
	require.NoError(t, err)
	assert.Len(t, fills, 1)

	_, err = p.ParseFiles(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestScanAccounts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	content := strings.Join([]string{
		"INFO ACCOUNT: APEX-001 fcmId: Rithmic ibId: x",
		"INFO ACCOUNT:   APEX-002   fcmId: Rithmic",
		"INFO ACCOUNT: APEX-001 fcmId: Rithmic",
		"INFO nothing here",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	names, err := ScanAccounts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"APEX-001", "APEX-002"}, names)
}

func TestGroupByAccount(t *testing.T) {
	fills := []model.Fill{
		{Account: "B", OrderID: 1},
		{Account: "A", OrderID: 2},
		{Account: "B", OrderID: 3},
	}

	groups := GroupByAccount(fills)
	assert.Len(t, groups["B"], 2)
	assert.Len(t, groups["A"], 1)
	assert.Equal(t, []string{"A", "B"}, Accounts(fills))
}
