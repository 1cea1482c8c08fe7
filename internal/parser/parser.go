package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/model"
)

// FillTimeLayout 成交时间格式，例如 02/03/2024 9:15 AM
const FillTimeLayout = "01/02/2006 3:04 PM"

const maxLineSize = 1024 * 1024

var (
	fillPattern = regexp.MustCompile(
		`OrderDirectory::orderFilled\(\) order: ID: (\S+) (\S+) (\S+)\.CME.*(Filled BUY|Filled SELL).*Qty:(\d+\.\d+).*Last Fill Time:\s*(\d{2}/\d{2}/\d{4} \d{1,2}:\d{2} [AP]M).*fill price: (\d+\.\d+)`,
	)
	accountPattern = regexp.MustCompile(`ACCOUNT:\s*(\S+)\s+fcmId:`)
	nonDigits      = regexp.MustCompile(`[^0-9]`)
)

// Source 带名称的输入源
type Source struct {
	Name   string
	Reader io.Reader
}

// Parser 成交日志解析器
type Parser struct {
	logger   *zap.Logger
	location *time.Location
}

// NewParser 创建解析器，成交时间按本地时区解析
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		logger:   logger.With(zap.String("component", "fill_parser")),
		location: time.Local,
	}
}

// WithLocation 指定成交时间所在时区
func (p *Parser) WithLocation(loc *time.Location) *Parser {
	p.location = loc
	return p
}

// ParseFiles 解析多个日志文件
func (p *Parser) ParseFiles(paths ...string) ([]model.Fill, error) {
	sources := make([]Source, 0, len(paths))
	files := make([]*os.File, 0, len(paths))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		files = append(files, f)
		sources = append(sources, Source{Name: path, Reader: f})
	}

	return p.Parse(sources...)
}

// Parse 解析所有输入源，按 (账户, 订单号) 去重，后出现的记录覆盖先出现的
func (p *Parser) Parse(sources ...Source) ([]model.Fill, error) {
	index := make(map[model.FillKey]int)
	fills := make([]model.Fill, 0)

	for _, src := range sources {
		scanner := bufio.NewScanner(src.Reader)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			fill, ok, err := ParseLine(scanner.Text(), p.location)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", src.Name, lineNo, err)
			}
			if !ok {
				continue
			}

			if i, seen := index[fill.Key()]; seen {
				fills[i] = fill
				continue
			}
			index[fill.Key()] = len(fills)
			fills = append(fills, fill)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("读取日志 %s 失败: %w", src.Name, err)
		}
	}

	if len(fills) == 0 {
		p.logger.Info("未找到成交记录", zap.Int("sources", len(sources)))
	} else {
		p.logger.Debug("成交解析完成", zap.Int("fills", len(fills)), zap.Int("sources", len(sources)))
	}
	return fills, nil
}

// ParseLine 解析单行日志；不匹配时返回 ok=false，时间无法解析时返回错误
func ParseLine(line string, loc *time.Location) (model.Fill, bool, error) {
	m := fillPattern.FindStringSubmatch(line)
	if m == nil {
		return model.Fill{}, false, nil
	}

	digits := nonDigits.ReplaceAllString(m[1], "")
	orderID, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return model.Fill{}, false, fmt.Errorf("无效的订单号 %q: %w", m[1], err)
	}

	side, _ := model.ParseSide(m[4])

	quantity, err := decimal.NewFromString(m[5])
	if err != nil {
		return model.Fill{}, false, fmt.Errorf("无效的成交数量 %q: %w", m[5], err)
	}

	if loc == nil {
		loc = time.Local
	}
	fillTime, err := time.ParseInLocation(FillTimeLayout, m[6], loc)
	if err != nil {
		return model.Fill{}, false, fmt.Errorf("解析成交时间失败: %w", err)
	}

	price, err := decimal.NewFromString(m[7])
	if err != nil {
		return model.Fill{}, false, fmt.Errorf("无效的成交价格 %q: %w", m[7], err)
	}

	return model.Fill{
		Account:  m[2],
		OrderID:  orderID,
		Side:     side,
		Symbol:   m[3],
		Quantity: quantity,
		Price:    price,
		FillTime: fillTime,
	}, true, nil
}

// ScanAccounts 从日志中收集账户名称，结果已排序
func ScanAccounts(paths ...string) ([]string, error) {
	names := make(map[string]struct{})
	for _, path := range paths {
		if err := scanAccountsFile(path, names); err != nil {
			return nil, err
		}
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

func scanAccountsFile(path string, names map[string]struct{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "ACCOUNT:") {
			continue
		}
		if m := accountPattern.FindStringSubmatch(line); m != nil {
			names[m[1]] = struct{}{}
		}
	}
	return scanner.Err()
}

// GroupByAccount 按账户分组成交
func GroupByAccount(fills []model.Fill) map[string][]model.Fill {
	groups := make(map[string][]model.Fill)
	for _, f := range fills {
		groups[f.Account] = append(groups[f.Account], f)
	}
	return groups
}

// Accounts 返回成交中出现的账户，已排序
func Accounts(fills []model.Fill) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, f := range fills {
		if _, ok := seen[f.Account]; ok {
			continue
		}
		seen[f.Account] = struct{}{}
		result = append(result, f.Account)
	}
	sort.Strings(result)
	return result
}
