package services

import (
	"fmt"
	"io"
	"strings"
)

// WriteResults 以文本输出每个账户的指标和告警；account 非空时只输出该账户
func WriteResults(w io.Writer, res *Results, account string) error {
	if res == nil {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}

	names := res.AccountNames()
	if account != "" {
		if _, ok := res.Account(account); !ok {
			return fmt.Errorf("未知账户: %s", account)
		}
		names = []string{account}
	}

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		acc := res.Accounts[name]
		fmt.Fprintf(&b, "=== %s ===\n", name)
		for _, m := range acc.Snapshot.Metrics {
			fmt.Fprintf(&b, "%-22s %s\n", m.Label, m.Value)
		}
		for _, a := range acc.Alerts {
			line := fmt.Sprintf("[%s] %s", a.Level, a.Message)
			if a.ExtraMsg != "" {
				line += " (" + a.ExtraMsg + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
