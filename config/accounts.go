package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Account describes one browser-profile account. Loaded once per run; immutable.
type Account struct {
	ID        string
	UserAgent string
	Proxy     string
}

// idColumns are the accepted header aliases for the account id, in priority order.
var idColumns = []string{"id", "user_id", "acc_id"}

// LoadAccounts reads the tabular account file. The file is CSV with a header
// row; the id column may be named id, user_id or acc_id, and ua/proxy are
// optional. Rows without a resolvable id are dropped silently.
func LoadAccounts(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	idCol := -1
	for _, name := range idColumns {
		if i, ok := header[name]; ok {
			idCol = i
			break
		}
	}
	if idCol == -1 {
		return nil, fmt.Errorf("accounts file %s has no id/user_id/acc_id column", path)
	}

	cell := func(row []string, col int) string {
		if col < 0 || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	uaCol, hasUA := header["ua"]
	proxyCol, hasProxy := header["proxy"]

	var accounts []Account
	for _, row := range rows[1:] {
		id := cell(row, idCol)
		if id == "" {
			continue
		}
		acc := Account{ID: id}
		if hasUA {
			acc.UserAgent = cell(row, uaCol)
		}
		if hasProxy {
			acc.Proxy = cell(row, proxyCol)
		}
		accounts = append(accounts, acc)
	}

	return accounts, nil
}
